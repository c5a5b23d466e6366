// Package serializer holds the ticket projections and the one validation
// routine they share.
package serializer

import (
	"helpdesk/internal/model"
)

// View is a write projection over a ticket: which fields a caller may set and
// which of them must be present.
type View struct {
	name     string
	fields   []field
	required map[string]bool
	partial  bool
}

var (
	// Full accepts every writable field, status included.
	Full = View{
		name:     "full",
		fields:   []field{titleField, descriptionField, contactEmailField, contactPhoneField, statusField},
		required: map[string]bool{fieldTitle: true, fieldDescription: true, fieldContactEmail: true},
	}
	// Create never lets the caller choose a status.
	Create = View{
		name:     "create",
		fields:   []field{titleField, descriptionField, contactEmailField, contactPhoneField},
		required: map[string]bool{fieldTitle: true, fieldDescription: true, fieldContactEmail: true},
	}
	// Update only changes the fields present in the payload.
	Update = View{
		name:    "update",
		fields:  []field{titleField, descriptionField, contactEmailField, contactPhoneField, statusField},
		partial: true,
	}
)

func (v View) Name() string {
	return v.name
}

// Patch carries the cleaned values of a validated payload. Nil pointers mean
// the field was not supplied.
type Patch struct {
	Title           *string
	Description     *string
	ContactEmail    *string
	ContactPhone    *string
	ContactPhoneSet bool
	Status          *model.TicketStatus
}

// Validate checks every writable field of the view and reports all failures
// together. Fields outside the view are ignored.
func (v View) Validate(payload Payload) (Patch, error) {
	var patch Patch
	errs := FieldErrors{}

	for _, f := range v.fields {
		raw, ok := payload[f.name]
		if !ok {
			if !v.partial && v.required[f.name] {
				errs.Add(f.name, msgRequired)
			}
			continue
		}

		value, msg := f.parse(raw)
		if msg != "" {
			errs.Add(f.name, msg)
			continue
		}

		switch f.name {
		case fieldTitle:
			patch.Title = value
		case fieldDescription:
			patch.Description = value
		case fieldContactEmail:
			patch.ContactEmail = value
		case fieldContactPhone:
			patch.ContactPhone = value
			patch.ContactPhoneSet = true
		case fieldStatus:
			status := model.TicketStatus(*value)
			patch.Status = &status
		}
	}

	if err := errs.OrNil(); err != nil {
		return Patch{}, err
	}
	return patch, nil
}

// Apply copies the supplied fields onto t.
func (p Patch) Apply(t *model.Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ContactEmail != nil {
		t.ContactEmail = *p.ContactEmail
	}
	if p.ContactPhoneSet {
		t.ContactPhone = p.ContactPhone
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// NewTicket builds a ticket from a create payload, defaulting the status.
func (p Patch) NewTicket() *model.Ticket {
	ticket := &model.Ticket{Status: model.TicketStatusPending}
	p.Apply(ticket)
	return ticket
}
