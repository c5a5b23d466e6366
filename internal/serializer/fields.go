package serializer

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"helpdesk/internal/model"
)

const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldContactEmail = "contact_email"
	fieldContactPhone = "contact_phone"
	fieldStatus       = "status"
)

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgBlank         = "This field may not be blank."
	msgInvalidString = "Not a valid string."
	msgMaxLength     = "Ensure this field has no more than %d characters."
	msgInvalidEmail  = "Enter a valid email address."
	msgInvalidChoice = "%q is not a valid choice."
)

var validate = validator.New()

type field struct {
	name       string
	maxLength  int
	trim       bool
	allowNull  bool
	allowBlank bool
	check      func(value string) string
}

var (
	titleField = field{
		name:      fieldTitle,
		maxLength: model.TitleMaxLength,
		trim:      true,
		check:     minLength(model.TitleMinLength, "Title must be at least %d characters long."),
	}
	descriptionField = field{
		name:  fieldDescription,
		trim:  true,
		check: minLength(model.DescriptionMinLength, "Description must be at least %d characters long."),
	}
	contactEmailField = field{
		name:      fieldContactEmail,
		maxLength: model.ContactEmailMaxLength,
		trim:      true,
		check:     validEmail,
	}
	contactPhoneField = field{
		name:       fieldContactPhone,
		maxLength:  model.ContactPhoneMaxLength,
		trim:       true,
		allowNull:  true,
		allowBlank: true,
	}
	statusField = field{
		name:       fieldStatus,
		allowBlank: true,
		check:      validStatus,
	}
)

// parse returns the cleaned value (nil for an accepted null) or the first
// message describing why raw was rejected.
func (f field) parse(raw json.RawMessage) (*string, string) {
	if string(raw) == "null" {
		if f.allowNull {
			return nil, ""
		}
		return nil, msgNull
	}

	var value string
	switch {
	case len(raw) > 0 && raw[0] == '"':
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, msgInvalidString
		}
	case len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')):
		value = string(raw)
	default:
		return nil, msgInvalidString
	}

	if f.trim {
		value = strings.TrimSpace(value)
	}
	if value == "" && !f.allowBlank {
		return nil, msgBlank
	}
	if f.maxLength > 0 && utf8.RuneCountInString(value) > f.maxLength {
		return nil, fmt.Sprintf(msgMaxLength, f.maxLength)
	}
	if f.check != nil {
		if msg := f.check(value); msg != "" {
			return nil, msg
		}
	}
	return &value, ""
}

func minLength(n int, format string) func(string) string {
	return func(value string) string {
		if utf8.RuneCountInString(value) < n {
			return fmt.Sprintf(format, n)
		}
		return ""
	}
}

func validEmail(value string) string {
	if err := validate.Var(value, "required,email"); err != nil {
		return msgInvalidEmail
	}
	return ""
}

func validStatus(value string) string {
	if !model.TicketStatus(value).Valid() {
		return fmt.Sprintf(msgInvalidChoice, value)
	}
	return ""
}
