package serializer

import (
	"errors"
	"sort"
	"strings"
)

// ErrMalformed marks a request body that could not be decoded at all.
var ErrMalformed = errors.New("malformed request")

// MalformedError describes why a body could not be decoded.
type MalformedError struct {
	Detail string
}

func (e *MalformedError) Error() string {
	return ErrMalformed.Error() + ": " + e.Detail
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// NonFieldErrorsKey collects errors that do not belong to a single field.
const NonFieldErrorsKey = "non_field_errors"

// FieldErrors maps a field name to every message reported for it.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (e FieldErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
