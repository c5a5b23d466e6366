package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is a decoded JSON object keyed by field name. Values stay raw so
// absent, null and present fields can be told apart.
type Payload map[string]json.RawMessage

// Decode parses a request body. An empty body is an empty object.
func Decode(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Payload{}, nil
	}
	if !json.Valid(body) {
		var probe any
		err := json.Unmarshal(body, &probe)
		return nil, &MalformedError{Detail: fmt.Sprintf("JSON parse error - %v", err)}
	}
	if body[0] != '{' {
		errs := FieldErrors{}
		errs.Add(NonFieldErrorsKey, fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(body)))
		return nil, errs
	}
	payload := Payload{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedError{Detail: fmt.Sprintf("JSON parse error - %v", err)}
	}
	return payload, nil
}

func jsonKind(raw []byte) string {
	switch raw[0] {
	case '[':
		return "list"
	case '"':
		return "str"
	case 't', 'f':
		return "bool"
	case 'n':
		return "NoneType"
	}
	if bytes.ContainsAny(raw, ".eE") {
		return "float"
	}
	return "int"
}
