package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs the struct's `validate` tags.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// ID accepts either a JSON number or a JSON string. The backend hands out
// integer keys for users and projects but string keys for tasks.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Flag is a boolean the backend may serialize as true/false or 1/0 (SQLite).
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("flag: unexpected value %s", data)
	}
	return nil
}

// Document is an opaque JSON object relayed without interpretation.
type Document map[string]interface{}
