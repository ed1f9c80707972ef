package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier that the site serves either as a JSON number or as a
// JSON string. Numbers and non-numeric strings are held as plain text. A
// string whose content is numeric keeps its quotes, so MarshalJSON writes
// back the token kind the source used.
type ID string

// StringID returns the ID of a JSON string identifier s.
func StringID(s string) ID {
	if isJSONNumber(s) {
		return ID(strconv.Quote(s))
	}
	return ID(s)
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or a number: %w", err)
		}
		*id = ID(n.String())
	}
	return nil
}

// MarshalJSON writes numeric identifiers as JSON numbers and all others as
// JSON strings.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if isJSONNumber(s) {
		return []byte(s), nil
	}
	return json.Marshal(id.String())
}

// String returns the identifier text without quotes.
func (id ID) String() string {
	s := string(id)
	if len(s) >= 2 && s[0] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
	}
	return s
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return id == "" }

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}
