package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RawNumber is a numeric form field exactly as entered. It accepts JSON
// numbers, JSON strings and null, and plain form values, so the validator
// decides what an empty or malformed entry means.
type RawNumber string

func (n *RawNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	*n = RawNumber(b)
	return nil
}

// UnmarshalParam lets echo bind the field from query and form values.
func (n *RawNumber) UnmarshalParam(param string) error {
	*n = RawNumber(param)
	return nil
}

// RawInt renders an optional integer back to its form value.
func RawInt(v *int) RawNumber {
	if v == nil {
		return ""
	}
	return RawNumber(strconv.Itoa(*v))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
