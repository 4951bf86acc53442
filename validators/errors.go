package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a field-level validation failure
type Kind string

const (
	MissingRequiredField Kind = "missing_required_field"
	InvalidEnum          Kind = "invalid_enum"
	InvalidNumber        Kind = "invalid_number"
	InvalidFormat        Kind = "invalid_format"
)

// FieldError is one inline message scoped to a form field
type FieldError struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// FieldErrors is the non-empty set of failures returned instead of a record
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Field + ": " + e.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed with the given kind.
func (fe FieldErrors) Has(field string, kind Kind) bool {
	for _, e := range fe {
		if e.Field == field && e.Kind == kind {
			return true
		}
	}
	return false
}

// For returns the failures recorded against field.
func (fe FieldErrors) For(field string) []FieldError {
	var out []FieldError
	for _, e := range fe {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

func (fe *FieldErrors) add(field string, kind Kind, format string, args ...interface{}) {
	*fe = append(*fe, FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// translate converts the rule engine's errors into field errors. Anything
// that is not a validation failure is returned as is.
func translate(err error) (FieldErrors, error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, v := range verrs {
		field := fieldPath(v.Namespace())
		switch v.Tag() {
		case "required":
			out.add(field, MissingRequiredField, "%s is required", field)
		case "oneof":
			out.add(field, InvalidEnum, "%s must be one of: %s", field, strings.ReplaceAll(v.Param(), " ", ", "))
		case "datetime":
			out.add(field, InvalidFormat, "%s must be a date formatted as YYYY-MM-DD", field)
		case "gte", "min":
			out.add(field, InvalidNumber, "%s must be at least %s", field, v.Param())
		case "email":
			out.add(field, InvalidFormat, "%s must be a valid email address", field)
		default:
			out.add(field, InvalidFormat, "%s failed the %s rule", field, v.Tag())
		}
	}
	return out, nil
}

// fieldPath drops the struct type name from a namespace such as
// "episodeDraft.slides[0].image_url".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
