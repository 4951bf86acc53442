package validators

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/go-playground/validator/v10"
)

// validate is shared by the normalizers and the echo adapter. A Validate
// instance is safe for concurrent use once its configuration is done.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CustomValidator plugs the field rules into echo's c.Validate
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed as echo's e.Validator
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validate}
}

// Validate checks a bound request body and reports failures as FieldErrors.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		fe, other := translate(err)
		if other != nil {
			return other
		}
		return fe
	}
	return nil
}

func check(s interface{}) (FieldErrors, error) {
	if err := validate.Struct(s); err != nil {
		return translate(err)
	}
	return nil, nil
}

type numberState int

const (
	numberAbsent numberState = iota // empty or not a number
	numberValid
	numberFractional
)

// parseInt reads an integer field. Whole-valued decimals such as "3.0" are
// accepted.
func parseInt(raw models.RawNumber) (*int, numberState) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, numberAbsent
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, numberValid
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, numberAbsent
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil, numberFractional
	}
	n := int(f)
	return &n, numberValid
}

// softInt applies the "empty means no value" rule: absent and malformed
// input both normalize to nil.
func softInt(errs *FieldErrors, field string, raw models.RawNumber) *int {
	v, state := parseInt(raw)
	if state == numberFractional {
		errs.add(field, InvalidNumber, "%s must be a whole number", field)
	}
	return v
}

// requiredInt rejects absent or malformed input.
func requiredInt(errs *FieldErrors, field string, raw models.RawNumber) *int {
	v, state := parseInt(raw)
	switch state {
	case numberAbsent:
		errs.add(field, MissingRequiredField, "%s is required", field)
	case numberFractional:
		errs.add(field, InvalidNumber, "%s must be a whole number", field)
	}
	return v
}

func optionalText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
