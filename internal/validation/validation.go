// Package validation checks request values against their `validate` struct
// tags with one shared go-playground validator. Every rule violation is
// reported as an *Error, which matches common.ErrInvalidInput.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Error is the first rule a value broke.
type Error struct {
	Field string
	Tag   string
	Param string
}

func (e *Error) Error() string {
	field := e.Field
	if field == "" {
		field = "value"
	}

	switch e.Tag {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, e.Param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "jwt":
		return fmt.Sprintf("%s must be a token", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (e *Error) Unwrap() error {
	return common.ErrInvalidInput
}

func convert(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &Error{Field: first.Field(), Tag: first.Tag(), Param: first.Param()}
	}
	// InvalidValidationError: a caller passed something that is not a struct
	return fmt.Errorf("validation: %w", err)
}

// Struct validates s against its tags.
func Struct(s any) error {
	return convert(validate.Struct(s))
}

// Var validates a single value against tag, e.g. "required,email".
func Var(field any, tag string) error {
	return convert(validate.Var(field, tag))
}
