// Package validation wraps go-playground/validator behind a single Validate
// call that yields domain validation errors with readable messages.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "onboard-gateway/pkg/domain-errors"
	s "onboard-gateway/pkg/string"
)

var v = func() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return val
}()

// Validate checks the struct's validate tags and returns a coded validation
// error describing the first failing field.
func Validate(req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	return dErrors.New(dErrors.CodeValidation, message(fieldErrs[0]))
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		name = fe.StructField()
	}
	field := s.ToSnakeCase(name)
	if field == "" {
		return "invalid request body"
	}

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
