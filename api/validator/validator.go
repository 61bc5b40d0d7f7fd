package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the underlying validator library behind the narrow
// surface the API handlers use.
type Validator struct {
	cli *validator.Validate
}

// ValidationError describes one failed field check in a request body.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *Validator) formatError(err error) []ValidationError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	errors := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed on the %q rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the %q rule (%s)", fe.Tag(), fe.Param())
		}
		errors = append(errors, ValidationError{
			Field:   fe.StructField(),
			Message: msg,
		})
	}
	return errors
}

// ValidateStruct validates the struct's `validate` tags and returns
// one entry per failed field, or nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks a single value against the given validation tag.
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	if err := v.cli.Var(value, tag); err != nil {
		return v.formatError(err)
	}
	return nil
}

// New initializes and returns a new instance of the Validator.
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}
