package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validation struct {
	validator *validator.Validate
}

func NewValidation() *Validation {
	v := validator.New()
	v.RegisterValidation("category", validateCategory)
	return &Validation{validator: v}
}

func validateCategory(fl validator.FieldLevel) bool {
	return PhotoCategory(fl.Field().String()).Valid()
}

// ValidationError wraps the validator's FieldError
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (v ValidationError) Error() string {
	return fmt.Sprintf("Field '%s': %s", v.Field, v.Message)
}

// ValidationErrors is a slice of ValidationError
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, ve := range v {
		msgs = append(msgs, ve.Error())
	}
	return strings.Join(msgs, "; ")
}

func (v *Validation) Validate(i interface{}) ValidationErrors {
	var errs ValidationErrors

	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}

	for _, ve := range validationErrors {
		errs = append(errs, ValidationError{
			Field:   ve.Field(),
			Message: fmt.Sprintf("failed on the '%s' tag", ve.Tag()),
		})
	}

	return errs
}
