package httputil

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/motorlog/motorlog-backend/pkg/errors"
)

var validate = validator.New()

// Validate checks struct tags and converts failures into a field-keyed
// validation error the response writer can render.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		details[fieldErr.Field()] = describeFailure(fieldErr)
	}
	return errors.Validation(details)
}

// describeFailure turns a failed tag into a message the client can act on.
// Size tags read differently for strings and numbers.
func describeFailure(e validator.FieldError) string {
	kind := e.Kind()
	numeric := kind >= reflect.Int && kind <= reflect.Float64

	switch e.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "len":
		return "must be exactly " + e.Param() + " characters"
	case "min":
		if numeric {
			return "must be at least " + e.Param()
		}
		return "must be at least " + e.Param() + " characters"
	case "max":
		if numeric {
			return "must be at most " + e.Param()
		}
		return "must be at most " + e.Param() + " characters"
	default:
		return "invalid value"
	}
}
