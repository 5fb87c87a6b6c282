package common

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// report form field names rather than Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})
	}
}

// FieldError is a validation failure detected by a handler after binding,
// e.g. a duplicate username.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldErrors maps a binding/validation error to form field messages.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}

	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		out[fieldErr.Field] = fieldErr.Message
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["__all__"] = "invalid form data"
		return out
	}

	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "email":
		return "enter a valid email address"
	case "eqfield":
		return "the two password fields didn't match"
	default:
		return "invalid value"
	}
}
