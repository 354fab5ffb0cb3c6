package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Business failure messages returned inside result values.
const (
	MsgInvoiceNotFound    = "Invoice not found"
	MsgInvoiceAlreadyPaid = "Invoice is already paid"
)

// ValidationError reports malformed input. Field uses the JSON path of the
// offending value, e.g. "line_items[0].unit_price".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

// newValidator shares the gin "binding" tags so requests are checked the
// same way whether they arrive over HTTP or are built in code.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks req against its binding tags and reports the first failure
// as a *ValidationError.
func Validate(req interface{}) error {
	return validateStruct(req)
}

// ValidatorEngine exposes the shared validator so transports can reuse it.
func ValidatorEngine() *validator.Validate {
	return validate
}

func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	return FromBindingError(err)
}

// FromBindingError converts validator failures into a *ValidationError and
// returns any other error unchanged.
func FromBindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "min", "gte":
		msg = "must be at least " + fe.Param()
	default:
		msg = "is invalid"
	}
	return &ValidationError{Field: field, Message: msg}
}
