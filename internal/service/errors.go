package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error classes. Every error returned by a service either wraps one of
// these or is an unexpected infrastructure failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// DomainError carries a client-facing message and an optional field name.
// errors.Is matches it against its Class.
type DomainError struct {
	Class   error
	Field   string
	Message string
}

func (e *DomainError) Error() string { return e.Message }
func (e *DomainError) Unwrap() error { return e.Class }

func validationError(field, msg string) *DomainError {
	return &DomainError{Class: ErrValidation, Field: field, Message: msg}
}

func conflictError(msg string) *DomainError {
	return &DomainError{Class: ErrConflict, Message: msg}
}

func notFoundError(msg string) *DomainError {
	return &DomainError{Class: ErrNotFound, Message: msg}
}

// Errors returned by the services.
var (
	ErrCustomerNotFound    = notFoundError("customer not found")
	ErrOrderNotFound       = notFoundError("order not found")
	ErrPaymentNotFound     = notFoundError("payment not found")
	ErrMeasurementNotFound = notFoundError("measurement not found")
	ErrGarmentTypeNotFound = notFoundError("garment type not found")

	ErrDuplicateEmail     = &DomainError{Class: ErrConflict, Field: "email", Message: "a customer with this email already exists"}
	ErrDuplicatePhone     = &DomainError{Class: ErrConflict, Field: "phone", Message: "a customer with this phone already exists"}
	ErrCustomerHasRecords = conflictError("customer has orders, measurements or payments; deactivate instead")
	ErrMeasurementInUse   = conflictError("measurement is referenced by an order")
	ErrOrderInactive      = conflictError("order is inactive")
	ErrPaidBelowZero      = conflictError("payment change would make the paid amount negative")

	ErrOverrideForbidden  = &DomainError{Class: ErrForbidden, Field: "override", Message: "only owners and managers can override status transitions"}
	ErrExceedsBalance     = validationError("amount", "payment exceeds remaining balance")
	ErrTotalBelowPaid     = validationError("total_amount", "total amount cannot be less than the paid amount")
	ErrInvalidAmount      = validationError("amount", "amount must be between 0.01 and 99999999.99")
	ErrInvalidTotalAmount = validationError("total_amount", "total amount must be between 0.01 and 99999999.99")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and reports the first
// failure as a validation-class DomainError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return validationError(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// ValidateRequest applies validate tags to a transport-level request struct.
func ValidateRequest(s interface{}) error {
	return validateStruct(s)
}
