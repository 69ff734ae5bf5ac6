package services

import (
	"errors"

	"tienda/internal/repositories"
)

var (
	ErrNotFound           = repositories.ErrNotFound
	ErrConflict           = repositories.ErrConflict
	ErrEmptyCart          = errors.New("cart is empty")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("operation not permitted")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPaymentInProgress  = errors.New("payment is already being processed")
	ErrPaymentUnavailable = errors.New("payment provider is not configured")
	ErrOrderInsert        = errors.New("order insert failed")
	ErrItemsInsert        = errors.New("items insert failed")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func invalidField(field, message string) error {
	return &ValidationError{Message: field + " " + message, Fields: map[string]string{field: message}}
}
