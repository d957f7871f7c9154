package lifecycle

import (
	"errors"
	"fmt"
)

// ErrValidationRejected indica que el candidato tiene resultados de validación que lo
// invalidan y no puede promoverse.
var ErrValidationRejected = errors.New("bundle validation rejected")

// IllegalStateError indica una operación no permitida en el estado actual.
type IllegalStateError struct {
	Op     string
	Reason string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s not allowed: %s", e.Op, e.Reason)
}

func illegal(op, reason string) error {
	return &IllegalStateError{Op: op, Reason: reason}
}

// IsIllegalState reporta si err es un *IllegalStateError.
func IsIllegalState(err error) bool {
	var ise *IllegalStateError
	return errors.As(err, &ise)
}
