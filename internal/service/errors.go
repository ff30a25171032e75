package service

import (
	"errors"
	"fmt"

	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/repository"
)

var (
	// ErrNoNumbersAvailable means the event's number space is exhausted.
	ErrNoNumbersAvailable = errors.New("no numbers available")

	// ErrNumberTaken means the requested specific number is already claimed.
	ErrNumberTaken = errors.New("number already assigned")

	// ErrNumberOutOfRange means the requested number is not a canonical
	// member of the event's number space.
	ErrNumberOutOfRange = errors.New("number outside the event range")

	// ErrEventNotUsable means the event is not in a state that sells tickets.
	ErrEventNotUsable = errors.New("event is not active")

	// ErrInvalidQuantity means the requested quantity is not positive or
	// exceeds the event's number space.
	ErrInvalidQuantity = errors.New("invalid requested quantity")

	// ErrPaymentMethodDisabled means the payment method exists but is turned
	// off for new purchases.
	ErrPaymentMethodDisabled = errors.New("payment method is disabled")

	ErrEventNotFound         = repository.ErrEventNotFound
	ErrEventPriceNotFound    = repository.ErrEventPriceNotFound
	ErrPaymentMethodNotFound = repository.ErrPaymentMethodNotFound
	ErrPurchaseNotFound      = repository.ErrPurchaseNotFound
	ErrConstraintViolation   = repository.ErrConstraintViolation
)

// ShortfallError aborts a batch whose chunk found fewer available numbers
// than it needed. Chunks committed before the shortfall stay committed.
type ShortfallError struct {
	Requested int
	Committed int
	Available int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("not enough numbers available: requested %d, committed %d before shortfall, only %d remaining",
		e.Requested, e.Committed, e.Available)
}

// Is lets callers treat a shortfall as the exhaustion category.
func (e *ShortfallError) Is(target error) bool {
	return target == ErrNoNumbersAvailable
}

// Terminal reports whether err is a business outcome that must not be
// retried. Everything else (lock contention, transient persistence failures)
// is left to the job framework's retry policy.
func Terminal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, lock.ErrNotAcquired):
		return false
	case errors.Is(err, ErrNoNumbersAvailable),
		errors.Is(err, ErrNumberTaken),
		errors.Is(err, ErrNumberOutOfRange),
		errors.Is(err, ErrEventNotUsable),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrPaymentMethodDisabled),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrEventPriceNotFound),
		errors.Is(err, ErrPaymentMethodNotFound),
		errors.Is(err, ErrPurchaseNotFound),
		errors.Is(err, ErrConstraintViolation):
		return true
	}

	return false
}
