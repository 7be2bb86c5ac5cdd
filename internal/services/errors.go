package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy surfaced by the booking service. Callers turn these into
// user-facing text; webhook handlers log and swallow them.
var (
	// ErrSlotUnavailable means the requested date/time is no longer free.
	ErrSlotUnavailable = errors.New("this slot is no longer available")

	// ErrBookingNotFound means an operation referenced an unknown booking id.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPaymentLink means the payment provider could not produce a checkout
	// link; the reservation has already been rolled back when it is returned.
	ErrPaymentLink = errors.New("failed to create payment link")
)

// ValidationError reports the required booking fields that are still
// missing or malformed, so the dialogue agent can ask for them again.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required information: %s", strings.Join(e.MissingFields, ", "))
}
