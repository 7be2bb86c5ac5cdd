package storage

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Sentinel errors shared by all store implementations.
var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingCancelled = errors.New("booking is cancelled")
)

// Store defines the interface for storage operations. Slot availability and
// booking records are durably persisted by every mutation before the call
// returns.
type Store interface {
	// Slot operations
	GetSlots() ([]*models.Slot, error)
	GetAvailableSlots() ([]*models.Slot, error)
	GetSlot(id string) (*models.Slot, error)
	// SetSlotAvailability is idempotent; an unknown id is a silent no-op.
	SetSlotAvailability(id string, available bool) error

	// Booking operations
	CreateBooking(slotID string, details models.UserDetails) (*models.Booking, error)
	GetBooking(id string) (*models.Booking, error)
	ConfirmBooking(id string, payment models.PaymentDetails) (*models.Booking, error)
	CancelBooking(id string) (*models.Booking, error)
	GetBookingsByUser(userNumber string) ([]*models.Booking, error)
}

// newBookingID builds a time+random id matching the persisted booking format.
func newBookingID() string {
	return fmt.Sprintf("booking_%d_%d", time.Now().UnixMilli(), rand.Intn(1000))
}

// newPendingBooking assembles a fresh pending_payment record for a slot.
func newPendingBooking(slot *models.Slot, details models.UserDetails) *models.Booking {
	return &models.Booking{
		ID:          newBookingID(),
		SlotID:      slot.ID,
		Date:        slot.Date,
		Time:        slot.Time,
		UserDetails: details,
		Status:      models.BookingStatusPendingPayment,
		CreatedAt:   time.Now(),
	}
}

// confirmBooking applies the confirmed transition in place. Timestamps are
// written once; re-confirming an already confirmed booking re-applies the
// same fields only.
func confirmBooking(b *models.Booking, payment models.PaymentDetails) error {
	if b.Status == models.BookingStatusCancelled {
		return ErrBookingCancelled
	}
	b.Status = models.BookingStatusConfirmed
	b.PaymentDetails = &payment
	if b.ConfirmedAt == nil {
		now := time.Now()
		b.ConfirmedAt = &now
	}
	return nil
}

// cancelBooking applies the cancelled transition in place. Cancelling an
// already cancelled booking leaves it untouched.
func cancelBooking(b *models.Booking) {
	if b.Status == models.BookingStatusCancelled {
		return
	}
	b.Status = models.BookingStatusCancelled
	now := time.Now()
	b.CancelledAt = &now
}
