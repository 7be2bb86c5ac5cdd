package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/storage"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// PaymentLink is a hosted checkout page for a pending booking.
type PaymentLink struct {
	URL       string
	SessionID string
}

// PaymentProvider creates and verifies hosted payment sessions.
type PaymentProvider interface {
	CreatePaymentLink(ctx context.Context, booking *models.Booking) (*PaymentLink, error)
	VerifyPayment(ctx context.Context, sessionID string) (*models.PaymentDetails, error)
}

// BookingService orchestrates slot reservation, booking creation,
// confirmation and cancellation. It is the only component allowed to flip
// slot availability, which keeps the slot/booking invariant in one place:
// a slot is unavailable iff some non-cancelled booking holds it.
type BookingService struct {
	store    storage.Store
	payments PaymentProvider
	logger   *zap.Logger

	// Per-slot locks serialize the check-then-flip on a slot so two
	// concurrent reservations for the same slot cannot both succeed.
	// Entries are never removed: the map holds one mutex per slot id ever
	// reserved, growing with the rolling calendar over the process
	// lifetime. Same known gap as the conversation-state TTL.
	lockMu    sync.Mutex
	slotLocks map[string]*sync.Mutex
}

// NewBookingService creates the booking lifecycle manager.
func NewBookingService(store storage.Store, payments PaymentProvider) *BookingService {
	return &BookingService{
		store:     store,
		payments:  payments,
		logger:    utils.GetLogger(),
		slotLocks: make(map[string]*sync.Mutex),
	}
}

func (s *BookingService) slotLock(slotID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, exists := s.slotLocks[slotID]
	if !exists {
		lock = &sync.Mutex{}
		s.slotLocks[slotID] = lock
	}
	return lock
}

// NormalizeDate canonicalizes a calendar date to YYYY-MM-DD. Chat apps may
// deliver un-padded parts ("2024-1-5"), which string matching would miss.
// The "2006-1-2" layout accepts both padded and un-padded input.
func NormalizeDate(value string) (string, error) {
	t, err := time.Parse("2006-1-2", value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t.Format("2006-01-02"), nil
}

// NormalizeTime canonicalizes an hour:minute string to zero-padded HH:MM,
// so "9:00" matches the "09:00" slot.
func NormalizeTime(value string) (string, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", value, err)
	}
	return t.Format("15:04"), nil
}

// GetAvailableDates returns the open slots grouped by date, in store order,
// dates in order of first occurrence.
func (s *BookingService) GetAvailableDates() ([]*models.AvailableDate, error) {
	slots, err := s.store.GetAvailableSlots()
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	index := make(map[string]int)
	var dates []*models.AvailableDate
	for _, slot := range slots {
		i, exists := index[slot.Date]
		if !exists {
			i = len(dates)
			index[slot.Date] = i
			dates = append(dates, &models.AvailableDate{Date: slot.Date})
		}
		dates[i].Times = append(dates[i].Times, slot.Time)
	}
	return dates, nil
}

// ReserveAndBook reserves the slot matching (date, time) and creates a
// pending booking with a payment link. Exactly one of two concurrent calls
// for the same slot succeeds; the other gets ErrSlotUnavailable. If the
// payment link cannot be created the reservation is compensated: the
// booking is cancelled and the slot released.
func (s *BookingService) ReserveAndBook(ctx context.Context, date, timeOfDay, userName, userEmail, userNumber string) (*models.Booking, string, error) {
	var missing []string
	if userName == "" {
		missing = append(missing, string(models.FieldUserName))
	}
	if userEmail == "" {
		missing = append(missing, string(models.FieldUserEmail))
	}

	date, dateErr := NormalizeDate(date)
	if dateErr != nil {
		missing = append(missing, string(models.FieldDate))
	}
	timeOfDay, timeErr := NormalizeTime(timeOfDay)
	if timeErr != nil {
		missing = append(missing, string(models.FieldTime))
	}
	if len(missing) > 0 {
		return nil, "", &ValidationError{MissingFields: missing}
	}

	slot, err := s.findAvailableSlot(date, timeOfDay)
	if err != nil {
		return nil, "", err
	}

	booking, err := s.reserveSlot(slot.ID, models.UserDetails{
		UserName:   userName,
		UserEmail:  userEmail,
		UserNumber: userNumber,
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("slot reserved",
		zap.String("bookingId", booking.ID),
		zap.String("slotId", slot.ID),
		zap.String("userNumber", userNumber))

	// The slot lock is not held here: the booking owns the slot, and the
	// compensation below re-acquires the lock to release it.
	link, err := s.payments.CreatePaymentLink(ctx, booking)
	if err != nil {
		s.logger.Warn("payment link creation failed, cancelling booking",
			zap.String("bookingId", booking.ID), zap.Error(err))
		if _, cancelErr := s.releaseAndCancel(booking.ID); cancelErr != nil {
			s.logger.Error("compensating cancellation failed",
				zap.String("bookingId", booking.ID), zap.Error(cancelErr))
		}
		return nil, "", fmt.Errorf("%w: %v", ErrPaymentLink, err)
	}

	return booking, link.URL, nil
}

// reserveSlot performs the check-then-flip and booking write under the
// per-slot lock, released before returning so the caller can take the
// compensation path without re-entering it.
func (s *BookingService) reserveSlot(slotID string, details models.UserDetails) (*models.Booking, error) {
	lock := s.slotLock(slotID)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock; another reservation may have won the race.
	current, err := s.store.GetSlot(slotID)
	if err != nil || !current.Available {
		return nil, ErrSlotUnavailable
	}

	if err := s.store.SetSlotAvailability(slotID, false); err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	booking, err := s.store.CreateBooking(slotID, details)
	if err != nil {
		// Booking write failed after the flip; release the slot.
		if restoreErr := s.store.SetSlotAvailability(slotID, true); restoreErr != nil {
			s.logger.Error("failed to release slot after booking write failure",
				zap.String("slotId", slotID), zap.Error(restoreErr))
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return booking, nil
}

func (s *BookingService) findAvailableSlot(date, timeOfDay string) (*models.Slot, error) {
	slots, err := s.store.GetAvailableSlots()
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	for _, slot := range slots {
		if slot.Date == date && slot.Time == timeOfDay {
			return slot, nil
		}
	}
	return nil, ErrSlotUnavailable
}

// ConfirmFromPayment marks a booking confirmed with the verified payment
// details. The caller (payment webhook) has already verified the payment;
// it is not re-validated here. Confirming twice re-applies the same fields.
func (s *BookingService) ConfirmFromPayment(bookingID string, payment models.PaymentDetails) (*models.Booking, error) {
	booking, err := s.store.ConfirmBooking(bookingID, payment)
	if errors.Is(err, storage.ErrBookingNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed",
		zap.String("bookingId", booking.ID),
		zap.String("paymentId", payment.PaymentID))
	return booking, nil
}

// CancelFromExpiry releases a booking whose payment session expired.
func (s *BookingService) CancelFromExpiry(bookingID string) (*models.Booking, error) {
	return s.releaseAndCancel(bookingID)
}

// CancelBooking cancels a booking and frees its slot. Works for both
// pending and confirmed bookings; cancelling again is a no-op.
func (s *BookingService) CancelBooking(bookingID string) (*models.Booking, error) {
	return s.releaseAndCancel(bookingID)
}

// releaseAndCancel restores the slot's availability before marking the
// booking cancelled. Serialized against ReserveAndBook on the same slot.
func (s *BookingService) releaseAndCancel(bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(bookingID)
	if errors.Is(err, storage.ErrBookingNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	lock := s.slotLock(booking.SlotID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.SetSlotAvailability(booking.SlotID, true); err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}

	booking, err = s.store.CancelBooking(bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("bookingId", booking.ID),
		zap.String("slotId", booking.SlotID))
	return booking, nil
}

// GetUserBookings lists every booking made from a WhatsApp number.
func (s *BookingService) GetUserBookings(userNumber string) ([]*models.Booking, error) {
	bookings, err := s.store.GetBookingsByUser(userNumber)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return bookings, nil
}
