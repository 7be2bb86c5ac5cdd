package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

// DatabaseStore persists slots and bookings in Postgres via GORM. Semantics
// match the file store; every mutation is committed before returning.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open GORM connection. The slot calendar is
// seeded on first use when the slots table is empty.
func NewDatabaseStore(db *gorm.DB) (*DatabaseStore, error) {
	s := &DatabaseStore{db: db}

	var count int64
	if err := db.Model(&models.Slot{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count slots: %w", err)
	}
	if count == 0 {
		if err := db.Create(GenerateDefaultSlots(time.Now())).Error; err != nil {
			return nil, fmt.Errorf("seed slots: %w", err)
		}
	}
	return s, nil
}

// Slot operations

func (s *DatabaseStore) GetSlots() ([]*models.Slot, error) {
	var slots []*models.Slot
	if err := s.db.Order("date, time").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	return slots, nil
}

func (s *DatabaseStore) GetAvailableSlots() ([]*models.Slot, error) {
	var slots []*models.Slot
	if err := s.db.Where("available = ?", true).Order("date, time").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("load available slots: %w", err)
	}
	return slots, nil
}

func (s *DatabaseStore) GetSlot(id string) (*models.Slot, error) {
	var slot models.Slot
	err := s.db.First(&slot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return &slot, nil
}

func (s *DatabaseStore) SetSlotAvailability(id string, available bool) error {
	// Unknown ids update zero rows, which keeps the no-op contract.
	err := s.db.Model(&models.Slot{}).Where("id = ?", id).Update("available", available).Error
	if err != nil {
		return fmt.Errorf("update slot availability: %w", err)
	}
	return nil
}

// Booking operations

func (s *DatabaseStore) CreateBooking(slotID string, details models.UserDetails) (*models.Booking, error) {
	slot, err := s.GetSlot(slotID)
	if err != nil {
		return nil, err
	}

	booking := newPendingBooking(slot, details)
	if err := s.db.Create(booking).Error; err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return booking, nil
}

func (s *DatabaseStore) GetBooking(id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return &booking, nil
}

// ConfirmBooking runs the read-modify-write inside a transaction with a row
// lock so a concurrent cancel cannot interleave between the read and the
// save. The transition rules live in confirmBooking, shared with the other
// stores.
func (s *DatabaseStore) ConfirmBooking(id string, payment models.PaymentDetails) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if err := confirmBooking(&booking, payment); err != nil {
			return err
		}
		if err := tx.Save(&booking).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelBooking takes the same row lock as ConfirmBooking; the two
// transitions on one booking are serialized by the database.
func (s *DatabaseStore) CancelBooking(id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		cancelBooking(&booking)
		if err := tx.Save(&booking).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *DatabaseStore) GetBookingsByUser(userNumber string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := s.db.Where("user_number = ?", userNumber).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return bookings, nil
}
