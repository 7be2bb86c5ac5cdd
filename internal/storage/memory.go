package storage

import (
	"sync"
	"time"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local development
type MemoryStore struct {
	slots    []*models.Slot
	bookings map[string]*models.Booking

	// Mutexes for thread safety
	slotMu    sync.RWMutex
	bookingMu sync.RWMutex
}

// NewMemoryStore creates an in-memory store seeded with the default slot
// calendar, mirroring what a fresh file store would generate.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithSlots(GenerateDefaultSlots(time.Now()))
}

// NewMemoryStoreWithSlots creates an in-memory store over a fixed slot set.
func NewMemoryStoreWithSlots(slots []*models.Slot) *MemoryStore {
	return &MemoryStore{
		slots:    slots,
		bookings: make(map[string]*models.Booking),
	}
}

// Slot operations

func (m *MemoryStore) GetSlots() ([]*models.Slot, error) {
	m.slotMu.RLock()
	defer m.slotMu.RUnlock()

	slots := make([]*models.Slot, len(m.slots))
	for i, s := range m.slots {
		copied := *s
		slots[i] = &copied
	}
	return slots, nil
}

func (m *MemoryStore) GetAvailableSlots() ([]*models.Slot, error) {
	m.slotMu.RLock()
	defer m.slotMu.RUnlock()

	var slots []*models.Slot
	for _, s := range m.slots {
		if s.Available {
			copied := *s
			slots = append(slots, &copied)
		}
	}
	return slots, nil
}

func (m *MemoryStore) GetSlot(id string) (*models.Slot, error) {
	m.slotMu.RLock()
	defer m.slotMu.RUnlock()

	for _, s := range m.slots {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (m *MemoryStore) SetSlotAvailability(id string, available bool) error {
	m.slotMu.Lock()
	defer m.slotMu.Unlock()

	for _, s := range m.slots {
		if s.ID == id {
			s.Available = available
			return nil
		}
	}
	return nil
}

// Booking operations

func (m *MemoryStore) CreateBooking(slotID string, details models.UserDetails) (*models.Booking, error) {
	slot, err := m.GetSlot(slotID)
	if err != nil {
		return nil, err
	}

	m.bookingMu.Lock()
	defer m.bookingMu.Unlock()

	booking := newPendingBooking(slot, details)
	m.bookings[booking.ID] = booking

	copied := *booking
	return &copied, nil
}

func (m *MemoryStore) GetBooking(id string) (*models.Booking, error) {
	m.bookingMu.RLock()
	defer m.bookingMu.RUnlock()

	booking, exists := m.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *MemoryStore) ConfirmBooking(id string, payment models.PaymentDetails) (*models.Booking, error) {
	m.bookingMu.Lock()
	defer m.bookingMu.Unlock()

	booking, exists := m.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	if err := confirmBooking(booking, payment); err != nil {
		return nil, err
	}
	copied := *booking
	return &copied, nil
}

func (m *MemoryStore) CancelBooking(id string) (*models.Booking, error) {
	m.bookingMu.Lock()
	defer m.bookingMu.Unlock()

	booking, exists := m.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	cancelBooking(booking)
	copied := *booking
	return &copied, nil
}

func (m *MemoryStore) GetBookingsByUser(userNumber string) ([]*models.Booking, error) {
	m.bookingMu.RLock()
	defer m.bookingMu.RUnlock()

	var bookings []*models.Booking
	for _, b := range m.bookings {
		if b.UserDetails.UserNumber == userNumber {
			copied := *b
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}
