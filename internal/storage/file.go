package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

// FileStore persists slots and bookings as human-readable JSON documents:
// an array of slots and a map of bookingId -> booking. Each file is
// rewritten in full on every mutation, so a write that returns without
// error is durable.
type FileStore struct {
	mu sync.Mutex

	slotsPath    string
	bookingsPath string

	slots    []*models.Slot
	bookings map[string]*models.Booking
	loaded   bool

	now func() time.Time
}

// NewFileStore creates a file-backed store rooted at dataDir. State is
// loaded lazily on first access; absent files are seeded with the default
// slot calendar.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		slotsPath:    filepath.Join(dataDir, "availableSlots.json"),
		bookingsPath: filepath.Join(dataDir, "bookings.json"),
		bookings:     make(map[string]*models.Booking),
		now:          time.Now,
	}
}

// load reads both documents, seeding defaults where a file is missing or
// unreadable. Callers must hold mu.
func (f *FileStore) load() error {
	if f.loaded {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.slotsPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := os.ReadFile(f.slotsPath)
	if err != nil || json.Unmarshal(data, &f.slots) != nil {
		f.slots = GenerateDefaultSlots(f.now())
		if err := f.saveSlots(); err != nil {
			return err
		}
	}

	data, err = os.ReadFile(f.bookingsPath)
	if err != nil || json.Unmarshal(data, &f.bookings) != nil {
		f.bookings = make(map[string]*models.Booking)
		if err := f.saveBookings(); err != nil {
			return err
		}
	}

	f.loaded = true
	return nil
}

func (f *FileStore) saveSlots() error {
	data, err := json.MarshalIndent(f.slots, "", "  ")
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	if err := os.WriteFile(f.slotsPath, data, 0o644); err != nil {
		return fmt.Errorf("write slots file: %w", err)
	}
	return nil
}

func (f *FileStore) saveBookings() error {
	data, err := json.MarshalIndent(f.bookings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}
	if err := os.WriteFile(f.bookingsPath, data, 0o644); err != nil {
		return fmt.Errorf("write bookings file: %w", err)
	}
	return nil
}

// Slot operations

func (f *FileStore) GetSlots() ([]*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	slots := make([]*models.Slot, len(f.slots))
	for i, s := range f.slots {
		copied := *s
		slots[i] = &copied
	}
	return slots, nil
}

func (f *FileStore) GetAvailableSlots() ([]*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	var slots []*models.Slot
	for _, s := range f.slots {
		if s.Available {
			copied := *s
			slots = append(slots, &copied)
		}
	}
	return slots, nil
}

func (f *FileStore) GetSlot(id string) (*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	for _, s := range f.slots {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (f *FileStore) SetSlotAvailability(id string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return err
	}

	for _, s := range f.slots {
		if s.ID == id {
			if s.Available == available {
				return nil
			}
			s.Available = available
			return f.saveSlots()
		}
	}
	// Unknown slot ids are ignored; callers check existence via GetSlot.
	return nil
}

// Booking operations

func (f *FileStore) CreateBooking(slotID string, details models.UserDetails) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	var slot *models.Slot
	for _, s := range f.slots {
		if s.ID == slotID {
			slot = s
			break
		}
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	booking := newPendingBooking(slot, details)
	f.bookings[booking.ID] = booking
	if err := f.saveBookings(); err != nil {
		delete(f.bookings, booking.ID)
		return nil, err
	}

	copied := *booking
	return &copied, nil
}

func (f *FileStore) GetBooking(id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	booking, exists := f.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (f *FileStore) ConfirmBooking(id string, payment models.PaymentDetails) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	booking, exists := f.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	if err := confirmBooking(booking, payment); err != nil {
		return nil, err
	}
	if err := f.saveBookings(); err != nil {
		return nil, err
	}

	copied := *booking
	return &copied, nil
}

func (f *FileStore) CancelBooking(id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	booking, exists := f.bookings[id]
	if !exists {
		return nil, ErrBookingNotFound
	}
	cancelBooking(booking)
	if err := f.saveBookings(); err != nil {
		return nil, err
	}

	copied := *booking
	return &copied, nil
}

func (f *FileStore) GetBookingsByUser(userNumber string) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	var bookings []*models.Booking
	for _, b := range f.bookings {
		if b.UserDetails.UserNumber == userNumber {
			copied := *b
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}
