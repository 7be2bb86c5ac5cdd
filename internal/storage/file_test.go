package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store := NewFileStore(t.TempDir())
	store.now = func() time.Time {
		return time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)
	}
	return store
}

func testDetails() models.UserDetails {
	return models.UserDetails{
		UserName:   "Jane Doe",
		UserEmail:  "jane@example.com",
		UserNumber: "+14155551234",
	}
}

func TestFileStoreSeedsDefaultCalendar(t *testing.T) {
	store := newTestFileStore(t)

	slots, err := store.GetSlots()
	require.NoError(t, err)
	require.Len(t, slots, 14*8)

	// Seeding writes both documents to disk.
	_, err = os.Stat(store.slotsPath)
	require.NoError(t, err)
	_, err = os.Stat(store.bookingsPath)
	require.NoError(t, err)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	slots, err := store.GetAvailableSlots()
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	slotID := slots[0].ID

	booking, err := store.CreateBooking(slotID, testDetails())
	require.NoError(t, err)
	require.NoError(t, store.SetSlotAvailability(slotID, false))

	// A fresh store over the same directory sees the same state.
	reopened := NewFileStore(dir)

	slot, err := reopened.GetSlot(slotID)
	require.NoError(t, err)
	assert.False(t, slot.Available)

	got, err := reopened.GetBooking(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)
	assert.Equal(t, models.BookingStatusPendingPayment, got.Status)
	assert.Equal(t, "jane@example.com", got.UserDetails.UserEmail)
}

func TestFileStoreSetSlotAvailabilityUnknownIDIsNoOp(t *testing.T) {
	store := newTestFileStore(t)

	require.NoError(t, store.SetSlotAvailability("no-such-slot", false))

	_, err := store.GetSlot("no-such-slot")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestFileStoreConfirmBooking(t *testing.T) {
	store := newTestFileStore(t)

	slots, err := store.GetAvailableSlots()
	require.NoError(t, err)
	booking, err := store.CreateBooking(slots[0].ID, testDetails())
	require.NoError(t, err)
	assert.Nil(t, booking.ConfirmedAt)

	payment := models.PaymentDetails{
		Amount:        50,
		Currency:      "usd",
		PaymentID:     "pi_123",
		PaymentStatus: "paid",
		PaidAt:        "2026-09-01T10:00:00Z",
	}

	confirmed, err := store.ConfirmBooking(booking.ID, payment)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.NotNil(t, confirmed.PaymentDetails)
	assert.Equal(t, "pi_123", confirmed.PaymentDetails.PaymentID)

	// Re-confirming keeps the original timestamp.
	again, err := store.ConfirmBooking(booking.ID, payment)
	require.NoError(t, err)
	assert.Equal(t, confirmed.ConfirmedAt, again.ConfirmedAt)
}

func TestFileStoreConfirmCancelledBookingFails(t *testing.T) {
	store := newTestFileStore(t)

	slots, err := store.GetAvailableSlots()
	require.NoError(t, err)
	booking, err := store.CreateBooking(slots[0].ID, testDetails())
	require.NoError(t, err)

	_, err = store.CancelBooking(booking.ID)
	require.NoError(t, err)

	_, err = store.ConfirmBooking(booking.ID, models.PaymentDetails{PaymentID: "pi_123"})
	assert.ErrorIs(t, err, ErrBookingCancelled)
}

func TestFileStoreCancelIsIdempotent(t *testing.T) {
	store := newTestFileStore(t)

	slots, err := store.GetAvailableSlots()
	require.NoError(t, err)
	booking, err := store.CreateBooking(slots[0].ID, testDetails())
	require.NoError(t, err)

	first, err := store.CancelBooking(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, first.Status)
	require.NotNil(t, first.CancelledAt)

	second, err := store.CancelBooking(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CancelledAt, second.CancelledAt)
}

func TestFileStoreGetBookingsByUser(t *testing.T) {
	store := newTestFileStore(t)

	slots, err := store.GetAvailableSlots()
	require.NoError(t, err)
	require.True(t, len(slots) >= 2)

	_, err = store.CreateBooking(slots[0].ID, testDetails())
	require.NoError(t, err)
	other := testDetails()
	other.UserNumber = "+14155559999"
	_, err = store.CreateBooking(slots[1].ID, other)
	require.NoError(t, err)

	bookings, err := store.GetBookingsByUser("+14155551234")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, slots[0].ID, bookings[0].SlotID)

	none, err := store.GetBookingsByUser("+10000000000")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileStoreSurvivesCorruptSlotsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "availableSlots.json"), []byte("{not json"), 0o644))

	store := NewFileStore(dir)
	slots, err := store.GetSlots()
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
}
