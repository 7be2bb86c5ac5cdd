package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelinehq/bookline-backend/config"
	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/storage"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) SendWhatsApp(_, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingNotifier) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

func newStripeTestApp(t *testing.T) (*fiber.App, *services.BookingService, storage.Store, *recordingNotifier) {
	t.Helper()

	// Signature validation is covered by the middleware; these tests post
	// bare events the way a dev-mode deployment receives them.
	prev := config.AppConfig.DisableWebhookValidation
	config.AppConfig.DisableWebhookValidation = true
	t.Cleanup(func() { config.AppConfig.DisableWebhookValidation = prev })

	store := storage.NewMemoryStoreWithSlots([]*models.Slot{
		{ID: "2026-09-10T09:00:00Z", Date: "2026-09-10", Time: "09:00", Available: true},
	})
	payments := &stubPayments{}
	bookings := services.NewBookingService(store, payments)
	notifier := &recordingNotifier{}
	h := NewStripeHandler(bookings, payments, notifier)

	app := fiber.New()
	app.Post("/webhook/stripe", h.HandleWebhook)
	return app, bookings, store, notifier
}

func postStripeEvent(t *testing.T, app *fiber.App, eventType string, object map[string]any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": map[string]any{"object": object},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestStripeWebhookCheckoutCompleted(t *testing.T) {
	app, bookings, store, notifier := newStripeTestApp(t)

	booking, _, err := bookings.ReserveAndBook(context.Background(),
		"2026-09-10", "09:00", "Jane Doe", "jane@example.com", "+14155551234")
	require.NoError(t, err)

	resp := postStripeEvent(t, app, "checkout.session.completed", map[string]any{
		"id": "cs_test",
		"metadata": map[string]string{
			"bookingId":  booking.ID,
			"userNumber": "+14155551234",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.GetBooking(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	require.NotNil(t, got.PaymentDetails)
	assert.Equal(t, "pi_cs_test", got.PaymentDetails.PaymentID)

	assert.Contains(t, notifier.last(), "confirmed")
	assert.Contains(t, notifier.last(), booking.ID)
}

func TestStripeWebhookCheckoutExpired(t *testing.T) {
	app, bookings, store, notifier := newStripeTestApp(t)

	booking, _, err := bookings.ReserveAndBook(context.Background(),
		"2026-09-10", "09:00", "Jane Doe", "jane@example.com", "+14155551234")
	require.NoError(t, err)

	resp := postStripeEvent(t, app, "checkout.session.expired", map[string]any{
		"id": "cs_test",
		"metadata": map[string]string{
			"bookingId":  booking.ID,
			"userNumber": "+14155551234",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.GetBooking(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	// The slot is free for rebooking.
	slot, err := store.GetSlot(booking.SlotID)
	require.NoError(t, err)
	assert.True(t, slot.Available)

	assert.Contains(t, notifier.last(), "expired")
}

func TestStripeWebhookSwallowsProcessingErrors(t *testing.T) {
	app, _, _, notifier := newStripeTestApp(t)

	// Unknown booking id: the handler logs and still acknowledges, so
	// Stripe does not retry an event we can never act on.
	resp := postStripeEvent(t, app, "checkout.session.completed", map[string]any{
		"id": "cs_test",
		"metadata": map[string]string{
			"bookingId":  "booking_missing",
			"userNumber": "+14155551234",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, notifier.last())
}

func TestStripeWebhookIgnoresUnhandledEvents(t *testing.T) {
	app, _, _, _ := newStripeTestApp(t)

	resp := postStripeEvent(t, app, "payment_intent.created", map[string]any{"id": "pi_test"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
