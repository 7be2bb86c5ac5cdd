package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/storage"
)

type stubPayments struct {
	fail bool
}

func (s *stubPayments) CreatePaymentLink(_ context.Context, booking *models.Booking) (*services.PaymentLink, error) {
	if s.fail {
		return nil, errors.New("stripe unavailable")
	}
	return &services.PaymentLink{URL: "https://pay.test/" + booking.ID, SessionID: "cs_test"}, nil
}

func (s *stubPayments) VerifyPayment(_ context.Context, sessionID string) (*models.PaymentDetails, error) {
	return &models.PaymentDetails{PaymentID: "pi_" + sessionID, PaymentStatus: "paid"}, nil
}

func newTestApp(failPayments bool) (*fiber.App, storage.Store) {
	store := storage.NewMemoryStoreWithSlots([]*models.Slot{
		{ID: "2026-09-10T09:00:00Z", Date: "2026-09-10", Time: "09:00", Available: true},
		{ID: "2026-09-10T10:00:00Z", Date: "2026-09-10", Time: "10:00", Available: true},
	})
	bookings := services.NewBookingService(store, &stubPayments{fail: failPayments})
	h := NewBookingHandler(store, bookings)

	app := fiber.New()
	app.Get("/api/availability", h.GetAvailability)
	app.Post("/api/bookings", h.CreateBooking)
	app.Get("/api/bookings/user/:userNumber", h.GetUserBookings)
	app.Get("/api/bookings/:id", h.GetBooking)
	app.Post("/api/bookings/:id/cancel", h.CancelBooking)
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestGetAvailability(t *testing.T) {
	app, _ := newTestApp(false)

	req := httptest.NewRequest(http.MethodGet, "/api/availability", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])
}

func TestCreateBookingEndpoint(t *testing.T) {
	app, store := newTestApp(false)

	resp := postJSON(t, app, "/api/bookings", map[string]string{
		"date":       "2026-09-10",
		"time":       "9:00",
		"userName":   "Jane Doe",
		"userEmail":  "jane@example.com",
		"userNumber": "+14155551234",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	booking := body["booking"].(map[string]any)
	assert.Equal(t, models.BookingStatusPendingPayment, booking["status"])
	assert.Equal(t, "09:00", booking["time"])
	assert.Contains(t, body["paymentUrl"], "https://pay.test/")

	slot, err := store.GetSlot("2026-09-10T09:00:00Z")
	require.NoError(t, err)
	assert.False(t, slot.Available)
}

func TestCreateBookingMissingFields(t *testing.T) {
	app, _ := newTestApp(false)

	resp := postJSON(t, app, "/api/bookings", map[string]string{
		"date":       "2026-09-10",
		"time":       "09:00",
		"userNumber": "+14155551234",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["missingFields"], "userName")
	assert.Contains(t, body["missingFields"], "userEmail")
}

func TestCreateBookingConflict(t *testing.T) {
	app, _ := newTestApp(false)

	payload := map[string]string{
		"date":       "2026-09-10",
		"time":       "09:00",
		"userName":   "Jane Doe",
		"userEmail":  "jane@example.com",
		"userNumber": "+14155551234",
	}
	resp := postJSON(t, app, "/api/bookings", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/bookings", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateBookingPaymentFailure(t *testing.T) {
	app, store := newTestApp(true)

	resp := postJSON(t, app, "/api/bookings", map[string]string{
		"date":       "2026-09-10",
		"time":       "09:00",
		"userName":   "Jane Doe",
		"userEmail":  "jane@example.com",
		"userNumber": "+14155551234",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// The slot must be free again after the rollback.
	slot, err := store.GetSlot("2026-09-10T09:00:00Z")
	require.NoError(t, err)
	assert.True(t, slot.Available)
}

func TestCancelBookingEndpoint(t *testing.T) {
	app, store := newTestApp(false)

	resp := postJSON(t, app, "/api/bookings", map[string]string{
		"date":       "2026-09-10",
		"time":       "09:00",
		"userName":   "Jane Doe",
		"userEmail":  "jane@example.com",
		"userNumber": "+14155551234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	bookingID := body["booking"].(map[string]any)["id"].(string)

	resp = postJSON(t, app, "/api/bookings/"+bookingID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	slot, err := store.GetSlot("2026-09-10T09:00:00Z")
	require.NoError(t, err)
	assert.True(t, slot.Available)

	resp = postJSON(t, app, "/api/bookings/unknown/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserBookingsEndpoint(t *testing.T) {
	app, _ := newTestApp(false)

	resp := postJSON(t, app, "/api/bookings", map[string]string{
		"date":       "2026-09-10",
		"time":       "09:00",
		"userName":   "Jane Doe",
		"userEmail":  "jane@example.com",
		"userNumber": "14155551234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/user/14155551234", nil)
	resp2, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	body := decodeBody(t, resp2)
	assert.Equal(t, float64(1), body["count"])
}
