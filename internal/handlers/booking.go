package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/storage"
)

// BookingHandler handles booking-related requests
type BookingHandler struct {
	store    storage.Store
	bookings *services.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(store storage.Store, bookings *services.BookingService) *BookingHandler {
	return &BookingHandler{
		store:    store,
		bookings: bookings,
	}
}

// GetAvailability lists the available dates with their open times
func (h *BookingHandler) GetAvailability(c *fiber.Ctx) error {
	dates, err := h.bookings.GetAvailableDates()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load availability",
		})
	}

	return c.JSON(fiber.Map{
		"availableDates": dates,
		"count":          len(dates),
	})
}

// CreateBooking handles creating a new booking with a payment link
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req struct {
		Date       string `json:"date"`
		Time       string `json:"time"`
		UserName   string `json:"userName"`
		UserEmail  string `json:"userEmail"`
		UserNumber string `json:"userNumber"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User number is required",
		})
	}

	booking, paymentURL, err := h.bookings.ReserveAndBook(c.Context(),
		req.Date, req.Time, req.UserName, req.UserEmail, req.UserNumber)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":         vErr.Error(),
				"missingFields": vErr.MissingFields,
			})
		case errors.Is(err, services.ErrSlotUnavailable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "This slot is no longer available",
			})
		case errors.Is(err, services.ErrPaymentLink):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to create payment link. Please try again.",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create booking",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Booking created successfully",
		"booking":    booking,
		"paymentUrl": paymentURL,
	})
}

// GetBooking retrieves booking by ID
func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking ID is required",
		})
	}

	booking, err := h.store.GetBooking(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Booking not found",
		})
	}

	return c.JSON(booking)
}

// GetUserBookings retrieves all bookings for a WhatsApp number
func (h *BookingHandler) GetUserBookings(c *fiber.Ctx) error {
	userNumber := c.Params("userNumber")
	if userNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User number is required",
		})
	}

	bookings, err := h.bookings.GetUserBookings(userNumber)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve bookings",
		})
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// CancelBooking cancels a booking and releases its slot
func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking ID is required",
		})
	}

	booking, err := h.bookings.CancelBooking(id)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Booking not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel booking",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Booking cancelled",
		"booking": booking,
	})
}
