package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wavelinehq/bookline-backend/config"
	"github.com/wavelinehq/bookline-backend/internal/handlers"
	"github.com/wavelinehq/bookline-backend/internal/middleware"
)

// Handlers bundles the constructed handlers the router wires up.
type Handlers struct {
	Health   *handlers.HealthHandler
	Booking  *handlers.BookingHandler
	WhatsApp *handlers.WhatsAppHandler
	Stripe   *handlers.StripeHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h *Handlers) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to BookLine Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":         "/health",
				"api":            "/api",
				"whatsapp":       "/webhook/whatsapp",
				"stripe":         "/webhook/stripe",
				"test_whatsapp":  "/test/whatsapp",
				"payment_result": "/payment/success",
			},
		})
	})

	app.Get("/health", h.Health.Check)

	// API routes
	api := app.Group("/api")

	api.Get("/availability", h.Booking.GetAvailability)

	bookings := api.Group("/bookings")
	bookings.Post("/", h.Booking.CreateBooking)
	bookings.Get("/user/:userNumber", h.Booking.GetUserBookings)
	bookings.Get("/:id", h.Booking.GetBooking)
	bookings.Post("/:id/cancel", h.Booking.CancelBooking)

	// Stripe redirects users here after checkout. The webhook drives the
	// actual state change, these pages just close the loop in the browser.
	app.Get("/payment/success", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Payment received! You'll get a WhatsApp confirmation shortly.",
			"bookingId": c.Query("booking_id"),
		})
	})
	app.Get("/payment/cancel", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Payment cancelled. Your slot will be released when the session expires.",
			"bookingId": c.Query("booking_id"),
		})
	})

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// Webhook signature validation is environment-aware so ngrok works in dev
	skipValidation := config.GetEnv() == "development" || config.AppConfig.DisableWebhookValidation
	if skipValidation {
		webhooks.Post("/whatsapp", h.WhatsApp.HandleWebhook)
		webhooks.Post("/stripe", h.Stripe.HandleWebhook)
		if config.GetEnv() == "development" {
			println("⚠️  Webhook signature validation DISABLED for development")
		}
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), h.WhatsApp.HandleWebhook)
		webhooks.Post("/stripe", middleware.ValidateStripeSignature(), h.Stripe.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	app.Post("/test/whatsapp", h.WhatsApp.HandleTestWebhook)
}
