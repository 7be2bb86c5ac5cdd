package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/config"
	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// StripeHandler processes Stripe checkout webhooks.
type StripeHandler struct {
	bookings *services.BookingService
	payments services.PaymentProvider
	notifier services.Notifier
	logger   *zap.Logger
}

// NewStripeHandler creates a new Stripe webhook handler. notifier may be nil
// when Twilio is not configured.
func NewStripeHandler(bookings *services.BookingService, payments services.PaymentProvider, notifier services.Notifier) *StripeHandler {
	return &StripeHandler{
		bookings: bookings,
		payments: payments,
		notifier: notifier,
		logger:   utils.GetLogger().Named("stripe"),
	}
}

// HandleWebhook dispatches checkout session events. Processing errors are
// logged and swallowed so Stripe does not retry events we cannot act on, only
// signature failures return a non-2xx status.
func (h *StripeHandler) HandleWebhook(c *fiber.Ctx) error {
	event, ok := c.Locals("stripeEvent").(stripe.Event)
	if !ok {
		// Validation middleware is disabled in dev, construct the event here.
		var err error
		event, err = webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
		if err != nil {
			if config.AppConfig.DisableWebhookValidation || config.GetEnv() == "development" {
				if jsonErr := json.Unmarshal(c.Body(), &event); jsonErr != nil {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid event payload"})
				}
			} else {
				h.logger.Warn("Stripe signature verification failed", zap.Error(err))
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
			}
		}
	}

	var sess stripe.CheckoutSession
	switch event.Type {
	case "checkout.session.completed":
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.logger.Error("Failed to decode checkout session", zap.Error(err))
			break
		}
		h.handleCheckoutComplete(c, &sess)
	case "checkout.session.expired":
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.logger.Error("Failed to decode checkout session", zap.Error(err))
			break
		}
		h.handleCheckoutExpired(&sess)
	default:
		h.logger.Info("Unhandled Stripe event", zap.String("type", string(event.Type)))
	}

	return c.JSON(fiber.Map{"received": true})
}

func (h *StripeHandler) handleCheckoutComplete(c *fiber.Ctx, sess *stripe.CheckoutSession) {
	bookingID := sess.Metadata["bookingId"]
	userNumber := sess.Metadata["userNumber"]
	if bookingID == "" {
		h.logger.Warn("Checkout session without bookingId metadata", zap.String("session", sess.ID))
		return
	}

	payment, err := h.payments.VerifyPayment(c.Context(), sess.ID)
	if err != nil {
		h.logger.Error("Payment verification failed",
			zap.String("bookingId", bookingID),
			zap.Error(err))
		return
	}

	booking, err := h.bookings.ConfirmFromPayment(bookingID, *payment)
	if err != nil {
		h.logger.Error("Failed to confirm booking",
			zap.String("bookingId", bookingID),
			zap.Error(err))
		return
	}

	h.logger.Info("Booking confirmed via Stripe",
		zap.String("bookingId", booking.ID),
		zap.String("paymentId", payment.PaymentID))

	h.notify(userNumber, confirmationMessage(booking.ID, booking.Date, booking.Time))
}

func (h *StripeHandler) handleCheckoutExpired(sess *stripe.CheckoutSession) {
	bookingID := sess.Metadata["bookingId"]
	userNumber := sess.Metadata["userNumber"]
	if bookingID == "" {
		return
	}

	if _, err := h.bookings.CancelFromExpiry(bookingID); err != nil {
		h.logger.Error("Failed to cancel booking after session expiry",
			zap.String("bookingId", bookingID),
			zap.Error(err))
		return
	}

	h.logger.Info("Booking released after payment session expired",
		zap.String("bookingId", bookingID))

	h.notify(userNumber, fmt.Sprintf(
		"Your payment session for booking ID %s has expired. The time slot has been released. Please make a new booking if you still wish to schedule an appointment.",
		bookingID))
}

func (h *StripeHandler) notify(userNumber, message string) {
	if h.notifier == nil || userNumber == "" {
		return
	}
	if err := h.notifier.SendWhatsApp(userNumber, message); err != nil {
		h.logger.Error("Failed to send WhatsApp notification", zap.Error(err))
	}
}

func confirmationMessage(bookingID, date, timeOfDay string) string {
	formatted := date + " " + timeOfDay
	if dt, err := time.Parse("2006-01-02 15:04", formatted); err == nil {
		formatted = dt.Format("Monday, January 2, 2006 at 3:04 PM")
	}
	return fmt.Sprintf(
		"🎉 Your booking is confirmed!\n\nDate and time: %s\n\nBooking ID: %s\n\nThank you for your payment. We look forward to seeing you!",
		formatted, bookingID)
}
