package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/wavelinehq/bookline-backend/config"
)

// ValidateStripeSignature verifies the Stripe-Signature header against the
// webhook signing secret and stashes the parsed event for the handler.
func ValidateStripeSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := config.AppConfig.StripeWebhookSecret
		if secret == "" {
			return c.Status(500).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), secret)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		c.Locals("stripeEvent", event)
		return c.Next()
	}
}
