package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	agent         *services.AgentService
	twilioService *services.TwilioService
	transcriber   services.Transcriber
	logger        *zap.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(agent *services.AgentService, transcriber services.Transcriber) *WhatsAppHandler {
	twilioSvc, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Warning: Twilio service not initialized: %v", err)
		// Continue without Twilio for testing
	}

	return &WhatsAppHandler{
		agent:         agent,
		twilioService: twilioSvc,
		transcriber:   transcriber,
		logger:        utils.GetLogger().Named("whatsapp"),
	}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // WhatsApp number (whatsapp:+14155551234)
	To                  string `form:"To"`   // Your Twilio number
	Body                string `form:"Body"` // Message text
	NumMedia            string `form:"NumMedia"`
	MediaUrl0           string `form:"MediaUrl0"`
	MediaContentType0   string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages. Twilio retries webhooks
// on non-2xx responses, so this always acknowledges with 200 once the payload
// parses.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		h.logger.Error("Failed to parse Twilio webhook", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	if from == "" {
		// Status callback or other non-message event
		return c.SendStatus(fiber.StatusOK)
	}

	text := payload.Body
	if payload.NumMedia != "" && payload.NumMedia != "0" && payload.MediaUrl0 != "" {
		text = h.transcribeVoiceNote(c, payload)
		if text == "" {
			h.reply(from, "Sorry, I couldn't understand that voice note. Could you type your message instead?")
			return c.SendStatus(fiber.StatusOK)
		}
		h.logger.Info("Voice note transcribed",
			zap.String("from", from),
			zap.String("transcript", text))
	}

	if text == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	h.logger.Info("WhatsApp message received", zap.String("from", from))

	response, err := h.agent.ProcessMessage(c.Context(), from, text)
	if err != nil {
		h.logger.Error("Agent failed to process message",
			zap.String("from", from),
			zap.Error(err))
		response = "Sorry, something went wrong. Please try again."
	}

	h.reply(from, response)
	return c.SendStatus(fiber.StatusOK)
}

func (h *WhatsAppHandler) transcribeVoiceNote(c *fiber.Ctx, payload TwilioWebhookPayload) string {
	if h.twilioService == nil || h.transcriber == nil {
		return ""
	}
	audio, contentType, err := h.twilioService.FetchMedia(payload.MediaUrl0)
	if err != nil {
		h.logger.Error("Failed to fetch voice note media", zap.Error(err))
		return ""
	}
	if contentType == "" {
		contentType = payload.MediaContentType0
	}
	transcript, err := h.transcriber.Transcribe(c.Context(), audio, contentType)
	if err != nil {
		h.logger.Error("Voice note transcription failed", zap.Error(err))
		return ""
	}
	return transcript
}

func (h *WhatsAppHandler) reply(to, message string) {
	if message == "" {
		return
	}
	if h.twilioService == nil {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", message)
		return
	}
	if err := h.twilioService.SendWhatsAppMessage(to, message); err != nil {
		log.Printf("❌ Failed to send WhatsApp response: %v", err)
	} else {
		log.Printf("✅ Response sent to %s", to)
	}
}

// For testing without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	response, err := h.agent.ProcessMessage(c.Context(), payload.From, payload.Message)
	if err != nil {
		log.Printf("Error processing message: %v", err)
		response = "Sorry, something went wrong. Please try again."
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": response,
	})
}
