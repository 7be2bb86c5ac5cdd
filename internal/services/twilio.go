package services

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/config"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// Notifier sends outbound chat messages. Sends are best effort; callers
// log failures rather than abort the operation that triggered them.
type Notifier interface {
	SendWhatsApp(to string, message string) error
}

// TwilioService sends WhatsApp messages and fetches inbound media via the
// Twilio API.
type TwilioService struct {
	client     *twilio.RestClient
	http       *resty.Client
	accountSID string
	authToken  string
	from       string // Twilio WhatsApp number, "whatsapp:+14155238886"
	logger     *zap.Logger
}

var twilioService *TwilioService

// SetTwilioService sets the global Twilio service instance
func SetTwilioService(ts *TwilioService) {
	twilioService = ts
}

// GetTwilioService returns the global Twilio service instance
func GetTwilioService() *TwilioService {
	return twilioService
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	cfg := config.AppConfig
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials in configuration")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioService{
		client:     client,
		http:       resty.New().SetTimeout(30 * time.Second),
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.TwilioWhatsAppFrom,
		logger:     utils.GetLogger(),
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.logger.Error("failed to send WhatsApp message", zap.String("to", to), zap.Error(err))
		return err
	}

	t.logger.Info("WhatsApp message sent", zap.String("to", to), zap.Stringp("sid", resp.Sid))
	return nil
}

// SendWhatsApp is an alias for SendWhatsAppMessage
func (t *TwilioService) SendWhatsApp(to string, message string) error {
	return t.SendWhatsAppMessage(to, message)
}

// FetchMedia downloads inbound message media (voice notes) from the
// Twilio-hosted media URL. Returns the raw bytes and content type.
func (t *TwilioService) FetchMedia(mediaURL string) ([]byte, string, error) {
	resp, err := t.http.R().
		SetBasicAuth(t.accountSID, t.authToken).
		Get(mediaURL)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("download media: status %d", resp.StatusCode())
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
