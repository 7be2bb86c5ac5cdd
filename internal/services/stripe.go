package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// paymentLinkTTL is how long a checkout link stays payable. Expiry is
// enforced by Stripe, which reports it back through the webhook.
const paymentLinkTTL = 30 * time.Minute

// StripeService creates hosted checkout sessions for bookings and verifies
// completed payments. stripe.Key must be set before use (done in main.go).
type StripeService struct {
	baseURL  string
	price    int64 // whole currency units per appointment
	currency string
	logger   *zap.Logger
}

// NewStripeService creates the Stripe payment provider.
func NewStripeService(baseURL string, price int64, currency string) *StripeService {
	return &StripeService{
		baseURL:  baseURL,
		price:    price,
		currency: currency,
		logger:   utils.GetLogger(),
	}
}

// CreatePaymentLink opens a checkout session for a pending booking and
// returns its hosted payment URL. The booking id travels as the client
// reference and in the session metadata so the webhook can find it.
func (s *StripeService) CreatePaymentLink(ctx context.Context, booking *models.Booking) (*PaymentLink, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Appointment Booking"),
						Description: stripe.String(fmt.Sprintf("Booking for %s", formatBookingTime(booking))),
					},
					UnitAmount: stripe.Int64(s.price * 100), // price in cents
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/payment/success?session_id={CHECKOUT_SESSION_ID}&booking_id=%s", s.baseURL, booking.ID)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/payment/cancel?booking_id=%s", s.baseURL, booking.ID)),
		ClientReferenceID: stripe.String(booking.ID),
		CustomerEmail:     stripe.String(booking.UserDetails.UserEmail),
		ExpiresAt:         stripe.Int64(time.Now().Add(paymentLinkTTL).Unix()),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	params.AddMetadata("bookingId", booking.ID)
	params.AddMetadata("userNumber", booking.UserDetails.UserNumber)
	params.AddMetadata("userName", booking.UserDetails.UserName)
	params.AddMetadata("bookingDate", booking.Date)
	params.AddMetadata("bookingTime", booking.Time)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.logger.Info("payment link created",
		zap.String("bookingId", booking.ID),
		zap.String("sessionId", sess.ID))

	return &PaymentLink{URL: sess.URL, SessionID: sess.ID}, nil
}

// VerifyPayment re-fetches a checkout session and returns the payment
// details only when Stripe reports it paid.
func (s *StripeService) VerifyPayment(ctx context.Context, sessionID string) (*models.PaymentDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, fmt.Errorf("payment not completed, status: %s", sess.PaymentStatus)
	}

	details := &models.PaymentDetails{
		Amount:        float64(sess.AmountTotal) / 100,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		PaidAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if sess.PaymentIntent != nil {
		details.PaymentID = sess.PaymentIntent.ID
	}
	return details, nil
}

// formatBookingTime renders the slot date/time for the checkout page.
func formatBookingTime(booking *models.Booking) string {
	t, err := time.Parse("2006-01-02 15:04", booking.Date+" "+booking.Time)
	if err != nil {
		return booking.Date + " " + booking.Time
	}
	return t.Format("Monday, January 2, 2006 at 3:04 PM")
}
