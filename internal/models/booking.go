package models

import "time"

// Booking represents a customer's claim on a slot, confirmed once payment clears
type Booking struct {
	ID     string `json:"id" gorm:"primaryKey"`
	SlotID string `json:"slotId"`

	// Denormalized copy of the slot's date/time at creation
	Date string `json:"date"`
	Time string `json:"time"`

	UserDetails UserDetails `json:"userDetails" gorm:"embedded"`

	// Status lifecycle: pending_payment -> confirmed | cancelled,
	// confirmed -> cancelled. Cancelled is terminal.
	Status string `json:"status"`

	// Attached on transition to confirmed
	PaymentDetails *PaymentDetails `json:"paymentDetails,omitempty" gorm:"serializer:json"`

	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// UserDetails identifies the customer behind a booking. Immutable once set.
type UserDetails struct {
	UserName   string `json:"userName"`
	UserEmail  string `json:"userEmail"`
	UserNumber string `json:"userNumber"`
}

// PaymentDetails records the verified payment that confirmed a booking
type PaymentDetails struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentID     string  `json:"paymentId"`
	PaymentStatus string  `json:"paymentStatus"`
	PaidAt        string  `json:"paidAt"`
}

// BookingStatus constants
const (
	BookingStatusPendingPayment = "pending_payment"
	BookingStatusConfirmed      = "confirmed"
	BookingStatusCancelled      = "cancelled"
)
