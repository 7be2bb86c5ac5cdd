package models

import "fmt"

// BookingField is one of the pieces of information collected from a user
// across conversation turns before a booking can be created.
type BookingField string

const (
	FieldDate      BookingField = "date"
	FieldTime      BookingField = "time"
	FieldUserName  BookingField = "userName"
	FieldUserEmail BookingField = "userEmail"
)

// RequiredFields lists every field needed to create a booking, in the order
// the assistant asks for them.
var RequiredFields = []BookingField{FieldDate, FieldTime, FieldUserName, FieldUserEmail}

// ParseBookingField maps a field name to its BookingField, rejecting
// anything outside the known set.
func ParseBookingField(name string) (BookingField, error) {
	switch BookingField(name) {
	case FieldDate, FieldTime, FieldUserName, FieldUserEmail:
		return BookingField(name), nil
	}
	return "", fmt.Errorf("unknown booking field %q", name)
}
