package models

// Slot represents a bookable appointment time slot
type Slot struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM, zero-padded
	Available bool   `json:"available"`
}

// AvailableDate groups the open times of a single calendar date
type AvailableDate struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}
