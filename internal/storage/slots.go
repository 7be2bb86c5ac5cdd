package storage

import (
	"fmt"
	"time"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

const (
	defaultSlotDays = 14
	openingHour     = 9  // 09:00 local
	closingHour     = 17 // last slot starts 16:00
)

// GenerateDefaultSlots builds the default two-week calendar: hourly slots
// from 09:00 to 17:00. Hours already past are skipped for the current day,
// and the current day is skipped entirely once the last slot has started.
func GenerateDefaultSlots(now time.Time) []*models.Slot {
	var slots []*models.Slot

	for day := 0; day < defaultSlotDays; day++ {
		if day == 0 && now.Hour() >= closingHour {
			continue
		}

		for hour := openingHour; hour < closingHour; hour++ {
			if day == 0 && hour <= now.Hour() {
				continue
			}

			slotTime := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()).AddDate(0, 0, day)
			slots = append(slots, &models.Slot{
				ID:        slotTime.Format(time.RFC3339),
				Date:      slotTime.Format("2006-01-02"),
				Time:      fmt.Sprintf("%02d:00", hour),
				Available: true,
			})
		}
	}

	return slots
}
