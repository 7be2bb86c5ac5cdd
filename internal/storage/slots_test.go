package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDefaultSlots(t *testing.T) {
	// Early morning: the current day gets the full calendar.
	now := time.Date(2026, 9, 1, 7, 30, 0, 0, time.UTC)
	slots := GenerateDefaultSlots(now)

	require.Len(t, slots, 14*8)
	assert.Equal(t, "2026-09-01", slots[0].Date)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "16:00", slots[7].Time)
	assert.True(t, slots[0].Available)

	// Slot ids are the RFC3339 timestamp of the slot start.
	parsed, err := time.Parse(time.RFC3339, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 9, parsed.Hour())
}

func TestGenerateDefaultSlotsSkipsPastHours(t *testing.T) {
	// 11:15 means the 09:00, 10:00 and the in-progress 11:00 slots are gone.
	now := time.Date(2026, 9, 1, 11, 15, 0, 0, time.UTC)
	slots := GenerateDefaultSlots(now)

	require.NotEmpty(t, slots)
	assert.Equal(t, "2026-09-01", slots[0].Date)
	assert.Equal(t, "12:00", slots[0].Time)
	assert.Len(t, slots, 13*8+5)
}

func TestGenerateDefaultSlotsSkipsTodayAfterClose(t *testing.T) {
	now := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	slots := GenerateDefaultSlots(now)

	require.NotEmpty(t, slots)
	assert.Equal(t, "2026-09-02", slots[0].Date)
	assert.Len(t, slots, 13*8)
}
