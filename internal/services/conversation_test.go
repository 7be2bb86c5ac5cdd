package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelinehq/bookline-backend/internal/models"
)

func TestConversationStateAccumulatesFields(t *testing.T) {
	state := NewConversationState()
	user := "+14155551234"

	status := state.SaveField(user, models.FieldDate, "2026-09-10")
	assert.False(t, status.ReadyToBook)
	assert.ElementsMatch(t, []string{"time", "userName", "userEmail"}, status.MissingFields)

	state.SaveField(user, models.FieldTime, "09:00")
	state.SaveField(user, models.FieldUserName, "Jane Doe")
	status = state.SaveField(user, models.FieldUserEmail, "jane@example.com")

	assert.True(t, status.ReadyToBook)
	assert.Empty(t, status.MissingFields)
	assert.Equal(t, "2026-09-10", status.Fields["date"])
	assert.Equal(t, "jane@example.com", status.Fields["userEmail"])
}

func TestConversationStateLastWriteWins(t *testing.T) {
	state := NewConversationState()
	user := "+14155551234"

	state.SaveField(user, models.FieldDate, "2026-09-10")
	status := state.SaveField(user, models.FieldDate, "2026-09-11")

	assert.Equal(t, "2026-09-11", status.Fields["date"])
}

func TestConversationStateUnknownUser(t *testing.T) {
	state := NewConversationState()

	status := state.GetFields("+19990000000")
	assert.False(t, status.ReadyToBook)
	assert.Len(t, status.MissingFields, len(models.RequiredFields))
	assert.Empty(t, status.Fields)
}

func TestConversationStateIsolatesUsers(t *testing.T) {
	state := NewConversationState()

	state.SaveField("+14155551234", models.FieldDate, "2026-09-10")
	other := state.GetFields("+14155555678")

	assert.Empty(t, other.Fields)
}

func TestConversationStateClear(t *testing.T) {
	state := NewConversationState()
	user := "+14155551234"

	state.SaveField(user, models.FieldDate, "2026-09-10")
	state.SaveField(user, models.FieldTime, "09:00")
	state.Clear(user)

	status := state.GetFields(user)
	assert.Empty(t, status.Fields)
	assert.False(t, status.ReadyToBook)
}

func TestParseBookingField(t *testing.T) {
	field, err := models.ParseBookingField("userEmail")
	require.NoError(t, err)
	assert.Equal(t, models.FieldUserEmail, field)

	_, err = models.ParseBookingField("phoneNumber")
	assert.Error(t, err)
}
