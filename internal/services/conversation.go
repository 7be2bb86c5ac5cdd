package services

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

// FieldStatus is a snapshot of a user's accumulated booking fields.
type FieldStatus struct {
	Fields        map[string]string `json:"fields"`
	MissingFields []string          `json:"missingFields"`
	ReadyToBook   bool              `json:"readyToBook"`
}

// ConversationState accumulates booking fields per user across dialogue
// turns, since the agent receives one message at a time. Entries live for
// the process lifetime; there is no TTL, so abandoned conversations are
// never evicted. A production deployment should add one.
type ConversationState struct {
	mu    sync.RWMutex
	users map[string]map[models.BookingField]string

	logger *zap.Logger
}

// Singleton instance
var (
	conversationStateInstance *ConversationState
	conversationStateOnce     sync.Once
)

// NewConversationState creates an empty per-user field accumulator.
func NewConversationState() *ConversationState {
	return &ConversationState{
		users:  make(map[string]map[models.BookingField]string),
		logger: utils.GetLogger(),
	}
}

// GetConversationState returns the singleton accumulator instance.
func GetConversationState() *ConversationState {
	conversationStateOnce.Do(func() {
		if conversationStateInstance == nil {
			conversationStateInstance = NewConversationState()
		}
	})
	return conversationStateInstance
}

// SetConversationState sets the global accumulator (call from main.go)
func SetConversationState(cs *ConversationState) {
	conversationStateInstance = cs
}

// SaveField upserts one field for a user and reports what is still
// missing. Duplicate writes are last-write-wins per field.
func (c *ConversationState) SaveField(userNumber string, field models.BookingField, value string) *FieldStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	fields, exists := c.users[userNumber]
	if !exists {
		fields = make(map[models.BookingField]string)
		c.users[userNumber] = fields
	}
	fields[field] = value

	c.logger.Debug("saved booking field",
		zap.String("userNumber", userNumber),
		zap.String("field", string(field)))

	return statusFor(fields)
}

// GetFields returns the current snapshot for a user. An unknown user gets
// an all-missing status, not an error.
func (c *ConversationState) GetFields(userNumber string) *FieldStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return statusFor(c.users[userNumber])
}

// Clear removes every accumulated field for a user, after a completed
// booking or an explicit restart.
func (c *ConversationState) Clear(userNumber string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.users, userNumber)
}

func statusFor(fields map[models.BookingField]string) *FieldStatus {
	status := &FieldStatus{Fields: make(map[string]string)}
	for field, value := range fields {
		status.Fields[string(field)] = value
	}
	for _, field := range models.RequiredFields {
		if fields[field] == "" {
			status.MissingFields = append(status.MissingFields, string(field))
		}
	}
	status.ReadyToBook = len(status.MissingFields) == 0
	return status
}
