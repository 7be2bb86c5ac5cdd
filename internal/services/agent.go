package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

const agentModelName = "gemini-1.5-pro"

// maxToolRounds bounds the tool-call loop for a single incoming message so a
// confused model cannot spin forever.
const maxToolRounds = 5

const agentInstructions = `You are BookLine, an AI booking assistant that helps users book appointments through WhatsApp.

CONTEXT MANAGEMENT:
- Check what information you already have with getUserInfo at the start of every conversation turn
- Save every piece of information the user provides with saveUserInfo immediately when received
- Users often spread their details across multiple messages, so context must be maintained

BOOKING WORKFLOW:
1. Always check existing information first with getUserInfo
2. Use getAvailableDates to show available slots when needed
3. When the user picks a date or time, save it immediately with saveUserInfo
4. When the user provides their name or email, save it immediately with saveUserInfo
5. Once all required information is collected, summarize the details and ask for confirmation
6. Only after an explicit confirmation ("yes", "confirm", "book it"), call createBooking
7. Share the payment link immediately after a successful booking

REQUIRED INFORMATION:
1. Date (YYYY-MM-DD)
2. Time (HH:MM)
3. Full name
4. Email address
The user's WhatsApp number is provided automatically, never ask for it.

MESSAGE PARSING:
- A message may contain several pieces of information at once, save each of them
- Text containing an @ is an email, text without one that looks like a name is the userName
- Do not ask again for information you already have
- If the user wants to start over, call clearUserInfo

Each appointment costs a fixed fee which is collected through the payment link.
Keep replies short and friendly, this is a WhatsApp chat.`

// AgentService drives the conversational booking flow with Gemini function
// calling. One chat session is kept per WhatsApp number.
type AgentService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	bookings *BookingService
	state    *ConversationState
	logger   *zap.Logger

	mu    sync.Mutex
	chats map[string]*genai.ChatSession
}

// NewAgentService creates the Gemini client and configures the booking tools.
func NewAgentService(ctx context.Context, apiKey string, bookings *BookingService, state *ConversationState) (*AgentService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(agentModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(agentInstructions)},
	}
	model.Tools = []*genai.Tool{{FunctionDeclarations: bookingToolDeclarations()}}

	return &AgentService{
		client:   client,
		model:    model,
		bookings: bookings,
		state:    state,
		logger:   utils.GetLogger().Named("agent"),
		chats:    make(map[string]*genai.ChatSession),
	}, nil
}

// Close releases the underlying Gemini client.
func (a *AgentService) Close() error {
	return a.client.Close()
}

func bookingToolDeclarations() []*genai.FunctionDeclaration {
	fieldNames := make([]string, 0, len(models.RequiredFields))
	for _, f := range models.RequiredFields {
		fieldNames = append(fieldNames, string(f))
	}
	return []*genai.FunctionDeclaration{
		{
			Name:        "getAvailableDates",
			Description: "Get a list of available dates and times for booking",
		},
		{
			Name:        "saveUserInfo",
			Description: "Save a piece of information provided by the user for their booking",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"field": {
						Type:        genai.TypeString,
						Description: "Field name to update",
						Enum:        fieldNames,
					},
					"value": {
						Type:        genai.TypeString,
						Description: "Value to save for the field",
					},
				},
				Required: []string{"field", "value"},
			},
		},
		{
			Name:        "getUserInfo",
			Description: "Get the information already collected for the user's booking",
		},
		{
			Name:        "createBooking",
			Description: "Create the booking and generate a payment link. Only call after the user has confirmed.",
		},
		{
			Name:        "clearUserInfo",
			Description: "Clear all stored information for the user so they can start over",
		},
	}
}

func (a *AgentService) chatFor(userNumber string) *genai.ChatSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	cs, ok := a.chats[userNumber]
	if !ok {
		cs = a.model.StartChat()
		a.chats[userNumber] = cs
	}
	return cs
}

func (a *AgentService) resetChat(userNumber string) {
	a.mu.Lock()
	delete(a.chats, userNumber)
	a.mu.Unlock()
}

// ProcessMessage sends one user message through the agent, executing any tool
// calls the model requests, and returns the reply text. The WhatsApp number of
// the sender is authoritative, tools never take an identity from the model.
func (a *AgentService) ProcessMessage(ctx context.Context, userNumber, text string) (string, error) {
	cs := a.chatFor(userNumber)

	resp, err := cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		a.resetChat(userNumber)
		return "", fmt.Errorf("gemini send message: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			a.logger.Info("Executing tool",
				zap.String("tool", call.Name),
				zap.String("user", userNumber))
			result := a.executeTool(ctx, userNumber, call)
			replies = append(replies, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}

		resp, err = cs.SendMessage(ctx, replies...)
		if err != nil {
			a.resetChat(userNumber)
			return "", fmt.Errorf("gemini tool response: %w", err)
		}
	}

	reply := responseText(resp)
	if reply == "" {
		reply = "Sorry, I didn't catch that. Could you rephrase?"
	}
	return reply, nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, fc)
			}
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// executeTool dispatches a model tool call. Results are plain maps so they
// serialize cleanly into function responses.
func (a *AgentService) executeTool(ctx context.Context, userNumber string, call genai.FunctionCall) map[string]any {
	switch call.Name {
	case "getAvailableDates":
		return a.toolGetAvailableDates()
	case "saveUserInfo":
		return a.toolSaveUserInfo(userNumber, call.Args)
	case "getUserInfo":
		return a.toolGetUserInfo(userNumber)
	case "createBooking":
		return a.toolCreateBooking(ctx, userNumber)
	case "clearUserInfo":
		return a.toolClearUserInfo(userNumber)
	default:
		a.logger.Warn("Unknown tool requested", zap.String("tool", call.Name))
		return map[string]any{"success": false, "message": "unknown tool: " + call.Name}
	}
}

func (a *AgentService) toolGetAvailableDates() map[string]any {
	dates, err := a.bookings.GetAvailableDates()
	if err != nil {
		a.logger.Error("Failed to load available dates", zap.Error(err))
		return map[string]any{"success": false, "error": err.Error()}
	}
	list := make([]any, 0, len(dates))
	for _, d := range dates {
		times := make([]any, 0, len(d.Times))
		for _, t := range d.Times {
			times = append(times, t)
		}
		list = append(list, map[string]any{"date": d.Date, "times": times})
	}
	return map[string]any{"success": true, "availableDates": list}
}

func (a *AgentService) toolSaveUserInfo(userNumber string, args map[string]any) map[string]any {
	fieldName, _ := args["field"].(string)
	value, _ := args["value"].(string)

	field, err := models.ParseBookingField(fieldName)
	if err != nil {
		return map[string]any{"success": false, "message": err.Error()}
	}
	if value == "" {
		return map[string]any{"success": false, "message": "value must not be empty"}
	}

	status := a.state.SaveField(userNumber, field, value)
	return map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("Successfully saved %s: %q", field, value),
		"currentInfo":   stringMapToAny(status.Fields),
		"missingFields": stringsToAny(status.MissingFields),
		"readyToBook":   status.ReadyToBook,
	}
}

func (a *AgentService) toolGetUserInfo(userNumber string) map[string]any {
	status := a.state.GetFields(userNumber)
	return map[string]any{
		"success":       true,
		"userInfo":      stringMapToAny(status.Fields),
		"missingFields": stringsToAny(status.MissingFields),
		"readyToBook":   status.ReadyToBook,
	}
}

func (a *AgentService) toolCreateBooking(ctx context.Context, userNumber string) map[string]any {
	status := a.state.GetFields(userNumber)
	if !status.ReadyToBook {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("Cannot create booking: missing required information (%s)",
				strings.Join(status.MissingFields, ", ")),
		}
	}

	booking, paymentURL, err := a.bookings.ReserveAndBook(ctx,
		status.Fields[string(models.FieldDate)],
		status.Fields[string(models.FieldTime)],
		status.Fields[string(models.FieldUserName)],
		status.Fields[string(models.FieldUserEmail)],
		userNumber)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			return map[string]any{"success": false, "message": vErr.Error()}
		case errors.Is(err, ErrSlotUnavailable):
			return map[string]any{
				"success": false,
				"message": "This slot is no longer available. Please choose another time.",
			}
		case errors.Is(err, ErrPaymentLink):
			return map[string]any{
				"success": false,
				"message": "Failed to create payment link. Please try again.",
			}
		default:
			a.logger.Error("Booking creation failed", zap.Error(err))
			return map[string]any{"success": false, "error": err.Error()}
		}
	}

	a.state.Clear(userNumber)
	a.logger.Info("Booking created",
		zap.String("bookingId", booking.ID),
		zap.String("user", userNumber))

	return map[string]any{
		"success": true,
		"booking": map[string]any{
			"id":     booking.ID,
			"date":   booking.Date,
			"time":   booking.Time,
			"status": booking.Status,
		},
		"paymentUrl": paymentURL,
	}
}

func (a *AgentService) toolClearUserInfo(userNumber string) map[string]any {
	a.state.Clear(userNumber)
	return map[string]any{
		"success": true,
		"message": "User information has been cleared. You can start over.",
	}
}

func stringMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
