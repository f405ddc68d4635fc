package domain

import (
	"encoding/json"
	"time"
)

// WebSocket events from client.
const (
	EventJoinRecipe  = "join-recipe"
	EventLeaveRecipe = "leave-recipe"
	EventCookingStep = "cooking-step"
	EventChatMessage = "chat-message"
	EventPing        = "ping"
)

// WebSocket events to client.
const (
	EventRoomUsers       = "room-users"
	EventStepUpdate      = "step-update"
	EventNewNotification = "new-notification"
	EventError           = "error"
	EventPong            = "pong"
)

// Error reasons sent in-band.
const (
	ReasonMalformed      = "malformed message"
	ReasonUnknownEvent   = "unknown event"
	ReasonInvalidRecipe  = "invalid recipe id"
	ReasonRecipeNotFound = "recipe not found"
	ReasonNotJoined      = "join the recipe room first"
	ReasonNotChef        = "only chefs can share cooking steps"
	ReasonEmptyStep      = "step is required"
	ReasonEmptyMessage   = "message is required"
	ReasonSaveChatFailed = "failed to save chat"
	ReasonSaveStepFailed = "failed to save cooking step"
	ReasonInternal       = "internal error"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope is a server frame with a typed payload.
type OutboundEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Client -> Server payloads

type JoinRecipeData struct {
	RecipeID string `json:"recipeId"`
}

type LeaveRecipeData struct {
	RecipeID string `json:"recipeId"`
}

type CookingStepData struct {
	RecipeID string `json:"recipeId"`
	Step     string `json:"step"`
}

type ChatMessageData struct {
	RecipeID string `json:"recipeId"`
	Message  string `json:"message"`
}

// Server -> Client payloads

type StepUpdate struct {
	Step string `json:"step"`
	By   string `json:"by"`
	At   string `json:"at"`
}

type ChatBroadcast struct {
	Message string `json:"message"`
	By      string `json:"by"`
	At      string `json:"at"`
}

type NotificationPush struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ErrorData struct {
	Reason string `json:"reason"`
}

// Timestamp formats server times the way every outbound payload carries them.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewEvent builds an outbound frame.
func NewEvent(event string, data interface{}) *OutboundEnvelope {
	return &OutboundEnvelope{Event: event, Data: data}
}

func NewErrorEvent(reason string) *OutboundEnvelope {
	return NewEvent(EventError, ErrorData{Reason: reason})
}

func NewRoomUsersEvent(members []string) *OutboundEnvelope {
	if members == nil {
		members = []string{}
	}
	return NewEvent(EventRoomUsers, members)
}
