package service

import (
	"context"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/notify"
)

// CookingService handles the events of live recipe rooms.
type CookingService interface {
	HandleJoinRecipe(ctx context.Context, client *hub.Client, recipeID string) error
	HandleLeaveRecipe(ctx context.Context, client *hub.Client, recipeID string) error
	HandleCookingStep(ctx context.Context, client *hub.Client, recipeID, step string) error
	HandleChatMessage(ctx context.Context, client *hub.Client, recipeID, message string) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error

	ChatHistory(ctx context.Context, recipeID string, limit int) ([]domain.ChatBroadcast, error)
	StepHistory(ctx context.Context, recipeID string, limit int) ([]domain.StepUpdate, error)
	Members(recipeID string) []string
	ActiveRooms(ctx context.Context) map[string]int

	Start(ctx context.Context) error
	Stop() error
}

// Notifier is the notification dispatcher as seen by services.
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) (*domain.Notification, error)
}

// MentionNotifier notifies the users mentioned in a piece of text.
type MentionNotifier interface {
	NotifyMentions(ctx context.Context, author domain.Identity, roomID, text string) (int, error)
}
