package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-cook-live/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrUsernameExists       = errors.New("username already exists")
	ErrRecipeNotFound       = errors.New("recipe not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrCommentNotFound      = errors.New("comment not found")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail and GetByUsername match case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// UpdateRole sets role and chef request status together.
	UpdateRole(ctx context.Context, id, role, chefRequest string) error
	// ListByChefRequest returns users whose chef request has status, oldest first.
	ListByChefRequest(ctx context.Context, status string) ([]*domain.User, error)
}

// RecipeRepository defines the interface for recipe persistence.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *domain.Recipe) error
	GetByID(ctx context.Context, id string) (*domain.Recipe, error)
	// List returns a page newest first and the total matching count. An
	// empty chefID lists every chef's recipes.
	List(ctx context.Context, chefID string, offset, limit int) ([]*domain.Recipe, int64, error)
	// Update writes the content fields of recipe; owner and session state
	// are left alone.
	Update(ctx context.Context, recipe *domain.Recipe) error
	// Delete removes the recipe together with its likes and comments.
	Delete(ctx context.Context, id string) error
	SetSessionActive(ctx context.Context, id string, active bool) error
}

// ChatLog is the append-only store of room chat and cooking steps.
type ChatLog interface {
	AppendChatMessage(ctx context.Context, msg *domain.ChatMessage) error
	AppendCookingStep(ctx context.Context, step *domain.CookingStep) error
	// ListChatMessages returns the latest limit messages, oldest first.
	ListChatMessages(ctx context.Context, roomID string, limit int) ([]*domain.ChatMessage, error)
	// ListCookingSteps returns the latest limit steps, oldest first.
	ListCookingSteps(ctx context.Context, roomID string, limit int) ([]*domain.CookingStep, error)
}

// NotificationRepository defines the interface for notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// ListByUser returns a page newest first and the total matching count.
	ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*domain.Notification, int64, error)
	// MarkRead fails with ErrNotificationNotFound unless id belongs to userID.
	MarkRead(ctx context.Context, userID, id string) error
}

// SocialRepository stores likes and comments on recipes.
type SocialRepository interface {
	// ToggleLike flips the like of userID on recipeID and returns the new
	// state with the like count.
	ToggleLike(ctx context.Context, recipeID, userID string) (bool, int64, error)
	AddComment(ctx context.Context, comment *domain.RecipeComment) error
	ListComments(ctx context.Context, recipeID string, limit int) ([]*domain.RecipeComment, error)
	GetComment(ctx context.Context, id string) (*domain.RecipeComment, error)
	DeleteComment(ctx context.Context, id string) error
}
