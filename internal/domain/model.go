package domain

import (
	"time"

	"github.com/weiawesome/wes-cook-live/pkg/database"
)

// UserModel is the GORM model for users table.
type UserModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username    string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Role        string    `gorm:"type:varchar(16);not null;default:user"`
	ChefRequest string    `gorm:"type:varchar(16);not null;default:none"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *User {
	return &User{
		ID:          m.ID,
		Email:       m.Email,
		Username:    m.Username,
		Role:        m.Role,
		ChefRequest: m.ChefRequest,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		ChefRequest: u.ChefRequest,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// RecipeModel is the GORM model for recipes table.
type RecipeModel struct {
	ID            string               `gorm:"type:varchar(36);primaryKey"`
	Title         string               `gorm:"type:varchar(200);not null"`
	Description   string               `gorm:"type:text"`
	ChefID        string               `gorm:"type:varchar(36);index;not null"`
	Ingredients   database.StringArray `gorm:"type:text"`
	Instructions  database.StringArray `gorm:"type:text"`
	Servings      int                  `gorm:"not null;default:0"`
	PrepTime      int                  `gorm:"not null;default:0"`
	CookTime      int                  `gorm:"not null;default:0"`
	TotalTime     int                  `gorm:"not null;default:0"`
	Category      string               `gorm:"type:varchar(50);index"`
	Tags          database.StringArray `gorm:"type:text"`
	SessionActive bool                 `gorm:"not null;default:false"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime"`
}

func (RecipeModel) TableName() string { return "recipes" }

func (m *RecipeModel) ToDomain() *Recipe {
	return &Recipe{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		ChefID:        m.ChefID,
		Ingredients:   []string(m.Ingredients),
		Instructions:  []string(m.Instructions),
		Servings:      m.Servings,
		PrepTime:      m.PrepTime,
		CookTime:      m.CookTime,
		TotalTime:     m.TotalTime,
		Category:      m.Category,
		Tags:          []string(m.Tags),
		SessionActive: m.SessionActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func RecipeToModel(r *Recipe) *RecipeModel {
	return &RecipeModel{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		ChefID:        r.ChefID,
		Ingredients:   database.StringArray(r.Ingredients),
		Instructions:  database.StringArray(r.Instructions),
		Servings:      r.Servings,
		PrepTime:      r.PrepTime,
		CookTime:      r.CookTime,
		TotalTime:     r.TotalTime,
		Category:      r.Category,
		Tags:          database.StringArray(r.Tags),
		SessionActive: r.SessionActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ChatMessageModel is the GORM model for chat_messages table.
type ChatMessageModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	RoomID    string    `gorm:"type:varchar(36);index:idx_chat_room_created,priority:1;not null"`
	AuthorID  string    `gorm:"type:varchar(36);not null"`
	Author    string    `gorm:"type:varchar(50);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_chat_room_created,priority:2"`
}

func (ChatMessageModel) TableName() string { return "chat_messages" }

func (m *ChatMessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		AuthorID:  m.AuthorID,
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// CookingStepModel is the GORM model for cooking_steps table.
type CookingStepModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	RoomID    string    `gorm:"type:varchar(36);index:idx_step_room_created,priority:1;not null"`
	AuthorID  string    `gorm:"type:varchar(36);not null"`
	Author    string    `gorm:"type:varchar(50);not null"`
	Step      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_step_room_created,priority:2"`
}

func (CookingStepModel) TableName() string { return "cooking_steps" }

func (m *CookingStepModel) ToDomain() *CookingStep {
	return &CookingStep{
		ID:        m.ID,
		RoomID:    m.RoomID,
		AuthorID:  m.AuthorID,
		Author:    m.Author,
		Step:      m.Step,
		CreatedAt: m.CreatedAt,
	}
}

// NotificationModel is the GORM model for notifications table.
type NotificationModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index:idx_notification_user_created,priority:1;not null"`
	ActorID   string    `gorm:"type:varchar(36)"`
	Type      string    `gorm:"type:varchar(32);not null"`
	Message   string    `gorm:"type:text;not null"`
	Link      string    `gorm:"type:varchar(512)"`
	Read      bool      `gorm:"column:is_read;not null;default:false;index"`
	CreatedAt time.Time `gorm:"index:idx_notification_user_created,priority:2"`
}

func (NotificationModel) TableName() string { return "notifications" }

func (m *NotificationModel) ToDomain() *Notification {
	return &Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		ActorID:   m.ActorID,
		Type:      NotificationType(m.Type),
		Message:   m.Message,
		Link:      m.Link,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func NotificationToModel(n *Notification) *NotificationModel {
	return &NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		ActorID:   n.ActorID,
		Type:      string(n.Type),
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// RecipeLikeModel is the GORM model for recipe_likes table.
type RecipeLikeModel struct {
	RecipeID  string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RecipeLikeModel) TableName() string { return "recipe_likes" }

// RecipeCommentModel is the GORM model for recipe_comments table.
type RecipeCommentModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	RecipeID  string    `gorm:"type:varchar(36);index;not null"`
	UserID    string    `gorm:"type:varchar(36);not null"`
	Username  string    `gorm:"type:varchar(50);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RecipeCommentModel) TableName() string { return "recipe_comments" }

func (m *RecipeCommentModel) ToDomain() *RecipeComment {
	return &RecipeComment{
		ID:        m.ID,
		RecipeID:  m.RecipeID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&RecipeModel{},
		&ChatMessageModel{},
		&CookingStepModel{},
		&NotificationModel{},
		&RecipeLikeModel{},
		&RecipeCommentModel{},
	}
}
