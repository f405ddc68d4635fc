package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

const defaultHistoryLimit = 50

// GormChatLog implements ChatLog on the relational store.
type GormChatLog struct {
	db  *gorm.DB
	ids idgen.Generator
}

func NewGormChatLog(db *gorm.DB, ids idgen.Generator) *GormChatLog {
	return &GormChatLog{db: db, ids: ids}
}

func (r *GormChatLog) AppendChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if err := stamp(r.ids, &msg.ID, &msg.CreatedAt); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&domain.ChatMessageModel{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		AuthorID:  msg.AuthorID,
		Author:    msg.Author,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}).Error
}

func (r *GormChatLog) AppendCookingStep(ctx context.Context, step *domain.CookingStep) error {
	if err := stamp(r.ids, &step.ID, &step.CreatedAt); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&domain.CookingStepModel{
		ID:        step.ID,
		RoomID:    step.RoomID,
		AuthorID:  step.AuthorID,
		Author:    step.Author,
		Step:      step.Step,
		CreatedAt: step.CreatedAt,
	}).Error
}

func (r *GormChatLog) ListChatMessages(ctx context.Context, roomID string, limit int) ([]*domain.ChatMessage, error) {
	var models []domain.ChatMessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").Order("id DESC").
		Limit(normalizeLimit(limit)).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.ChatMessage, len(models))
	for i := range models {
		out[len(models)-1-i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormChatLog) ListCookingSteps(ctx context.Context, roomID string, limit int) ([]*domain.CookingStep, error) {
	var models []domain.CookingStepModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").Order("id DESC").
		Limit(normalizeLimit(limit)).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.CookingStep, len(models))
	for i := range models {
		out[len(models)-1-i] = models[i].ToDomain()
	}
	return out, nil
}

// stamp assigns an id and creation time when the caller left them empty.
func stamp(ids idgen.Generator, id *string, at *time.Time) error {
	if *id == "" {
		v, err := ids.Generate()
		if err != nil {
			return err
		}
		*id = v
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
