// Package archive stores transcripts of finished cooking sessions.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/storage"
)

const (
	keyPrefix      = "sessions"
	defaultEntries = 500
	defaultExpiry  = 15 * time.Minute
)

// Config tunes an Archiver.
type Config struct {
	// MaxEntries caps the chat lines and the steps kept per transcript.
	MaxEntries int
	// URLExpiry is how long links returned by List stay valid.
	URLExpiry time.Duration
}

// Archiver writes a JSON transcript per ended session.
type Archiver struct {
	store   storage.Store
	chatLog repository.ChatLog
	cfg     Config
	now     func() time.Time
	logger  zerolog.Logger
}

func NewArchiver(store storage.Store, chatLog repository.ChatLog, cfg Config) *Archiver {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultEntries
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = defaultExpiry
	}
	return &Archiver{
		store:   store,
		chatLog: chatLog,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  pkglog.Component("archive"),
	}
}

// Archive stores the latest chat and steps of recipe's room.
func (a *Archiver) Archive(ctx context.Context, recipe *domain.Recipe) (*domain.SessionArchive, error) {
	steps, err := a.chatLog.ListCookingSteps(ctx, recipe.ID, a.cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	chat, err := a.chatLog.ListChatMessages(ctx, recipe.ID, a.cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat: %w", err)
	}

	endedAt := a.now()
	body, err := json.Marshal(domain.SessionTranscript{
		RecipeID: recipe.ID,
		Title:    recipe.Title,
		ChefID:   recipe.ChefID,
		EndedAt:  endedAt,
		Steps:    steps,
		Chat:     chat,
	})
	if err != nil {
		return nil, err
	}

	key := transcriptKey(recipe.ID, endedAt)
	if err := a.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return nil, err
	}

	a.logger.Info().
		Str(pkglog.FieldRecipeID, recipe.ID).
		Str("key", key).
		Int("steps", len(steps)).
		Int("chat", len(chat)).
		Msg("session archived")
	return &domain.SessionArchive{Key: key, Size: int64(len(body)), CreatedAt: endedAt}, nil
}

// List returns the transcripts of recipeID, newest first, with links.
func (a *Archiver) List(ctx context.Context, recipeID string) ([]domain.SessionArchive, error) {
	objs, err := a.store.List(ctx, roomPrefix(recipeID))
	if err != nil {
		return nil, err
	}

	out := make([]domain.SessionArchive, 0, len(objs))
	for i := len(objs) - 1; i >= 0; i-- {
		url, err := a.store.URL(ctx, objs[i].Key, a.cfg.URLExpiry)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SessionArchive{
			Key:       objs[i].Key,
			Size:      objs[i].Size,
			CreatedAt: objs[i].LastModified,
			URL:       url,
		})
	}
	return out, nil
}

func roomPrefix(recipeID string) string {
	return keyPrefix + "/" + strings.ReplaceAll(recipeID, "/", "_") + "/"
}

// transcriptKey sorts lexically in time order.
func transcriptKey(recipeID string, at time.Time) string {
	return path.Join(roomPrefix(recipeID), at.Format("20060102T150405.000000000Z")+".json")
}
