package mention

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

// A mention is "@handle" at the start of the text or after a character that
// cannot be part of a handle, so addresses like bob@example.com are skipped.
var mentionPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9._-])@([A-Za-z0-9._-]+)`)

// Directory looks users up by the keys a mention can resolve through.
type Directory interface {
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Notifier is the part of the dispatcher the resolver needs.
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) (*domain.Notification, error)
}

// Resolver finds mentioned users and notifies them.
type Resolver struct {
	users    Directory
	notifier Notifier
	domain   string
	logger   zerolog.Logger
}

// NewResolver creates a resolver. With a non-empty mailDomain a token
// resolves to the user whose email is token@mailDomain; otherwise it
// resolves by username.
func NewResolver(users Directory, notifier Notifier, mailDomain string) *Resolver {
	return &Resolver{
		users:    users,
		notifier: notifier,
		domain:   strings.ToLower(strings.TrimPrefix(strings.TrimSpace(mailDomain), "@")),
		logger:   pkglog.Component("mention"),
	}
}

// Extract returns the lower-cased mention tokens of text in first-seen order.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.ToLower(strings.TrimRight(m[1], ".-"))
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// Resolve maps every mention in text to a known identity. Tokens that match
// nobody are dropped; a lookup failure other than not-found aborts.
func (r *Resolver) Resolve(ctx context.Context, text string) ([]domain.Identity, error) {
	tokens := Extract(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	identities := make([]domain.Identity, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		user, err := r.lookup(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve mention %q: %w", token, err)
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		identities = append(identities, domain.IdentityOf(user))
	}
	return identities, nil
}

// NotifyMentions sends a mention notification to everyone named in text
// except the author and returns how many were notified.
func (r *Resolver) NotifyMentions(ctx context.Context, author domain.Identity, roomID, text string) (int, error) {
	mentioned, err := r.Resolve(ctx, text)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, target := range mentioned {
		if target.UserID == author.UserID {
			continue
		}
		_, err := r.notifier.Notify(ctx, notify.Request{
			TargetID: target.UserID,
			ActorID:  author.UserID,
			Type:     domain.NotificationMention,
			Message:  fmt.Sprintf("%s mentioned you", author.Username),
			Link:     "/recipes/" + roomID,
		})
		if err != nil {
			r.logger.Warn().Err(err).
				Str(pkglog.FieldUserID, target.UserID).
				Str(pkglog.FieldRecipeID, roomID).
				Msg("failed to notify mention")
			continue
		}
		notified++
	}
	return notified, nil
}

func (r *Resolver) lookup(ctx context.Context, token string) (*domain.User, error) {
	if r.domain != "" {
		return r.users.ByEmail(ctx, token+"@"+r.domain)
	}
	return r.users.ByUsername(ctx, token)
}
