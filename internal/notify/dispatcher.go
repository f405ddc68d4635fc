package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/audit"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/metrics"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Request describes one notification to deliver.
type Request struct {
	TargetID string
	ActorID  string
	Type     domain.NotificationType
	Message  string
	Link     string
}

// UserLookup checks that a target exists.
type UserLookup interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
}

// Pusher delivers a stored notification to the live connections of its
// target. Reaching zero connections is not an error.
type Pusher interface {
	Push(ctx context.Context, n *domain.Notification) error
}

// Dispatcher stores notifications and pushes them to online targets.
type Dispatcher struct {
	repo   repository.NotificationRepository
	users  UserLookup
	pusher Pusher
	logger zerolog.Logger
}

func NewDispatcher(repo repository.NotificationRepository, users UserLookup, pusher Pusher) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		users:  users,
		pusher: pusher,
		logger: pkglog.Component("notify"),
	}
}

// Notify validates, stores and pushes a notification. A request whose actor
// is its target is suppressed and returns (nil, nil).
func (d *Dispatcher) Notify(ctx context.Context, req Request) (*domain.Notification, error) {
	if !req.Type.Valid() {
		metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("%w: unknown notification type %q", domain.ErrValidation, req.Type)
	}
	if strings.TrimSpace(req.TargetID) == "" {
		metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("%w: notification target is required", domain.ErrValidation)
	}
	if req.ActorID == req.TargetID {
		metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeSuppressed).Inc()
		return nil, nil
	}

	if _, err := d.users.ByID(ctx, req.TargetID); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeRejected).Inc()
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, req.TargetID)
		}
		return nil, fmt.Errorf("failed to look up notification target: %w", err)
	}

	n := &domain.Notification{
		UserID:  req.TargetID,
		ActorID: req.ActorID,
		Type:    req.Type,
		Message: req.Message,
		Link:    req.Link,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.OutcomeOK).Inc()
	audit.LogWithTarget(ctx, audit.ActionNotify, req.ActorID, req.TargetID, "notification created")

	// The record is durable at this point; a failed push only loses the
	// live delivery, the target still sees it on the next list.
	if err := d.pusher.Push(ctx, n); err != nil {
		d.logger.Warn().Err(err).
			Str(pkglog.FieldNotificationID, n.ID).
			Str(pkglog.FieldUserID, n.UserID).
			Msg("failed to push notification")
	}

	return n, nil
}

// List returns one page of userID's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := d.repo.ListByUser(ctx, userID, unreadOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return items, total, nil
}

// MarkRead flips the read flag of one of userID's notifications.
func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	if err := d.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	audit.LogWithTarget(ctx, audit.ActionMarkRead, userID, id, "notification marked read")
	return nil
}
