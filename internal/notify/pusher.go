package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/pubsub"
)

// UserSender sends a frame to every live connection of a user.
type UserSender interface {
	SendToUser(userID string, message interface{}) (int, error)
}

// LocalPusher delivers through this instance's hub.
type LocalPusher struct {
	hub    UserSender
	logger zerolog.Logger
}

func NewLocalPusher(hub UserSender) *LocalPusher {
	return &LocalPusher{hub: hub, logger: pkglog.Component("notify")}
}

func (p *LocalPusher) Push(_ context.Context, n *domain.Notification) error {
	delivered, err := p.hub.SendToUser(n.UserID, domain.NewEvent(domain.EventNewNotification, n.Push()))
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	p.logger.Debug().
		Str(pkglog.FieldNotificationID, n.ID).
		Str(pkglog.FieldUserID, n.UserID).
		Int(pkglog.FieldDelivered, delivered).
		Msg("notification pushed")
	return nil
}

// RelayPusher publishes the notification on the user's channel; whichever
// instance holds the sockets delivers it through its Relay.
type RelayPusher struct {
	publisher pubsub.Publisher
}

func NewRelayPusher(publisher pubsub.Publisher) *RelayPusher {
	return &RelayPusher{publisher: publisher}
}

func (p *RelayPusher) Push(ctx context.Context, n *domain.Notification) error {
	push := n.Push()
	event, err := pubsub.NewEvent(pubsub.EventNotificationCreated, n.UserID, pubsub.NotificationPayload{
		ID:        push.ID,
		UserID:    n.UserID,
		Type:      push.Type,
		Message:   push.Message,
		Link:      push.Link,
		CreatedAt: push.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := p.publisher.Publish(ctx, pubsub.NotifyToSocketChannel(n.UserID), event); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
