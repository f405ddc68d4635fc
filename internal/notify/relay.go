package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/pubsub"
)

var errSubscriptionClosed = errors.New("notification subscription closed")

// Relay consumes relayed notifications and delivers them to the sockets
// held by this instance.
type Relay struct {
	sub    pubsub.Subscriber
	hub    UserSender
	logger zerolog.Logger

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff
}

func NewRelay(sub pubsub.Subscriber, hub UserSender) *Relay {
	return &Relay{
		sub:    sub,
		hub:    hub,
		logger: pkglog.Component("notify_relay"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run subscribes to every user's notification channel and delivers until ctx
// is cancelled. A dropped subscription is re-established with backoff.
func (r *Relay) Run(ctx context.Context) error {
	operation := func() error {
		events, err := r.sub.SubscribePattern(ctx, pubsub.PatternNotifyToSocket)
		if err != nil {
			r.logger.Warn().Err(err).Msg("failed to subscribe, retrying")
			return err
		}
		r.logger.Info().Str("pattern", pubsub.PatternNotifyToSocket).Msg("notification relay subscribed")

		for event := range events {
			r.deliver(event)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		r.logger.Warn().Msg("notification subscription closed, resubscribing")
		return errSubscriptionClosed
	}

	err := backoff.Retry(operation, backoff.WithContext(r.newBackOff(), ctx))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (r *Relay) deliver(event *pubsub.Event) {
	if event.Type != pubsub.EventNotificationCreated {
		return
	}

	var payload pubsub.NotificationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode relayed notification")
		return
	}
	userID := payload.UserID
	if userID == "" {
		userID = event.Key
	}

	push := domain.NotificationPush{
		ID:        payload.ID,
		Type:      payload.Type,
		Message:   payload.Message,
		Link:      payload.Link,
		CreatedAt: payload.CreatedAt,
	}
	delivered, err := r.hub.SendToUser(userID, domain.NewEvent(domain.EventNewNotification, push))
	if err != nil {
		r.logger.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to deliver relayed notification")
		return
	}
	if delivered > 0 {
		r.logger.Debug().
			Str(pkglog.FieldNotificationID, payload.ID).
			Str(pkglog.FieldUserID, userID).
			Int(pkglog.FieldDelivered, delivered).
			Msg("relayed notification delivered")
	}
}
