package pubsub

import (
	"context"
	"encoding/json"
	"time"

	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

const subscriberBuffer = 128

// Event is the envelope carried on the bus.
type Event struct {
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent stamps payload as an event about key (a user or room id).
func NewEvent(eventType, key string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Key:       key,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher publishes events on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber streams the events of every channel matching a pattern. The
// returned channel is closed when ctx ends or the subscription is lost.
type Subscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

// PubSub is a bus driver.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

// forward decodes raw onto out without blocking; a subscriber that is behind
// loses the event. It reports false once ctx is done.
func forward(ctx context.Context, out chan<- *Event, raw []byte, source string) bool {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("source", source).Msg("pubsub: undecodable event skipped")
		return true
	}

	select {
	case out <- &event:
	case <-ctx.Done():
		return false
	default:
		l := pkglog.Ctx(ctx)
		l.Warn().Str("source", source).Str("event_type", event.Type).Msg("pubsub: subscriber behind, event dropped")
	}
	return true
}
