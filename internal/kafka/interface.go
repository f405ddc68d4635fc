package kafka

import (
	"context"
	"time"
)

// Activity kinds.
const (
	KindChat = "chat"
	KindStep = "step"
)

// Activity is one persisted room event, published for downstream consumers.
type Activity struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityProducer interface {
	Produce(ctx context.Context, a *Activity) error
	Close() error
}

// NoopProducer drops everything. Used when kafka is disabled.
type NoopProducer struct{}

func (NoopProducer) Produce(context.Context, *Activity) error { return nil }
func (NoopProducer) Close() error                             { return nil }
