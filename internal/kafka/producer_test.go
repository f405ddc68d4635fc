package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func newTestProducer(send func(*kafka.Message) error) *ConfluentProducer {
	return &ConfluentProducer{
		topic:   "room-activity",
		breaker: newBreaker("test"),
		send:    send,
	}
}

func TestProduce_KeysByRoom(t *testing.T) {
	var sent []*kafka.Message
	p := newTestProducer(func(m *kafka.Message) error {
		sent = append(sent, m)
		return nil
	})

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := p.Produce(context.Background(), &Activity{Kind: KindChat, ID: "m1", RoomID: "r1", Author: "alice", Text: "hi", CreatedAt: at})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, "r1", string(sent[0].Key))
	require.Equal(t, "room-activity", *sent[0].TopicPartition.Topic)

	var got Activity
	require.NoError(t, json.Unmarshal(sent[0].Value, &got))
	require.Equal(t, KindChat, got.Kind)
	require.Equal(t, "hi", got.Text)
	require.True(t, at.Equal(got.CreatedAt))
}

func TestProduce_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	queueFull := errors.New("local queue full")
	p := newTestProducer(func(*kafka.Message) error {
		calls++
		return queueFull
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, p.Produce(ctx, &Activity{RoomID: "r1"}), queueFull)
	}

	err := p.Produce(ctx, &Activity{RoomID: "r1"})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, 5, calls)
}

func TestNoopProducer(t *testing.T) {
	var p ActivityProducer = NoopProducer{}
	require.NoError(t, p.Produce(context.Background(), &Activity{}))
	require.NoError(t, p.Close())
}
