package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sony/gobreaker"

	"github.com/weiawesome/wes-cook-live/internal/config"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	breaker  *gobreaker.CircuitBreaker
	send     func(*kafka.Message) error
	doneCh   chan struct{}
}

func NewConfluentProducer(cfg config.KafkaConfig) (*ConfluentProducer, error) {
	// Ensure topic exists with desired partition count
	if err := ensureTopic(cfg.Brokers, cfg.Topic, cfg.Partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure topic (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    cfg.Topic,
		breaker:  newBreaker("activity-producer"),
		doneCh:   make(chan struct{}),
	}
	cp.send = func(msg *kafka.Message) error {
		return cp.producer.Produce(msg, nil)
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

// newBreaker opens after five consecutive failures and half-opens after
// thirty seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l := pkglog.L()
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l := pkglog.L()
				l.Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

// Produce enqueues a. Messages are keyed by room so one room's activity
// stays ordered within a partition.
func (cp *ConfluentProducer) Produce(_ context.Context, a *Activity) error {
	msg, err := cp.message(a)
	if err != nil {
		return err
	}

	_, err = cp.breaker.Execute(func() (interface{}, error) {
		return nil, cp.send(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to produce activity: %w", err)
	}
	return nil
}

func (cp *ConfluentProducer) message(a *Activity) (*kafka.Message, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(a.RoomID),
		Value: value,
	}, nil
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
