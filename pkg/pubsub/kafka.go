package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

const pollTimeoutMs = 500

// KafkaPubSub carries events over Kafka topics derived from channel names.
type KafkaPubSub struct {
	producer *kafka.Producer
	cfg      KafkaConfig

	mu        sync.Mutex
	consumers map[*kafka.Consumer]context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
}

func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		producer:  p,
		cfg:       cfg,
		consumers: make(map[*kafka.Consumer]context.CancelFunc),
		done:      make(chan struct{}),
	}
	go k.watchProducer()
	return k, nil
}

// watchProducer logs client level errors; delivery reports go to Publish.
func (k *KafkaPubSub) watchProducer() {
	defer close(k.done)
	for e := range k.producer.Events() {
		if kerr, ok := e.(kafka.Error); ok {
			l := pkglog.L()
			l.Error().Str("error", kerr.String()).Bool("fatal", kerr.IsFatal()).Msg("kafka pubsub producer error")
		}
	}
}

// Publish returns after the broker acknowledged the event.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, err := splitChannel(channel)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	report := make(chan kafka.Event, 1)
	if err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}, report); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}

	select {
	case e := <-report:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("failed to deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribePattern consumes the pattern's topic from the latest offset.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := patternTopic(pattern)
	if err != nil {
		return nil, err
	}
	if err := k.ensureTopic(ctx, topic); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("topic", topic).Msg("could not ensure kafka topic")
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.cfg.Brokers,
		"group.id":           k.groupID(),
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	k.mu.Lock()
	k.consumers[c] = cancel
	k.mu.Unlock()

	out := make(chan *Event, subscriberBuffer)
	k.wg.Add(1)
	go k.consume(subCtx, c, topic, out)
	return out, nil
}

// consume owns c and closes it on exit.
func (k *KafkaPubSub) consume(ctx context.Context, c *kafka.Consumer, topic string, out chan<- *Event) {
	defer k.wg.Done()
	defer close(out)
	defer c.Close()
	defer k.forget(c)

	l := pkglog.Ctx(ctx)
	for ctx.Err() == nil {
		switch e := c.Poll(pollTimeoutMs).(type) {
		case *kafka.Message:
			if !forward(ctx, out, e.Value, topic) {
				return
			}
		case kafka.Error:
			l.Error().Str("error", e.String()).Bool("fatal", e.IsFatal()).Str("topic", topic).Msg("kafka pubsub consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

func (k *KafkaPubSub) forget(c *kafka.Consumer) {
	k.mu.Lock()
	cancel := k.consumers[c]
	delete(k.consumers, c)
	k.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (k *KafkaPubSub) ensureTopic(ctx context.Context, topic string) error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	partitions := k.cfg.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return errors.New(r.Error.String())
		}
	}
	return nil
}

func (k *KafkaPubSub) groupID() string {
	base := k.cfg.GroupID
	if base == "" {
		base = "cook-live"
	}
	if k.cfg.InstanceID == "" {
		return base
	}
	return base + "-" + sanitizeGroupID(k.cfg.InstanceID)
}

// sanitizeGroupID keeps [A-Za-z0-9._-] and maps everything else to '-'.
func sanitizeGroupID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '-'
	}, s)
}

// Close stops every consumer, then flushes and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	for _, cancel := range k.consumers {
		cancel()
	}
	k.mu.Unlock()
	k.wg.Wait()

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.done
	return nil
}
