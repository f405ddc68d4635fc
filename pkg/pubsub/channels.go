package pubsub

import (
	"fmt"
	"strings"
)

// Channels are "{prefix}:{scope}:{id}:to_{target}". On Kafka a channel is
// topic "{prefix}-to-{target}" keyed by id, so a user's events share a
// partition.
const (
	ChannelNotifyToSocket = "notify:user:%s:to_socket"
	PatternNotifyToSocket = "notify:user:*:to_socket"
)

const EventNotificationCreated = "notification_created"

// NotifyToSocketChannel is the channel for notifications addressed to userID.
func NotifyToSocketChannel(userID string) string {
	return fmt.Sprintf(ChannelNotifyToSocket, userID)
}

// NotificationPayload is the relayed form of a stored notification.
type NotificationPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	CreatedAt string `json:"created_at"`
}

// splitChannel maps a channel to its Kafka topic and message key.
func splitChannel(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("channel %q: want 4 segments, got %d", channel, len(parts))
	}
	prefix, scope, id, target := parts[0], parts[1], parts[2], parts[3]
	if prefix == "" || scope == "" || id == "" {
		return "", "", fmt.Errorf("channel %q: empty segment", channel)
	}
	target, ok := strings.CutPrefix(target, "to_")
	if !ok || target == "" {
		return "", "", fmt.Errorf("channel %q: target must be to_<name>", channel)
	}
	return prefix + "-to-" + strings.ReplaceAll(target, "_", "-"), id, nil
}

// patternTopic maps a subscription pattern with a wildcard id to its topic.
func patternTopic(pattern string) (string, error) {
	parts := strings.Split(pattern, ":")
	if len(parts) != 4 || parts[2] != "*" {
		return "", fmt.Errorf("pattern %q: only the id segment may be a wildcard", pattern)
	}
	parts[2] = "any"
	topic, _, err := splitChannel(strings.Join(parts, ":"))
	return topic, err
}
