package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitChannel(t *testing.T) {
	tests := []struct {
		channel string
		topic   string
		key     string
		wantErr bool
	}{
		{channel: NotifyToSocketChannel("U123"), topic: "notify-to-socket", key: "U123"},
		{channel: "activity:room:R1:to_search", topic: "activity-to-search", key: "R1"},
		{channel: "notify:user:U1", wantErr: true},
		{channel: "notify:user::to_socket", wantErr: true},
		{channel: "notify:user:U1:socket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			topic, key, err := splitChannel(tt.channel)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.topic, topic)
			require.Equal(t, tt.key, key)
		})
	}
}

func TestPatternTopic(t *testing.T) {
	topic, err := patternTopic(PatternNotifyToSocket)
	require.NoError(t, err)
	require.Equal(t, "notify-to-socket", topic)

	_, err = patternTopic("notify:*:U1:to_socket")
	require.Error(t, err)
}

func TestSanitizeGroupID(t *testing.T) {
	require.Equal(t, "host-1.local_a-b", sanitizeGroupID("host-1.local_a/b"))
	require.Equal(t, "node--9", sanitizeGroupID("node:#9"))
}

func TestEventPayloadRoundTrip(t *testing.T) {
	evt, err := NewEvent(EventNotificationCreated, "U1", NotificationPayload{ID: "n1", UserID: "U1", Type: "like"})
	require.NoError(t, err)
	require.Equal(t, "U1", evt.Key)

	var p NotificationPayload
	require.NoError(t, evt.UnmarshalPayload(&p))
	require.Equal(t, "n1", p.ID)
	require.Equal(t, "like", p.Type)
}
