package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8090, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "gorm", cfg.Persistence.ChatLog)
	require.Equal(t, "local", cfg.PubSub.Driver)
	require.Equal(t, "ulid", cfg.IDs.Generator)
	require.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	require.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	require.Equal(t, 24*time.Hour, cfg.JWT.Duration)
	require.Equal(t, cfg.Server.InstanceID, cfg.PubSub.Kafka.InstanceID)
	require.Empty(t, cfg.Mention.Domain)
	require.False(t, cfg.Archive.Enabled)
	require.Equal(t, "local", cfg.Archive.Storage.Driver)
	require.Equal(t, "./data/archives", cfg.Archive.Storage.Local.BasePath)
	require.Equal(t, 15*time.Minute, cfg.Archive.URLExpiry)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MENTION_DOMAIN", "kitchen.example")
	t.Setenv("PUBSUB_DRIVER", "redis")
	t.Setenv("CHAT_LOG_DRIVER", "cassandra")
	t.Setenv("ARCHIVE_STORAGE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "recipes")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "s3cret", cfg.JWT.Secret)
	require.Equal(t, "kitchen.example", cfg.Mention.Domain)
	require.Equal(t, "redis", cfg.PubSub.Driver)
	require.Equal(t, "cassandra", cfg.Persistence.ChatLog)
	require.Equal(t, "s3", cfg.Archive.Storage.Driver)
	require.Equal(t, "recipes", cfg.Archive.Storage.S3.Bucket)
}
