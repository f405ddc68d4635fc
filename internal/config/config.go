package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/wes-cook-live/pkg/config"
	"github.com/weiawesome/wes-cook-live/pkg/database"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/pubsub"
	"github.com/weiawesome/wes-cook-live/pkg/storage"
)

type Config struct {
	Server      ServerConfig
	WebSocket   WebSocketConfig
	JWT         JWTConfig
	Database    database.Config
	Redis       RedisConfig
	Cache       CacheConfig
	Registry    RegistryConfig
	PubSub      pubsub.Config
	Kafka       KafkaConfig
	Cassandra   CassandraConfig
	Persistence PersistenceConfig
	Rooms       RoomsConfig
	Mention     MentionConfig
	Archive     ArchiveConfig
	IDs         IDsConfig
	Log         pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	InstanceID      string        `mapstructure:"instance_id"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Duration time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	UserTTL time.Duration `mapstructure:"user_ttl"`
}

type RegistryConfig struct {
	Enabled           bool
	Prefix            string
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

type PersistenceConfig struct {
	// ChatLog selects the chat/step store: "gorm" or "cassandra".
	ChatLog string `mapstructure:"chat_log"`
}

type RoomsConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	QueueSize   int           `mapstructure:"queue_size"`
}

type MentionConfig struct {
	// Domain, when set, resolves "@name" to the user with email name@Domain.
	Domain string
}

type ArchiveConfig struct {
	Enabled    bool
	MaxEntries int           `mapstructure:"max_entries"`
	URLExpiry  time.Duration `mapstructure:"url_expiry"`
	Storage    storage.Config
}

type IDsConfig struct {
	Generator string
	NodeID    int64 `mapstructure:"node_id"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                          "PORT",
		"server.instance_id":                   "INSTANCE_ID",
		"jwt.secret":                           "JWT_SECRET",
		"database.driver":                      "DB_DRIVER",
		"database.host":                        "DB_HOST",
		"database.port":                        "DB_PORT",
		"database.user":                        "DB_USER",
		"database.password":                    "DB_PASSWORD",
		"database.dbname":                      "DB_NAME",
		"database.file_path":                   "DB_FILE_PATH",
		"redis.enabled":                        "REDIS_ENABLED",
		"redis.address":                        "REDIS_ADDRESS",
		"redis.password":                       "REDIS_PASSWORD",
		"registry.enabled":                     "REGISTRY_ENABLED",
		"pubsub.driver":                        "PUBSUB_DRIVER",
		"pubsub.redis.address":                 "REDIS_ADDRESS",
		"pubsub.kafka.brokers":                 "KAFKA_BROKERS",
		"kafka.enabled":                        "KAFKA_ENABLED",
		"kafka.brokers":                        "KAFKA_BROKERS",
		"kafka.topic":                          "KAFKA_TOPIC",
		"cassandra.hosts":                      "CASSANDRA_HOSTS",
		"cassandra.keyspace":                   "CASSANDRA_KEYSPACE",
		"persistence.chat_log":                 "CHAT_LOG_DRIVER",
		"mention.domain":                       "MENTION_DOMAIN",
		"archive.enabled":                      "ARCHIVE_ENABLED",
		"archive.storage.driver":               "ARCHIVE_STORAGE_DRIVER",
		"archive.storage.s3.endpoint":          "S3_ENDPOINT",
		"archive.storage.s3.bucket":            "S3_BUCKET",
		"archive.storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
		"archive.storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
		"ids.generator":                        "ID_GENERATOR",
		"log.level":                            "LOG_LEVEL",
		"log.pretty":                           "LOG_PRETTY",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 15*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.JWT.Duration = pkgconfig.Duration(v, "jwt.duration", 24*time.Hour)
	cfg.Cache.UserTTL = pkgconfig.Duration(v, "cache.user_ttl", 5*time.Minute)
	cfg.Registry.HeartbeatInterval = pkgconfig.Duration(v, "registry.heartbeat_interval", 10*time.Second)
	cfg.Registry.KeyTTL = pkgconfig.Duration(v, "registry.key_ttl", 30*time.Second)
	cfg.Cassandra.Timeout = pkgconfig.Duration(v, "cassandra.timeout", 5*time.Second)
	cfg.Rooms.IdleTimeout = pkgconfig.Duration(v, "rooms.idle_timeout", 30*time.Second)
	cfg.Archive.URLExpiry = pkgconfig.Duration(v, "archive.url_expiry", 15*time.Minute)

	if cfg.PubSub.Kafka.InstanceID == "" {
		cfg.PubSub.Kafka.InstanceID = cfg.Server.InstanceID
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.instance_id", "cook-live-1")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.allowed_origins", []string{})

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "wes-cook-live")
	v.SetDefault("jwt.duration", "24h")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "cook_live")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.file_path", "cook_live.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.user_ttl", "5m")

	v.SetDefault("registry.enabled", false)
	v.SetDefault("registry.prefix", "cook:rooms")
	v.SetDefault("registry.heartbeat_interval", "10s")
	v.SetDefault("registry.key_ttl", "30s")

	v.SetDefault("pubsub.driver", "local")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "cook-live")
	v.SetDefault("pubsub.kafka.partitions", 4)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "cook-room-activity")
	v.SetDefault("kafka.partitions", 8)

	v.SetDefault("cassandra.hosts", []string{"localhost"})
	v.SetDefault("cassandra.keyspace", "cook_live")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.timeout", "5s")

	v.SetDefault("persistence.chat_log", "gorm")

	v.SetDefault("rooms.idle_timeout", "30s")
	v.SetDefault("rooms.queue_size", 64)

	v.SetDefault("mention.domain", "")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.max_entries", 500)
	v.SetDefault("archive.url_expiry", "15m")
	v.SetDefault("archive.storage.driver", "local")
	v.SetDefault("archive.storage.local.base_path", "./data/archives")
	v.SetDefault("archive.storage.local.url_prefix", "/archives")
	v.SetDefault("archive.storage.s3.region", "us-east-1")
	v.SetDefault("archive.storage.s3.bucket", "cook-live-sessions")

	v.SetDefault("ids.generator", "ulid")
	v.SetDefault("ids.node_id", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "cook-live")
}
