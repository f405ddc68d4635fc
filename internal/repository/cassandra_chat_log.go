package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

const (
	kindChat = "chat"
	kindStep = "step"
)

// chatLogSchema partitions each room's chat and steps separately, newest first.
const chatLogSchema = `
CREATE TABLE IF NOT EXISTS chat_log_by_room (
	room_id    text,
	kind       text,
	created_at timestamp,
	entry_id   text,
	author_id  text,
	author     text,
	body       text,
	PRIMARY KEY ((room_id, kind), created_at, entry_id)
) WITH CLUSTERING ORDER BY (created_at DESC, entry_id DESC)`

// CassandraConfig holds connection settings.
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// CassandraChatLog implements ChatLog on Cassandra.
type CassandraChatLog struct {
	session *gocql.Session
	ids     idgen.Generator
}

// NewCassandraChatLog connects and makes sure the table exists.
func NewCassandraChatLog(cfg CassandraConfig, ids idgen.Generator) (*CassandraChatLog, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.Timeout
	cluster.Timeout = cfg.Timeout

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	if err := session.Query(chatLogSchema).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to ensure chat log table: %w", err)
	}

	return &CassandraChatLog{session: session, ids: ids}, nil
}

func (r *CassandraChatLog) AppendChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if err := stamp(r.ids, &msg.ID, &msg.CreatedAt); err != nil {
		return err
	}
	return r.insert(ctx, msg.RoomID, kindChat, msg.ID, msg.AuthorID, msg.Author, msg.Text, msg.CreatedAt)
}

func (r *CassandraChatLog) AppendCookingStep(ctx context.Context, step *domain.CookingStep) error {
	if err := stamp(r.ids, &step.ID, &step.CreatedAt); err != nil {
		return err
	}
	return r.insert(ctx, step.RoomID, kindStep, step.ID, step.AuthorID, step.Author, step.Step, step.CreatedAt)
}

func (r *CassandraChatLog) ListChatMessages(ctx context.Context, roomID string, limit int) ([]*domain.ChatMessage, error) {
	entries, err := r.latest(ctx, roomID, kindChat, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ChatMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, &domain.ChatMessage{
			ID: e.id, RoomID: roomID, AuthorID: e.authorID, Author: e.author, Text: e.body, CreatedAt: e.createdAt,
		})
	}
	return out, nil
}

func (r *CassandraChatLog) ListCookingSteps(ctx context.Context, roomID string, limit int) ([]*domain.CookingStep, error) {
	entries, err := r.latest(ctx, roomID, kindStep, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.CookingStep, 0, len(entries))
	for _, e := range entries {
		out = append(out, &domain.CookingStep{
			ID: e.id, RoomID: roomID, AuthorID: e.authorID, Author: e.author, Step: e.body, CreatedAt: e.createdAt,
		})
	}
	return out, nil
}

func (r *CassandraChatLog) Close() error {
	r.session.Close()
	return nil
}

func (r *CassandraChatLog) insert(ctx context.Context, roomID, kind, id, authorID, author, body string, at time.Time) error {
	query := `
		INSERT INTO chat_log_by_room (
			room_id, kind, created_at, entry_id, author_id, author, body
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	if err := r.session.Query(query, roomID, kind, at, id, authorID, author, body).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to append %s entry: %w", kind, err)
	}
	return nil
}

type logEntry struct {
	id        string
	authorID  string
	author    string
	body      string
	createdAt time.Time
}

// latest returns the newest limit entries in chronological order.
func (r *CassandraChatLog) latest(ctx context.Context, roomID, kind string, limit int) ([]logEntry, error) {
	query := `SELECT entry_id, author_id, author, body, created_at
			  FROM chat_log_by_room
			  WHERE room_id = ? AND kind = ?
			  LIMIT ?`

	iter := r.session.Query(query, roomID, kind, normalizeLimit(limit)).WithContext(ctx).Iter()

	var entries []logEntry
	var e logEntry
	for iter.Scan(&e.id, &e.authorID, &e.author, &e.body, &e.createdAt) {
		entries = append(entries, e)
		e = logEntry{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s entries: %w", kind, err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// parseConsistency converts a string consistency level to gocql.Consistency.
func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_ONE":
		return gocql.LocalOne
	case "EACH_QUORUM":
		return gocql.EachQuorum
	default:
		return gocql.LocalQuorum
	}
}
