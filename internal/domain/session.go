package domain

import (
	"sort"
	"sync"
	"time"
)

// Session is the per-connection state: who is connected and which rooms
// the connection has joined.
type Session struct {
	ID           string
	Identity     Identity
	CreatedAt    time.Time
	LastActiveAt time.Time
	rooms        map[string]struct{}
	closed       bool
	mu           sync.RWMutex
}

func NewSession(id string, identity Identity) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Identity:     identity,
		CreatedAt:    now,
		LastActiveAt: now,
		rooms:        make(map[string]struct{}),
	}
}

func (s *Session) GetUserID() string {
	return s.Identity.UserID
}

func (s *Session) GetUsername() string {
	return s.Identity.Username
}

// JoinRoom records roomID as joined. It returns false once the session has
// been closed.
func (s *Session) JoinRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.rooms[roomID] = struct{}{}
	s.LastActiveAt = time.Now()
	return true
}

// LeaveRoom reports whether the room had been joined.
func (s *Session) LeaveRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.LastActiveAt = time.Now()
	return ok
}

func (s *Session) InRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Rooms returns the joined rooms in sorted order.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close marks the session closed and returns the rooms it had joined, in
// sorted order. Later joins are refused.
func (s *Session) Close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	s.rooms = make(map[string]struct{})
	s.closed = true
	return out
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
