package room

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/weiawesome/wes-cook-live/internal/metrics"
)

// Tracker records which users are in which recipe room. A user is a member
// while at least one of their connections has joined the room.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]map[string]struct{} // room -> user -> connections
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		rooms: make(map[string]map[string]map[string]struct{}),
	}
}

// Join adds connID for userID to roomID. It returns the member list after the
// change and whether userID was new to the room.
func (t *Tracker) Join(roomID, userID, connID string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		users = make(map[string]map[string]struct{})
		t.rooms[roomID] = users
		metrics.RoomsActive.Set(float64(len(t.rooms)))
	}

	conns, existed := users[userID]
	if !existed {
		conns = make(map[string]struct{})
		users[userID] = conns
	}
	conns[connID] = struct{}{}

	return sortedKeys(users), !existed
}

// Leave removes connID for userID from roomID. The user leaves the member set
// only when none of their connections remain; removed reports that case.
// Empty rooms are dropped.
func (t *Tracker) Leave(roomID, userID, connID string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		return []string{}, false
	}

	conns, ok := users[userID]
	if !ok {
		return sortedKeys(users), false
	}
	if _, ok := conns[connID]; !ok {
		return sortedKeys(users), false
	}

	delete(conns, connID)
	if len(conns) > 0 {
		return sortedKeys(users), false
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(t.rooms, roomID)
		metrics.RoomsActive.Set(float64(len(t.rooms)))
	}
	return sortedKeys(users), true
}

// MembersOf returns the sorted user ids in roomID.
func (t *Tracker) MembersOf(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.rooms[roomID])
}

// Connections returns the joined connection ids of roomID, skipping every
// connection of excludeUser.
func (t *Tracker) Connections(roomID, excludeUser string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for userID, conns := range t.rooms[roomID] {
		if userID == excludeUser {
			continue
		}
		for connID := range conns {
			out = append(out, connID)
		}
	}
	sort.Strings(out)
	return out
}

// Rooms returns member counts for every non-empty room.
func (t *Tracker) Rooms() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.MapValues(t.rooms, func(users map[string]map[string]struct{}, _ string) int {
		return len(users)
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
