package registry

import "context"

// Presence mirrors local room membership into a store shared by every
// instance, so the set of active rooms can be answered cluster-wide.
type Presence interface {
	Join(ctx context.Context, roomID, userID string) error
	Leave(ctx context.Context, roomID, userID string) error
	ActiveRooms(ctx context.Context) (map[string]int, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}
