package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthErrors(t *testing.T) {
	all := []*AuthError{ErrMissingCredential, ErrInvalidCredential, ErrExpiredCredential, ErrUnknownIdentity}
	for _, e := range all {
		wrapped := fmt.Errorf("handshake: %w", e)
		require.ErrorIs(t, wrapped, ErrAuth)
		require.ErrorIs(t, wrapped, e)

		var ae *AuthError
		require.True(t, errors.As(wrapped, &ae))
		require.Equal(t, e.Code(), ae.Code())
	}

	require.NotErrorIs(t, ErrMissingCredential, ErrInvalidCredential)
	require.NotErrorIs(t, ErrValidation, ErrAuth)
}

func TestNotificationType_Valid(t *testing.T) {
	require.True(t, NotificationMention.Valid())
	require.True(t, NotificationLeaveRoom.Valid())
	require.False(t, NotificationType("poke").Valid())
	require.False(t, NotificationType("").Valid())
}

func TestSession_Rooms(t *testing.T) {
	s := NewSession("c1", Identity{UserID: "u1"})
	s.JoinRoom("r2")
	s.JoinRoom("r1")
	s.JoinRoom("r1")

	require.True(t, s.InRoom("r1"))
	require.Equal(t, []string{"r1", "r2"}, s.Rooms())

	require.True(t, s.LeaveRoom("r1"))
	require.False(t, s.LeaveRoom("r1"))
	require.Equal(t, []string{"r2"}, s.Rooms())
}

func TestSession_CloseRefusesJoins(t *testing.T) {
	s := NewSession("c1", Identity{UserID: "u1"})
	require.True(t, s.JoinRoom("r1"))
	require.True(t, s.JoinRoom("r2"))

	require.Equal(t, []string{"r1", "r2"}, s.Close())
	require.False(t, s.JoinRoom("r3"))
	require.False(t, s.InRoom("r1"))
	require.Empty(t, s.Close())
}

func TestNotification_Push(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	n := &Notification{ID: "n1", Type: NotificationLike, Message: "liked", CreatedAt: at}

	p := n.Push()
	require.Equal(t, "n1", p.ID)
	require.Equal(t, "like", p.Type)
	require.Equal(t, "2024-05-01T11:00:00Z", p.CreatedAt)
}

func TestNewRoomUsersEvent_NeverNull(t *testing.T) {
	evt := NewRoomUsersEvent(nil)
	require.Equal(t, EventRoomUsers, evt.Event)
	require.Equal(t, []string{}, evt.Data)
}
