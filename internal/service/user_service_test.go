package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/directory"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/repository/repotest"
)

type invalidations struct {
	mu  sync.Mutex
	ids []string
}

func (i *invalidations) Invalidate(_ context.Context, u *domain.User) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, u.ID)
}

func TestChefRequestLifecycle(t *testing.T) {
	users := repotest.NewUsers(
		&domain.User{ID: "admin", Username: "root", Role: domain.RoleAdmin},
		&domain.User{ID: "B", Username: "bob", Role: domain.RoleUser},
		&domain.User{ID: "D", Username: "dave", Role: domain.RoleUser},
	)
	notes := repotest.NewNotifications()
	cache := &invalidations{}
	svc := NewUserService(users, cache, notify.NewDispatcher(notes, directory.New(users, nil, 0), nopPusher{}))
	ctx := context.Background()

	u, err := svc.RequestChef(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, domain.ChefRequestPending, u.ChefRequest)

	// Asking twice is harmless.
	_, err = svc.RequestChef(ctx, "B")
	require.NoError(t, err)
	_, err = svc.RequestChef(ctx, "D")
	require.NoError(t, err)

	pending, err := svc.ListChefRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	u, err = svc.ApproveChef(ctx, "admin", "B")
	require.NoError(t, err)
	require.Equal(t, domain.RoleChef, u.Role)
	stored, err := users.GetByID(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, domain.RoleChef, stored.Role)
	require.Equal(t, domain.ChefRequestApproved, stored.ChefRequest)
	require.Equal(t, domain.NotificationChefApproval, notes.For("B")[0].Type)

	_, err = svc.RequestChef(ctx, "B")
	require.ErrorIs(t, err, domain.ErrConflict)

	u, err = svc.RejectChef(ctx, "admin", "D")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, u.Role)
	require.Equal(t, domain.ChefRequestRejected, u.ChefRequest)
	require.Equal(t, domain.NotificationSystem, notes.For("D")[0].Type)

	_, err = svc.RejectChef(ctx, "admin", "D")
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.ApproveChef(ctx, "admin", "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.Equal(t, []string{"B", "D", "B", "D"}, cache.ids)
}
