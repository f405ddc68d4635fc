package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
	"github.com/weiawesome/wes-cook-live/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGormUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t), idgen.NewULID())

	alice := &domain.User{Email: "Alice@Example.com", Username: "Alice"}
	require.NoError(t, repo.Create(ctx, alice))
	require.NotEmpty(t, alice.ID)
	require.Equal(t, domain.RoleUser, alice.Role)
	require.Equal(t, domain.ChefRequestNone, alice.ChefRequest)

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(ctx, &domain.User{Email: "alice@example.com", Username: "other"})
	require.ErrorIs(t, err, ErrEmailExists)

	err = repo.Create(ctx, &domain.User{Email: "x@example.com", Username: "Alice"})
	require.ErrorIs(t, err, ErrUsernameExists)

	require.NoError(t, repo.UpdateRole(ctx, alice.ID, domain.RoleChef, domain.ChefRequestApproved))
	got, err = repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleChef, got.Role)
	require.Equal(t, domain.ChefRequestApproved, got.ChefRequest)

	require.ErrorIs(t, repo.UpdateRole(ctx, "missing", domain.RoleChef, domain.ChefRequestApproved), ErrUserNotFound)

	bob := &domain.User{Email: "bob@example.com", Username: "bob"}
	require.NoError(t, repo.Create(ctx, bob))
	require.NoError(t, repo.UpdateRole(ctx, bob.ID, domain.RoleUser, domain.ChefRequestPending))
	pending, err := repo.ListByChefRequest(ctx, domain.ChefRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, bob.ID, pending[0].ID)
}

func TestGormRecipeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRecipeRepository(newTestDB(t), idgen.NewULID())

	r := &domain.Recipe{Title: "Ramen", ChefID: "chef-1", Tags: []string{"noodles", "soup"}}
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "Ramen", got.Title)
	require.Equal(t, []string{"noodles", "soup"}, got.Tags)
	require.False(t, got.SessionActive)

	require.NoError(t, repo.SetSessionActive(ctx, r.ID, true))
	got, err = repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, got.SessionActive)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrRecipeNotFound)
	require.ErrorIs(t, repo.SetSessionActive(ctx, "missing", true), ErrRecipeNotFound)
}

func TestGormRecipeRepository_ListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormRecipeRepository(db, idgen.NewULID())
	social := NewGormSocialRepository(db, idgen.NewULID())

	var ids []string
	for i, chef := range []string{"chef-1", "chef-2", "chef-1"} {
		r := &domain.Recipe{Title: fmt.Sprintf("recipe %d", i), ChefID: chef}
		require.NoError(t, repo.Create(ctx, r))
		require.Equal(t, []string{}, r.Ingredients)
		ids = append(ids, r.ID)
	}

	all, total, err := repo.List(ctx, "", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, ids[2], all[0].ID)

	mine, total, err := repo.List(ctx, "chef-1", 0, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, mine, 1)

	require.NoError(t, repo.SetSessionActive(ctx, ids[0], true))
	edit := &domain.Recipe{ID: ids[0], ChefID: "someone-else"}
	edit.Apply(domain.RecipeRequest{
		Title:        "Tonkotsu",
		Ingredients:  []string{"pork bones", "noodles"},
		Instructions: []string{"simmer", "serve"},
		Servings:     2,
		PrepTime:     30,
		CookTime:     720,
		Category:     "noodles",
	})
	require.NoError(t, repo.Update(ctx, edit))

	got, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, "Tonkotsu", got.Title)
	require.Equal(t, []string{"pork bones", "noodles"}, got.Ingredients)
	require.Equal(t, 750, got.TotalTime)
	require.Equal(t, "chef-1", got.ChefID)
	require.True(t, got.SessionActive)
	require.ErrorIs(t, repo.Update(ctx, &domain.Recipe{ID: "missing", Title: "x"}), ErrRecipeNotFound)

	_, _, err = social.ToggleLike(ctx, ids[0], "u1")
	require.NoError(t, err)
	require.NoError(t, social.AddComment(ctx, &domain.RecipeComment{RecipeID: ids[0], UserID: "u1", Username: "u", Text: "hi"}))

	require.NoError(t, repo.Delete(ctx, ids[0]))
	_, err = repo.GetByID(ctx, ids[0])
	require.ErrorIs(t, err, ErrRecipeNotFound)
	comments, err := social.ListComments(ctx, ids[0], 10)
	require.NoError(t, err)
	require.Empty(t, comments)
	require.ErrorIs(t, repo.Delete(ctx, ids[0]), ErrRecipeNotFound)
}

func TestGormChatLog_LatestOldestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewGormChatLog(newTestDB(t), idgen.NewULID())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.AppendChatMessage(ctx, &domain.ChatMessage{
			RoomID: "r1", AuthorID: "u1", Author: "alice",
			Text: fmt.Sprintf("m%d", i), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, log.AppendChatMessage(ctx, &domain.ChatMessage{RoomID: "r2", AuthorID: "u1", Author: "alice", Text: "other"}))

	msgs, err := log.ListChatMessages(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "m2", msgs[0].Text)
	require.Equal(t, "m4", msgs[2].Text)
	require.NotEmpty(t, msgs[0].ID)

	step := &domain.CookingStep{RoomID: "r1", AuthorID: "u2", Author: "chef", Step: "boil water"}
	require.NoError(t, log.AppendCookingStep(ctx, step))
	require.NotEmpty(t, step.ID)
	require.False(t, step.CreatedAt.IsZero())

	steps, err := log.ListCookingSteps(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "boil water", steps[0].Step)
}

func TestGormNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormNotificationRepository(newTestDB(t), idgen.NewULID())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		n := &domain.Notification{
			UserID: "u1", ActorID: "u2", Type: domain.NotificationLike,
			Message: fmt.Sprintf("n%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
	}
	require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: "u9", Type: domain.NotificationSystem, Message: "x"}))

	list, total, err := repo.ListByUser(ctx, "u1", false, 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	require.Equal(t, "n2", list[0].Message)
	require.False(t, list[0].Read)

	require.NoError(t, repo.MarkRead(ctx, "u1", ids[2]))
	require.NoError(t, repo.MarkRead(ctx, "u1", ids[2]))
	require.ErrorIs(t, repo.MarkRead(ctx, "u9", ids[1]), ErrNotificationNotFound)
	require.ErrorIs(t, repo.MarkRead(ctx, "u1", "missing"), ErrNotificationNotFound)

	unread, total, err := repo.ListByUser(ctx, "u1", true, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, unread, 2)
	require.Equal(t, "n1", unread[0].Message)
}

func TestGormSocialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSocialRepository(newTestDB(t), idgen.NewULID())

	liked, count, err := repo.ToggleLike(ctx, "r1", "u1")
	require.NoError(t, err)
	require.True(t, liked)
	require.Equal(t, int64(1), count)

	liked, count, err = repo.ToggleLike(ctx, "r1", "u2")
	require.NoError(t, err)
	require.True(t, liked)
	require.Equal(t, int64(2), count)

	liked, count, err = repo.ToggleLike(ctx, "r1", "u1")
	require.NoError(t, err)
	require.False(t, liked)
	require.Equal(t, int64(1), count)

	c := &domain.RecipeComment{RecipeID: "r1", UserID: "u1", Username: "alice", Text: "yum"}
	require.NoError(t, repo.AddComment(ctx, c))
	require.NotEmpty(t, c.ID)

	comments, err := repo.ListComments(ctx, "r1", 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "yum", comments[0].Text)

	got, err := repo.GetComment(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	require.NoError(t, repo.DeleteComment(ctx, c.ID))
	_, err = repo.GetComment(ctx, c.ID)
	require.ErrorIs(t, err, ErrCommentNotFound)
	require.ErrorIs(t, repo.DeleteComment(ctx, c.ID), ErrCommentNotFound)
}
