// Package repotest provides in-memory repositories with failure injection.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
	"github.com/weiawesome/wes-cook-live/internal/repository"
)

var ErrInjected = errors.New("injected failure")

// Users is an in-memory UserRepository.
type Users struct {
	mu    sync.Mutex
	byID  map[string]domain.User
	calls int
}

func NewUsers(users ...*domain.User) *Users {
	u := &Users{byID: make(map[string]domain.User)}
	for _, user := range users {
		u.Put(user)
	}
	return u
}

// Put inserts or replaces a user.
func (r *Users) Put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.ChefRequest == "" {
		u.ChefRequest = domain.ChefRequestNone
	}
	r.byID[u.ID] = *u
}

func (r *Users) Create(_ context.Context, u *domain.User) error {
	r.Put(u)
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *Users) UpdateRole(_ context.Context, id, role, chefRequest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	u.ChefRequest = chefRequest
	r.byID[id] = u
	return nil
}

func (r *Users) ListByChefRequest(_ context.Context, status string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if u.ChefRequest == status {
			found := u
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Calls returns the number of lookups served.
func (r *Users) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Users) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, u := range r.byID {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// Recipes is an in-memory RecipeRepository.
type Recipes struct {
	mu   sync.Mutex
	ids  idgen.Generator
	byID map[string]domain.Recipe
}

func NewRecipes(recipes ...*domain.Recipe) *Recipes {
	r := &Recipes{ids: idgen.NewULID(), byID: make(map[string]domain.Recipe)}
	for _, rec := range recipes {
		r.byID[rec.ID] = *rec
	}
	return r
}

func (r *Recipes) Create(_ context.Context, rec *domain.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fill(r.ids, &rec.ID, &rec.CreatedAt)
	rec.UpdatedAt = rec.CreatedAt
	r.byID[rec.ID] = *rec
	return nil
}

func (r *Recipes) List(_ context.Context, chefID string, offset, limit int) ([]*domain.Recipe, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var match []*domain.Recipe
	for _, rec := range r.byID {
		if chefID == "" || rec.ChefID == chefID {
			found := rec
			match = append(match, &found)
		}
	}
	sort.Slice(match, func(i, j int) bool {
		if !match[i].CreatedAt.Equal(match[j].CreatedAt) {
			return match[i].CreatedAt.After(match[j].CreatedAt)
		}
		return match[i].ID > match[j].ID
	})

	total := int64(len(match))
	if offset >= len(match) {
		return []*domain.Recipe{}, total, nil
	}
	match = match[offset:]
	if limit > 0 && len(match) > limit {
		match = match[:limit]
	}
	return match, total, nil
}

func (r *Recipes) Update(_ context.Context, rec *domain.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[rec.ID]
	if !ok {
		return repository.ErrRecipeNotFound
	}
	rec.ChefID = stored.ChefID
	rec.SessionActive = stored.SessionActive
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	r.byID[rec.ID] = *rec
	return nil
}

func (r *Recipes) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrRecipeNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Recipes) GetByID(_ context.Context, id string) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrRecipeNotFound
	}
	return &rec, nil
}

func (r *Recipes) SetSessionActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return repository.ErrRecipeNotFound
	}
	rec.SessionActive = active
	r.byID[id] = rec
	return nil
}

// ChatLog is an in-memory ChatLog. Set FailChat or FailSteps to make appends fail.
type ChatLog struct {
	mu        sync.Mutex
	ids       idgen.Generator
	Messages  []domain.ChatMessage
	Steps     []domain.CookingStep
	FailChat  bool
	FailSteps bool
}

func NewChatLog() *ChatLog {
	return &ChatLog{ids: idgen.NewULID()}
}

func (l *ChatLog) AppendChatMessage(_ context.Context, msg *domain.ChatMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailChat {
		return ErrInjected
	}
	fill(l.ids, &msg.ID, &msg.CreatedAt)
	l.Messages = append(l.Messages, *msg)
	return nil
}

func (l *ChatLog) AppendCookingStep(_ context.Context, step *domain.CookingStep) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSteps {
		return ErrInjected
	}
	fill(l.ids, &step.ID, &step.CreatedAt)
	l.Steps = append(l.Steps, *step)
	return nil
}

func (l *ChatLog) ListChatMessages(_ context.Context, roomID string, limit int) ([]*domain.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.ChatMessage
	for i := range l.Messages {
		if l.Messages[i].RoomID == roomID {
			m := l.Messages[i]
			out = append(out, &m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (l *ChatLog) ListCookingSteps(_ context.Context, roomID string, limit int) ([]*domain.CookingStep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.CookingStep
	for i := range l.Steps {
		if l.Steps[i].RoomID == roomID {
			s := l.Steps[i]
			out = append(out, &s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ChatCount returns the number of stored chat messages.
func (l *ChatLog) ChatCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Messages)
}

// StepCount returns the number of stored cooking steps.
func (l *ChatLog) StepCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Steps)
}

// Notifications is an in-memory NotificationRepository. Set Fail to make Create fail.
type Notifications struct {
	mu    sync.Mutex
	ids   idgen.Generator
	items []domain.Notification
	Fail  bool
}

func NewNotifications() *Notifications {
	return &Notifications{ids: idgen.NewULID()}
}

func (r *Notifications) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	fill(r.ids, &n.ID, &n.CreatedAt)
	r.items = append(r.items, *n)
	return nil
}

func (r *Notifications) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]*domain.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var match []*domain.Notification
	for i := range r.items {
		n := r.items[i]
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			match = append(match, &n)
		}
	}
	sort.SliceStable(match, func(i, j int) bool { return match[i].ID > match[j].ID })

	total := int64(len(match))
	if offset >= len(match) {
		return []*domain.Notification{}, total, nil
	}
	match = match[offset:]
	if limit > 0 && len(match) > limit {
		match = match[:limit]
	}
	return match, total, nil
}

func (r *Notifications) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

// For returns the notifications addressed to userID in creation order.
func (r *Notifications) For(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of stored notifications.
func (r *Notifications) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Social is an in-memory SocialRepository.
type Social struct {
	mu       sync.Mutex
	ids      idgen.Generator
	likes    map[string]map[string]bool
	comments []domain.RecipeComment
}

func NewSocial() *Social {
	return &Social{ids: idgen.NewULID(), likes: make(map[string]map[string]bool)}
}

func (r *Social) ToggleLike(_ context.Context, recipeID, userID string) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.likes[recipeID]
	if !ok {
		set = make(map[string]bool)
		r.likes[recipeID] = set
	}
	liked := !set[userID]
	if liked {
		set[userID] = true
	} else {
		delete(set, userID)
	}
	return liked, int64(len(set)), nil
}

func (r *Social) AddComment(_ context.Context, c *domain.RecipeComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fill(r.ids, &c.ID, &c.CreatedAt)
	r.comments = append(r.comments, *c)
	return nil
}

func (r *Social) ListComments(_ context.Context, recipeID string, limit int) ([]*domain.RecipeComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RecipeComment
	for i := range r.comments {
		if r.comments[i].RecipeID == recipeID {
			c := r.comments[i]
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Social) GetComment(_ context.Context, id string) (*domain.RecipeComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			c := r.comments[i]
			return &c, nil
		}
	}
	return nil, repository.ErrCommentNotFound
}

func (r *Social) DeleteComment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return repository.ErrCommentNotFound
}

func fill(ids idgen.Generator, id *string, at *time.Time) {
	if *id == "" {
		*id = idgen.MustGenerate(ids)
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}

var (
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.RecipeRepository       = (*Recipes)(nil)
	_ repository.ChatLog                = (*ChatLog)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
	_ repository.SocialRepository       = (*Social)(nil)
)
