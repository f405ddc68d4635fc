package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/audit"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/kafka"
	"github.com/weiawesome/wes-cook-live/internal/metrics"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/registry"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/internal/room"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

// CookingDeps are the collaborators of the cooking service. Presence and
// Activity may be nil.
type CookingDeps struct {
	Hub       *hub.Hub
	Tracker   *room.Tracker
	Sequencer *room.Sequencer
	Recipes   repository.RecipeRepository
	ChatLog   repository.ChatLog
	Notifier  Notifier
	Mentions  MentionNotifier
	Presence  registry.Presence
	Activity  kafka.ActivityProducer
}

type cookingService struct {
	hub       *hub.Hub
	tracker   *room.Tracker
	sequencer *room.Sequencer
	recipes   repository.RecipeRepository
	chatLog   repository.ChatLog
	notifier  Notifier
	mentions  MentionNotifier
	presence  registry.Presence
	activity  kafka.ActivityProducer
	logger    zerolog.Logger
}

func NewCookingService(deps CookingDeps) CookingService {
	activity := deps.Activity
	if activity == nil {
		activity = kafka.NoopProducer{}
	}
	return &cookingService{
		hub:       deps.Hub,
		tracker:   deps.Tracker,
		sequencer: deps.Sequencer,
		recipes:   deps.Recipes,
		chatLog:   deps.ChatLog,
		notifier:  deps.Notifier,
		mentions:  deps.Mentions,
		presence:  deps.Presence,
		activity:  activity,
		logger:    pkglog.Component("cooking"),
	}
}

func (s *cookingService) HandleJoinRecipe(ctx context.Context, c *hub.Client, recipeID string) error {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return s.reject(c, domain.EventJoinRecipe, domain.ReasonInvalidRecipe)
	}
	return s.submit(ctx, c, domain.EventJoinRecipe, recipeID, func() {
		s.join(ctx, c, recipeID)
	})
}

func (s *cookingService) HandleLeaveRecipe(ctx context.Context, c *hub.Client, recipeID string) error {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return s.reject(c, domain.EventLeaveRecipe, domain.ReasonInvalidRecipe)
	}
	return s.submit(ctx, c, domain.EventLeaveRecipe, recipeID, func() {
		if !c.Session.LeaveRoom(recipeID) {
			s.reject(c, domain.EventLeaveRecipe, domain.ReasonNotJoined)
			return
		}
		s.leave(ctx, c, recipeID)
		metrics.EventsTotal.WithLabelValues(domain.EventLeaveRecipe, metrics.OutcomeOK).Inc()
	})
}

func (s *cookingService) HandleCookingStep(ctx context.Context, c *hub.Client, recipeID, step string) error {
	recipeID = strings.TrimSpace(recipeID)
	step = strings.TrimSpace(step)
	if recipeID == "" {
		return s.reject(c, domain.EventCookingStep, domain.ReasonInvalidRecipe)
	}
	return s.submit(ctx, c, domain.EventCookingStep, recipeID, func() {
		s.shareStep(ctx, c, recipeID, step)
	})
}

func (s *cookingService) HandleChatMessage(ctx context.Context, c *hub.Client, recipeID, message string) error {
	recipeID = strings.TrimSpace(recipeID)
	if strings.TrimSpace(message) == "" {
		return s.reject(c, domain.EventChatMessage, domain.ReasonEmptyMessage)
	}
	if recipeID == "" {
		return s.reject(c, domain.EventChatMessage, domain.ReasonInvalidRecipe)
	}
	return s.submit(ctx, c, domain.EventChatMessage, recipeID, func() {
		s.chat(ctx, c, recipeID, message)
	})
}

// HandleDisconnect leaves every room the connection had joined. The session
// is closed first so a join still queued for this connection is discarded.
func (s *cookingService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	rooms := c.Session.Close()
	for _, roomID := range rooms {
		roomID := roomID
		task := func() { s.leave(ctx, c, roomID) }
		if err := s.sequencer.Submit(roomID, task); err != nil {
			// Shutting down: no lane left to order against.
			task()
		}
	}
	audit.LogWithDetail(ctx, audit.ActionDisconnect, c.Session.GetUserID(), strings.Join(rooms, ","), "connection closed")
	return nil
}

func (s *cookingService) join(ctx context.Context, c *hub.Client, recipeID string) {
	userID := c.Session.GetUserID()

	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			s.reject(c, domain.EventJoinRecipe, domain.ReasonRecipeNotFound)
			return
		}
		s.fail(ctx, c, domain.EventJoinRecipe, domain.ReasonInternal, err)
		return
	}

	if !c.Session.JoinRoom(recipeID) {
		return
	}
	members, added := s.tracker.Join(recipeID, userID, c.ID)
	event := domain.NewRoomUsersEvent(members)

	if !added {
		c.SendMessage(event)
		metrics.EventsTotal.WithLabelValues(domain.EventJoinRecipe, metrics.OutcomeOK).Inc()
		return
	}

	if err := s.hub.SendToConnections(s.tracker.Connections(recipeID, ""), event); err != nil {
		s.logger.Error().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to broadcast room users")
	}
	s.markPresent(ctx, recipeID, userID)
	metrics.EventsTotal.WithLabelValues(domain.EventJoinRecipe, metrics.OutcomeOK).Inc()
	audit.LogWithTarget(ctx, audit.ActionJoinRoom, userID, recipeID, "joined recipe room")

	if recipe.ChefID != userID {
		s.notify(ctx, notify.Request{
			TargetID: recipe.ChefID,
			ActorID:  userID,
			Type:     domain.NotificationJoinRoom,
			Message:  fmt.Sprintf("%s joined the cooking room for %s", c.Session.GetUsername(), recipe.Title),
			Link:     recipeLink(recipeID),
		})
	}
}

// leave removes the connection from the room. When that takes the user out
// of the room the remaining members get the new list and the owner is told.
func (s *cookingService) leave(ctx context.Context, c *hub.Client, recipeID string) {
	userID := c.Session.GetUserID()

	members, removed := s.tracker.Leave(recipeID, userID, c.ID)
	if !removed {
		return
	}

	if err := s.hub.SendToConnections(s.tracker.Connections(recipeID, ""), domain.NewRoomUsersEvent(members)); err != nil {
		s.logger.Error().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to broadcast room users")
	}
	s.markAbsent(ctx, recipeID, userID)
	audit.LogWithTarget(ctx, audit.ActionLeaveRoom, userID, recipeID, "left recipe room")

	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		s.logger.Debug().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("owner lookup failed, skipping leave notification")
		return
	}
	if recipe.ChefID == userID {
		return
	}
	s.notify(ctx, notify.Request{
		TargetID: recipe.ChefID,
		ActorID:  userID,
		Type:     domain.NotificationLeaveRoom,
		Message:  fmt.Sprintf("%s left the cooking room for %s", c.Session.GetUsername(), recipe.Title),
		Link:     recipeLink(recipeID),
	})
}

func (s *cookingService) shareStep(ctx context.Context, c *hub.Client, recipeID, text string) {
	if !c.Session.InRoom(recipeID) {
		s.reject(c, domain.EventCookingStep, domain.ReasonNotJoined)
		return
	}
	if !c.Session.Identity.IsChef() {
		s.reject(c, domain.EventCookingStep, domain.ReasonNotChef)
		return
	}
	if text == "" {
		s.reject(c, domain.EventCookingStep, domain.ReasonEmptyStep)
		return
	}

	step := &domain.CookingStep{
		RoomID:   recipeID,
		AuthorID: c.Session.GetUserID(),
		Author:   c.Session.GetUsername(),
		Step:     text,
	}
	start := time.Now()
	err := s.chatLog.AppendCookingStep(ctx, step)
	metrics.PersistDuration.WithLabelValues(kafka.KindStep).Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, c, domain.EventCookingStep, domain.ReasonSaveStepFailed, err)
		return
	}

	update := domain.NewEvent(domain.EventStepUpdate, step.Update())
	if err := s.hub.SendToConnections(s.tracker.Connections(recipeID, step.AuthorID), update); err != nil {
		s.logger.Error().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to broadcast cooking step")
	}
	metrics.EventsTotal.WithLabelValues(domain.EventCookingStep, metrics.OutcomeOK).Inc()
	audit.LogWithTarget(ctx, audit.ActionCookingStep, step.AuthorID, recipeID, "cooking step shared")

	s.produce(ctx, &kafka.Activity{
		Kind:      kafka.KindStep,
		ID:        step.ID,
		RoomID:    recipeID,
		AuthorID:  step.AuthorID,
		Author:    step.Author,
		Text:      step.Step,
		CreatedAt: step.CreatedAt,
	})
}

func (s *cookingService) chat(ctx context.Context, c *hub.Client, recipeID, text string) {
	if !c.Session.InRoom(recipeID) {
		s.reject(c, domain.EventChatMessage, domain.ReasonNotJoined)
		return
	}

	msg := &domain.ChatMessage{
		RoomID:   recipeID,
		AuthorID: c.Session.GetUserID(),
		Author:   c.Session.GetUsername(),
		Text:     text,
	}
	start := time.Now()
	err := s.chatLog.AppendChatMessage(ctx, msg)
	metrics.PersistDuration.WithLabelValues(kafka.KindChat).Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, c, domain.EventChatMessage, domain.ReasonSaveChatFailed, err)
		return
	}

	broadcast := domain.NewEvent(domain.EventChatMessage, msg.Broadcast())
	if err := s.hub.SendToConnections(s.tracker.Connections(recipeID, ""), broadcast); err != nil {
		s.logger.Error().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to broadcast chat message")
	}
	metrics.EventsTotal.WithLabelValues(domain.EventChatMessage, metrics.OutcomeOK).Inc()
	audit.LogWithTarget(ctx, audit.ActionChatMessage, msg.AuthorID, recipeID, "chat message sent")

	s.produce(ctx, &kafka.Activity{
		Kind:      kafka.KindChat,
		ID:        msg.ID,
		RoomID:    recipeID,
		AuthorID:  msg.AuthorID,
		Author:    msg.Author,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	})

	if _, err := s.mentions.NotifyMentions(ctx, c.Session.Identity, recipeID, text); err != nil {
		s.logger.Warn().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to resolve mentions")
	}
}

func (s *cookingService) ChatHistory(ctx context.Context, recipeID string, limit int) ([]domain.ChatBroadcast, error) {
	if err := s.recipeExists(ctx, recipeID); err != nil {
		return nil, err
	}
	msgs, err := s.chatLog.ListChatMessages(ctx, recipeID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	out := make([]domain.ChatBroadcast, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Broadcast())
	}
	return out, nil
}

func (s *cookingService) StepHistory(ctx context.Context, recipeID string, limit int) ([]domain.StepUpdate, error) {
	if err := s.recipeExists(ctx, recipeID); err != nil {
		return nil, err
	}
	steps, err := s.chatLog.ListCookingSteps(ctx, recipeID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	out := make([]domain.StepUpdate, 0, len(steps))
	for _, st := range steps {
		out = append(out, st.Update())
	}
	return out, nil
}

func (s *cookingService) recipeExists(ctx context.Context, recipeID string) error {
	if _, err := s.recipes.GetByID(ctx, recipeID); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return fmt.Errorf("%w: recipe %s", domain.ErrNotFound, recipeID)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *cookingService) Members(recipeID string) []string {
	return s.tracker.MembersOf(recipeID)
}

// ActiveRooms prefers the cluster-wide presence mirror and falls back to
// this instance's tracker.
func (s *cookingService) ActiveRooms(ctx context.Context) map[string]int {
	if s.presence != nil {
		rooms, err := s.presence.ActiveRooms(ctx)
		if err == nil {
			return rooms
		}
		s.logger.Warn().Err(err).Msg("presence lookup failed, using local rooms")
	}
	return s.tracker.Rooms()
}

func (s *cookingService) Start(ctx context.Context) error {
	if s.presence != nil {
		if err := s.presence.StartHeartbeat(ctx); err != nil {
			return fmt.Errorf("failed to start presence heartbeat: %w", err)
		}
	}
	s.logger.Info().Msg("cooking service started")
	return nil
}

// Stop drains the room lanes, then releases presence and the producer.
func (s *cookingService) Stop() error {
	s.sequencer.Close()
	if s.presence != nil {
		if err := s.presence.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear presence")
		}
	}
	if err := s.activity.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close activity producer")
	}
	return nil
}

func (s *cookingService) submit(ctx context.Context, c *hub.Client, event, recipeID string, task room.Task) error {
	if err := s.sequencer.Submit(recipeID, task); err != nil {
		s.fail(ctx, c, event, domain.ReasonInternal, err)
		return err
	}
	return nil
}

// reject answers a request the client got wrong.
func (s *cookingService) reject(c *hub.Client, event, reason string) error {
	metrics.EventsTotal.WithLabelValues(event, metrics.OutcomeRejected).Inc()
	return c.SendMessage(domain.NewErrorEvent(reason))
}

// fail answers a request the server could not complete.
func (s *cookingService) fail(ctx context.Context, c *hub.Client, event, reason string, err error) {
	metrics.EventsTotal.WithLabelValues(event, metrics.OutcomeFailed).Inc()
	l := pkglog.Ctx(ctx)
	l.Error().Err(err).Str(pkglog.FieldEvent, event).Msg(reason)
	c.SendMessage(domain.NewErrorEvent(reason))
}

func (s *cookingService) notify(ctx context.Context, req notify.Request) {
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		level := zerolog.WarnLevel
		if errors.Is(err, domain.ErrNotFound) {
			level = zerolog.DebugLevel
		}
		s.logger.WithLevel(level).Err(err).
			Str(pkglog.FieldUserID, req.TargetID).
			Str(pkglog.FieldNotificationType, string(req.Type)).
			Msg("notification dropped")
	}
}

func (s *cookingService) produce(ctx context.Context, a *kafka.Activity) {
	if err := s.activity.Produce(ctx, a); err != nil {
		s.logger.Debug().Err(err).Str(pkglog.FieldRecipeID, a.RoomID).Msg("activity not produced")
	}
}

func (s *cookingService) markPresent(ctx context.Context, recipeID, userID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Join(ctx, recipeID, userID); err != nil {
		s.logger.Warn().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to mirror presence")
	}
}

func (s *cookingService) markAbsent(ctx context.Context, recipeID, userID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Leave(ctx, recipeID, userID); err != nil {
		s.logger.Warn().Err(err).Str(pkglog.FieldRecipeID, recipeID).Msg("failed to clear presence")
	}
}

func recipeLink(recipeID string) string {
	return "/recipes/" + recipeID
}
