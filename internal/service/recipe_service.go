package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/audit"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/internal/room"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

const (
	maxCommentLength = 2000
	maxTitleLength   = 200
	defaultPageSize  = 20
)

// RecipeService covers recipes and the page actions that feed notifications.
type RecipeService interface {
	CreateRecipe(ctx context.Context, actor domain.Identity, req domain.RecipeRequest) (*domain.Recipe, error)
	GetRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error)
	// ListRecipes pages recipes newest first; chefID narrows to one chef.
	ListRecipes(ctx context.Context, chefID string, page, pageSize int) ([]*domain.Recipe, int64, error)
	UpdateRecipe(ctx context.Context, actor domain.Identity, recipeID string, req domain.RecipeRequest) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, actor domain.Identity, recipeID string) error
	ToggleLike(ctx context.Context, actor domain.Identity, recipeID string) (*domain.LikeResult, error)
	AddComment(ctx context.Context, actor domain.Identity, recipeID, text string) (*domain.RecipeComment, error)
	ListComments(ctx context.Context, recipeID string, limit int) ([]*domain.RecipeComment, error)
	DeleteComment(ctx context.Context, actor domain.Identity, recipeID, commentID string) error
	StartSession(ctx context.Context, actor domain.Identity, recipeID string) (*domain.Recipe, error)
	EndSession(ctx context.Context, actor domain.Identity, recipeID string) (*domain.Recipe, error)
	ListArchives(ctx context.Context, recipeID string) ([]domain.SessionArchive, error)
}

// SessionArchiver keeps transcripts of ended sessions.
type SessionArchiver interface {
	Archive(ctx context.Context, recipe *domain.Recipe) (*domain.SessionArchive, error)
	List(ctx context.Context, recipeID string) ([]domain.SessionArchive, error)
}

type recipeService struct {
	recipes  repository.RecipeRepository
	social   repository.SocialRepository
	tracker  *room.Tracker
	notifier Notifier
	mentions MentionNotifier
	archives SessionArchiver
	logger   zerolog.Logger
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	social repository.SocialRepository,
	tracker *room.Tracker,
	notifier Notifier,
	mentions MentionNotifier,
	archives SessionArchiver,
) RecipeService {
	return &recipeService{
		recipes:  recipes,
		social:   social,
		tracker:  tracker,
		notifier: notifier,
		mentions: mentions,
		archives: archives,
		logger:   pkglog.Component("recipe"),
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, actor domain.Identity, req domain.RecipeRequest) (*domain.Recipe, error) {
	if !actor.IsChef() {
		return nil, fmt.Errorf("%w: only chefs can publish recipes", domain.ErrForbidden)
	}
	recipe := &domain.Recipe{ChefID: actor.UserID}
	recipe.Apply(req)
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	audit.LogWithTarget(ctx, audit.ActionRecipeCreate, actor.UserID, recipe.ID, "recipe created")
	return recipe, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	return s.getRecipe(ctx, recipeID)
}

func (s *recipeService) ListRecipes(ctx context.Context, chefID string, page, pageSize int) ([]*domain.Recipe, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	recipes, total, err := s.recipes.List(ctx, chefID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return recipes, total, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, actor domain.Identity, recipeID string, req domain.RecipeRequest) (*domain.Recipe, error) {
	recipe, err := s.ownedRecipe(ctx, actor, recipeID)
	if err != nil {
		return nil, err
	}
	recipe.Apply(req)
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	if err := s.recipes.Update(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", domain.ErrNotFound, recipeID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	audit.LogWithTarget(ctx, audit.ActionRecipeUpdate, actor.UserID, recipe.ID, "recipe updated")
	return recipe, nil
}

// DeleteRecipe removes a recipe for its chef or an admin. A recipe with a
// live session must have the session ended first.
func (s *recipeService) DeleteRecipe(ctx context.Context, actor domain.Identity, recipeID string) error {
	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if recipe.ChefID != actor.UserID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the recipe's chef or an admin can delete it", domain.ErrForbidden)
	}
	if recipe.SessionActive {
		return fmt.Errorf("%w: end the cooking session first", domain.ErrConflict)
	}

	if err := s.recipes.Delete(ctx, recipe.ID); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return fmt.Errorf("%w: recipe %s", domain.ErrNotFound, recipeID)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	audit.LogWithTarget(ctx, audit.ActionRecipeDelete, actor.UserID, recipe.ID, "recipe deleted")
	return nil
}

func (s *recipeService) ToggleLike(ctx context.Context, actor domain.Identity, recipeID string) (*domain.LikeResult, error) {
	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	liked, likes, err := s.social.ToggleLike(ctx, recipe.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if liked {
		s.notify(ctx, notify.Request{
			TargetID: recipe.ChefID,
			ActorID:  actor.UserID,
			Type:     domain.NotificationLike,
			Message:  fmt.Sprintf("%s liked your recipe %s", actor.Username, recipe.Title),
			Link:     recipeLink(recipe.ID),
		})
	}
	return &domain.LikeResult{Liked: liked, Likes: likes}, nil
}

func (s *recipeService) AddComment(ctx context.Context, actor domain.Identity, recipeID, text string) (*domain.RecipeComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}
	if len(text) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", domain.ErrValidation)
	}

	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	comment := &domain.RecipeComment{
		RecipeID: recipe.ID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Text:     text,
	}
	if err := s.social.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.notify(ctx, notify.Request{
		TargetID: recipe.ChefID,
		ActorID:  actor.UserID,
		Type:     domain.NotificationComment,
		Message:  fmt.Sprintf("%s commented on %s", actor.Username, recipe.Title),
		Link:     recipeLink(recipe.ID),
	})
	if _, err := s.mentions.NotifyMentions(ctx, actor, recipe.ID, text); err != nil {
		s.logger.Warn().Err(err).Str(pkglog.FieldRecipeID, recipe.ID).Msg("failed to resolve mentions")
	}

	return comment, nil
}

func (s *recipeService) ListComments(ctx context.Context, recipeID string, limit int) ([]*domain.RecipeComment, error) {
	if _, err := s.getRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	comments, err := s.social.ListComments(ctx, recipeID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return comments, nil
}

// DeleteComment removes a comment for its author, the recipe's chef or an admin.
func (s *recipeService) DeleteComment(ctx context.Context, actor domain.Identity, recipeID, commentID string) error {
	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	comment, err := s.social.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return fmt.Errorf("%w: comment %s", domain.ErrNotFound, commentID)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if comment.RecipeID != recipe.ID {
		return fmt.Errorf("%w: comment %s", domain.ErrNotFound, commentID)
	}
	if comment.UserID != actor.UserID && recipe.ChefID != actor.UserID && !actor.IsAdmin() {
		return fmt.Errorf("%w: cannot delete another user's comment", domain.ErrForbidden)
	}

	if err := s.social.DeleteComment(ctx, comment.ID); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return fmt.Errorf("%w: comment %s", domain.ErrNotFound, commentID)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	audit.LogWithTarget(ctx, audit.ActionCommentDel, actor.UserID, comment.ID, "comment deleted")
	return nil
}

func (s *recipeService) StartSession(ctx context.Context, actor domain.Identity, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.ownedRecipe(ctx, actor, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.recipes.SetSessionActive(ctx, recipe.ID, true); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	recipe.SessionActive = true

	audit.LogWithTarget(ctx, audit.ActionSessionStart, actor.UserID, recipe.ID, "cooking session started")
	return recipe, nil
}

// EndSession closes the live session and tells everyone still in the room
// except the owner.
func (s *recipeService) EndSession(ctx context.Context, actor domain.Identity, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.ownedRecipe(ctx, actor, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.recipes.SetSessionActive(ctx, recipe.ID, false); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	recipe.SessionActive = false

	for _, member := range s.tracker.MembersOf(recipe.ID) {
		if member == recipe.ChefID {
			continue
		}
		s.notify(ctx, notify.Request{
			TargetID: member,
			ActorID:  actor.UserID,
			Type:     domain.NotificationCollaboration,
			Message:  fmt.Sprintf("The cooking session for %s has ended", recipe.Title),
			Link:     recipeLink(recipe.ID),
		})
	}

	if s.archives != nil {
		if _, err := s.archives.Archive(ctx, recipe); err != nil {
			s.logger.Error().Err(err).Str(pkglog.FieldRecipeID, recipe.ID).Msg("failed to archive session")
		}
	}

	audit.LogWithTarget(ctx, audit.ActionSessionEnd, actor.UserID, recipe.ID, "cooking session ended")
	return recipe, nil
}

// ListArchives returns the stored transcripts of a recipe, newest first.
func (s *recipeService) ListArchives(ctx context.Context, recipeID string) ([]domain.SessionArchive, error) {
	if _, err := s.getRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	if s.archives == nil {
		return []domain.SessionArchive{}, nil
	}
	archives, err := s.archives.List(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return archives, nil
}

func (s *recipeService) ownedRecipe(ctx context.Context, actor domain.Identity, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.getRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.ChefID != actor.UserID || !actor.IsChef() {
		return nil, fmt.Errorf("%w: only the recipe's chef can manage it", domain.ErrForbidden)
	}
	return recipe, nil
}

func validateRecipe(r *domain.Recipe) error {
	switch {
	case r.Title == "":
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	case len(r.Title) > maxTitleLength:
		return fmt.Errorf("%w: title is too long", domain.ErrValidation)
	case r.Servings < 0 || r.PrepTime < 0 || r.CookTime < 0:
		return fmt.Errorf("%w: servings and times cannot be negative", domain.ErrValidation)
	}
	return nil
}

func (s *recipeService) getRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", domain.ErrNotFound, recipeID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return recipe, nil
}

func (s *recipeService) notify(ctx context.Context, req notify.Request) {
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		s.logger.Warn().Err(err).
			Str(pkglog.FieldUserID, req.TargetID).
			Str(pkglog.FieldNotificationType, string(req.Type)).
			Msg("notification dropped")
	}
}
