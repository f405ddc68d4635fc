package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/audit"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

// UserCache is dropped for a user whose role changed.
type UserCache interface {
	Invalidate(ctx context.Context, u *domain.User)
}

// UserService manages chef requests.
type UserService interface {
	RequestChef(ctx context.Context, userID string) (*domain.User, error)
	ListChefRequests(ctx context.Context) ([]*domain.User, error)
	ApproveChef(ctx context.Context, adminID, userID string) (*domain.User, error)
	RejectChef(ctx context.Context, adminID, userID string) (*domain.User, error)
}

type userService struct {
	users    repository.UserRepository
	cache    UserCache
	notifier Notifier
	logger   zerolog.Logger
}

func NewUserService(users repository.UserRepository, cache UserCache, notifier Notifier) UserService {
	return &userService{
		users:    users,
		cache:    cache,
		notifier: notifier,
		logger:   pkglog.Component("user"),
	}
}

func (s *userService) RequestChef(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case user.Role == domain.RoleChef || user.ChefRequest == domain.ChefRequestApproved:
		return nil, fmt.Errorf("%w: already a chef", domain.ErrConflict)
	case user.ChefRequest == domain.ChefRequestPending:
		return user, nil
	}

	if err := s.setRole(ctx, user, user.Role, domain.ChefRequestPending); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionChefRequest, user.ID, "chef request submitted")
	return user, nil
}

func (s *userService) ListChefRequests(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.ListByChefRequest(ctx, domain.ChefRequestPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return users, nil
}

func (s *userService) ApproveChef(ctx context.Context, adminID, userID string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.setRole(ctx, user, domain.RoleChef, domain.ChefRequestApproved); err != nil {
		return nil, err
	}

	audit.LogWithTarget(ctx, audit.ActionChefDecision, adminID, user.ID, "chef request approved")
	s.notify(ctx, notify.Request{
		TargetID: user.ID,
		ActorID:  adminID,
		Type:     domain.NotificationChefApproval,
		Message:  "Your chef request was approved",
	})
	return user, nil
}

func (s *userService) RejectChef(ctx context.Context, adminID, userID string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ChefRequest != domain.ChefRequestPending {
		return nil, fmt.Errorf("%w: no pending chef request", domain.ErrConflict)
	}
	if err := s.setRole(ctx, user, user.Role, domain.ChefRequestRejected); err != nil {
		return nil, err
	}

	audit.LogWithTarget(ctx, audit.ActionChefDecision, adminID, user.ID, "chef request rejected")
	s.notify(ctx, notify.Request{
		TargetID: user.ID,
		ActorID:  adminID,
		Type:     domain.NotificationSystem,
		Message:  "Your chef request was rejected",
	})
	return user, nil
}

func (s *userService) setRole(ctx context.Context, user *domain.User, role, chefRequest string) error {
	if err := s.users.UpdateRole(ctx, user.ID, role, chefRequest); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	user.Role = role
	user.ChefRequest = chefRequest
	if s.cache != nil {
		s.cache.Invalidate(ctx, user)
	}
	return nil
}

func (s *userService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return user, nil
}

func (s *userService) notify(ctx context.Context, req notify.Request) {
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		s.logger.Warn().Err(err).
			Str(pkglog.FieldUserID, req.TargetID).
			Str(pkglog.FieldNotificationType, string(req.Type)).
			Msg("notification dropped")
	}
}
