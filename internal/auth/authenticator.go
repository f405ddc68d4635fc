package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/pkg/jwt"
	"github.com/weiawesome/wes-cook-live/pkg/middleware"
)

// UserLookup resolves a user by id.
type UserLookup interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator turns a bearer credential into an Identity.
type Authenticator struct {
	tokens *jwt.Manager
	users  UserLookup
}

func NewAuthenticator(tokens *jwt.Manager, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate validates token and loads the user it names. Failures are
// domain AuthErrors; a store outage is returned wrapped as is.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrMissingToken):
			return nil, domain.ErrMissingCredential
		case errors.Is(err, jwt.ErrExpiredToken):
			return nil, domain.ErrExpiredCredential
		default:
			return nil, domain.ErrInvalidCredential
		}
	}

	user, err := a.users.ByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.ErrUnknownIdentity
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	identity := domain.IdentityOf(user)
	return &identity, nil
}

// Verify adapts Authenticate for the HTTP auth middleware.
func (a *Authenticator) Verify(ctx context.Context, token string) (*middleware.Principal, error) {
	identity, err := a.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{
		UserID:   identity.UserID,
		Email:    identity.Email,
		Username: identity.Username,
		Role:     identity.Role,
	}, nil
}
