package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB, ids idgen.Generator) *GormUserRepository {
	return &GormUserRepository{db: db, ids: ids}
}

// Create creates a new user.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		user.ID = id
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.ChefRequest == "" {
		user.ChefRequest = domain.ChefRequestNone
	}
	user.Email = strings.ToLower(user.Email)

	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return handleError(err)
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email.
func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "LOWER(username) = ?", strings.ToLower(username))
}

// UpdateRole updates role and chef request status.
func (r *GormUserRepository) UpdateRole(ctx context.Context, id, role, chefRequest string) error {
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":         role,
			"chef_request": chefRequest,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListByChefRequest lists users by chef request status.
func (r *GormUserRepository) ListByChefRequest(ctx context.Context, status string) ([]*domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).
		Where("chef_request = ?", status).
		Order("updated_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

func (r *GormUserRepository) first(ctx context.Context, where string, arg string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).First(&model, where, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
