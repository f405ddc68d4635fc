package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

// GormSocialRepository implements SocialRepository using GORM.
type GormSocialRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

func NewGormSocialRepository(db *gorm.DB, ids idgen.Generator) *GormSocialRepository {
	return &GormSocialRepository{db: db, ids: ids}
}

func (r *GormSocialRepository) ToggleLike(ctx context.Context, recipeID, userID string) (bool, int64, error) {
	var liked bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.RecipeLikeModel
		err := tx.First(&existing, "recipe_id = ? AND user_id = ?", recipeID, userID).Error
		switch {
		case err == nil:
			if err := tx.Delete(&domain.RecipeLikeModel{}, "recipe_id = ? AND user_id = ?", recipeID, userID).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&domain.RecipeLikeModel{RecipeID: recipeID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		return tx.Model(&domain.RecipeLikeModel{}).Where("recipe_id = ?", recipeID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *GormSocialRepository) AddComment(ctx context.Context, comment *domain.RecipeComment) error {
	if err := stamp(r.ids, &comment.ID, &comment.CreatedAt); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&domain.RecipeCommentModel{
		ID:        comment.ID,
		RecipeID:  comment.RecipeID,
		UserID:    comment.UserID,
		Username:  comment.Username,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}).Error
}

func (r *GormSocialRepository) ListComments(ctx context.Context, recipeID string, limit int) ([]*domain.RecipeComment, error) {
	var models []domain.RecipeCommentModel
	if err := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at ASC").Order("id ASC").
		Limit(normalizeLimit(limit)).
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.RecipeComment, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, nil
}

func (r *GormSocialRepository) GetComment(ctx context.Context, id string) (*domain.RecipeComment, error) {
	var model domain.RecipeCommentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormSocialRepository) DeleteComment(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.RecipeCommentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
