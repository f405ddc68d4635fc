package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

// GormRecipeRepository implements RecipeRepository using GORM.
type GormRecipeRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

func NewGormRecipeRepository(db *gorm.DB, ids idgen.Generator) *GormRecipeRepository {
	return &GormRecipeRepository{db: db, ids: ids}
}

func (r *GormRecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	if recipe.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		recipe.ID = id
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
	if recipe.Ingredients == nil {
		recipe.Ingredients = []string{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}

	model := domain.RecipeToModel(recipe)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	recipe.CreatedAt = model.CreatedAt
	recipe.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormRecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var model domain.RecipeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormRecipeRepository) List(ctx context.Context, chefID string, offset, limit int) ([]*domain.Recipe, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.RecipeModel{})
	if chefID != "" {
		query = query.Where("chef_id = ?", chefID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []domain.RecipeModel
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Recipe, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, total, nil
}

func (r *GormRecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()
	model := domain.RecipeToModel(recipe)

	result := r.db.WithContext(ctx).Model(&domain.RecipeModel{}).
		Where("id = ?", recipe.ID).
		Updates(map[string]interface{}{
			"title":        model.Title,
			"description":  model.Description,
			"ingredients":  model.Ingredients,
			"instructions": model.Instructions,
			"servings":     model.Servings,
			"prep_time":    model.PrepTime,
			"cook_time":    model.CookTime,
			"total_time":   model.TotalTime,
			"category":     model.Category,
			"tags":         model.Tags,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func (r *GormRecipeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.RecipeModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecipeNotFound
		}
		if err := tx.Delete(&domain.RecipeLikeModel{}, "recipe_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.RecipeCommentModel{}, "recipe_id = ?", id).Error
	})
}

func (r *GormRecipeRepository) SetSessionActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&domain.RecipeModel{}).
		Where("id = ?", id).
		Update("session_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}
