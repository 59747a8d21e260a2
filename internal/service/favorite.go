package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// FavoriteService manages the (user, recipe) favorite relation.
type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// Add favorites a recipe for the user and returns the recipe summary.
// A duplicate pair fails with AlreadyExistsError; the composite unique index
// decides races between concurrent adds.
func (s *FavoriteService) Add(ctx context.Context, userID, recipeID uuid.UUID) (*RecipeSummary, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return nil, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &AlreadyExistsError{Message: "recipe already favorited"}
	}

	favorite := models.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&favorite).Error; err != nil {
		return nil, translateDuplicate(err, &AlreadyExistsError{Message: "recipe already favorited"})
	}

	return &RecipeSummary{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}, nil
}

// Remove deletes the favorite pair. Removing a pair that does not exist is an
// error, not a no-op.
func (s *FavoriteService) Remove(ctx context.Context, userID, recipeID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "favorite", ID: recipeID.String()}
	}
	return nil
}
