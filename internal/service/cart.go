package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// CartService manages the (user, recipe) shopping-cart relation.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// Add puts a recipe into the user's shopping cart and returns the recipe
// summary. Duplicate carting of the same recipe fails with
// AlreadyExistsError, which also rules out double-counting in the aggregated
// shopping list.
func (s *CartService) Add(ctx context.Context, userID, recipeID uuid.UUID) (*RecipeSummary, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return nil, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &AlreadyExistsError{Message: "recipe already in shopping cart"}
	}

	item := models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, translateDuplicate(err, &AlreadyExistsError{Message: "recipe already in shopping cart"})
	}

	return &RecipeSummary{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}, nil
}

// Remove takes a recipe out of the cart. Missing pairs are an error.
func (s *CartService) Remove(ctx context.Context, userID, recipeID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.ShoppingCartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "shopping cart item", ID: recipeID.String()}
	}
	return nil
}
