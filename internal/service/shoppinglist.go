package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShoppingListItem is one aggregated line of the shopping list.
type ShoppingListItem struct {
	IngredientID    uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// ShoppingListService computes the viewer's aggregated shopping list from
// the recipes in their cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Build sums ingredient amounts across every recipe in the user's cart,
// grouped by ingredient identity. Grouping by id rather than name keeps
// distinct ingredients apart even when they share a display name. The result
// is sorted by ingredient name for determinism; an empty cart yields an
// empty list.
func (s *ShoppingListService) Build(ctx context.Context, userID uuid.UUID) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.id AS ingredient_id, ingredients.name, ingredients.measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Render formats the list as the text/plain download body, one line per
// ingredient.
func Render(items []ShoppingListItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d %s\n", item.Name, item.Amount, item.MeasurementUnit)
	}
	return b.String()
}
