package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// Actor identifies the authenticated user performing a write.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// IngredientLine is one submitted ingredient reference with its amount.
type IngredientLine struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeInput carries the submitted fields for a recipe create or update.
type RecipeInput struct {
	Name        string           `json:"name"`
	Image       string           `json:"image"`
	Text        string           `json:"text"`
	CookingTime int              `json:"cooking_time"`
	TagIDs      []uint           `json:"tags"`
	Ingredients []IngredientLine `json:"ingredients"`
}

// UserView is the public representation of a user.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// IngredientView is an ingredient line resolved against reference data.
type IngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeDetail is the full recipe representation with per-viewer derived flags.
type RecipeDetail struct {
	ID               uuid.UUID        `json:"id"`
	Tags             []models.Tag     `json:"tags"`
	Author           UserView         `json:"author"`
	Ingredients      []IngredientView `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int              `json:"cooking_time"`
	CreatedAt        time.Time        `json:"created_at"`
}

// RecipeSummary is the short representation returned by the relation toggles.
type RecipeSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

// ListFilters configures a recipe listing. Filters compose conjunctively;
// the tag filter keeps recipes having at least one matching slug.
type ListFilters struct {
	TagSlugs      []string
	AuthorID      *uuid.UUID
	FavoritedOnly bool
	InCartOnly    bool
	Limit         int
	Offset        int
}

// RecipeService validates and atomically rewrites recipes together with their
// tag and ingredient sets, and builds filtered, annotated listings.
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

// NewRecipeService creates a new RecipeService instance. The image service is
// optional; without it, image payloads are stored verbatim.
func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// Create validates the input and persists the recipe with its tag and
// ingredient sets in one transaction. Nothing is written on validation
// failure.
func (s *RecipeService) Create(ctx context.Context, author Actor, input RecipeInput) (*RecipeDetail, error) {
	if err := validateRecipeInput(input); err != nil {
		return nil, err
	}

	image, err := s.storeImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    author.ID,
		Name:        input.Name,
		Image:       image,
		Text:        input.Text,
		CookingTime: input.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveReferences(tx, input); err != nil {
			return err
		}
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		return insertJoinRows(tx, recipe.ID, input)
	})
	if err != nil {
		return nil, err
	}

	viewer := author.ID
	return s.Get(ctx, recipe.ID, &viewer)
}

// Update replaces the recipe's scalar fields and performs a full replace of
// both join sets in one transaction. The author never changes.
func (s *RecipeService) Update(ctx context.Context, recipeID uuid.UUID, actor Actor, input RecipeInput) (*RecipeDetail, error) {
	if err := validateRecipeInput(input); err != nil {
		return nil, err
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return nil, err
	}

	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return nil, &PermissionError{Message: "only the author or an admin may modify this recipe"}
	}

	image := recipe.Image
	if input.Image != "" {
		stored, err := s.storeImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		image = stored
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveReferences(tx, input); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         input.Name,
			"image":        image,
			"text":         input.Text,
			"cooking_time": input.CookingTime,
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return err
		}

		// Full replace: discard both join sets and recreate them from the
		// submitted input, all inside the same transaction.
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return insertJoinRows(tx, recipeID, input)
	})
	if err != nil {
		return nil, err
	}

	viewer := actor.ID
	return s.Get(ctx, recipeID, &viewer)
}

// Delete removes a recipe and its dependent rows. Author-or-admin only.
func (s *RecipeService) Delete(ctx context.Context, recipeID uuid.UUID, actor Actor) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return err
	}

	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return &PermissionError{Message: "only the author or an admin may delete this recipe"}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.RecipeTag{}, &models.RecipeIngredient{},
			&models.Favorite{}, &models.ShoppingCartItem{},
		} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, "id = ?", recipeID).Error
	})
}

// Get retrieves a recipe with its relations and the viewer's derived flags.
func (s *RecipeService) Get(ctx context.Context, recipeID uuid.UUID, viewer *uuid.UUID) (*RecipeDetail, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags.Tag").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", recipeID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "recipe", ID: recipeID.String()}
		}
		return nil, err
	}

	details, err := s.annotate(ctx, []models.Recipe{recipe}, viewer)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// List builds a filtered, annotated recipe listing ordered newest first.
// It returns the page of results and the total match count.
func (s *RecipeService) List(ctx context.Context, viewer *uuid.UUID, filters ListFilters) ([]RecipeDetail, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(filters.TagSlugs) > 0 {
		tagged := s.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filters.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}

	if filters.AuthorID != nil {
		query = query.Where("author_id = ?", *filters.AuthorID)
	}

	// Anonymous viewers resolve the relation filters against the empty set.
	viewerID := uuid.Nil
	if viewer != nil {
		viewerID = *viewer
	}
	if filters.FavoritedOnly {
		favorited := s.db.Model(&models.Favorite{}).
			Select("recipe_id").
			Where("user_id = ?", viewerID)
		query = query.Where("recipes.id IN (?)", favorited)
	}
	if filters.InCartOnly {
		carted := s.db.Model(&models.ShoppingCartItem{}).
			Select("recipe_id").
			Where("user_id = ?", viewerID)
		query = query.Where("recipes.id IN (?)", carted)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC").
		Preload("Author").
		Preload("Tags.Tag").
		Preload("Ingredients.Ingredient")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	details, err := s.annotate(ctx, recipes, viewer)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// annotate builds detail views with the viewer's derived flags. The flags are
// resolved with one batched existence query per relation, not per recipe.
func (s *RecipeService) annotate(ctx context.Context, recipes []models.Recipe, viewer *uuid.UUID) ([]RecipeDetail, error) {
	favoriteSet := map[uuid.UUID]bool{}
	cartSet := map[uuid.UUID]bool{}

	if viewer != nil && len(recipes) > 0 {
		ids := make([]uuid.UUID, len(recipes))
		for i := range recipes {
			ids[i] = recipes[i].ID
		}

		var favorites []models.Favorite
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id IN ?", *viewer, ids).
			Find(&favorites).Error
		if err != nil {
			return nil, err
		}
		for _, f := range favorites {
			favoriteSet[f.RecipeID] = true
		}

		var cartItems []models.ShoppingCartItem
		err = s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id IN ?", *viewer, ids).
			Find(&cartItems).Error
		if err != nil {
			return nil, err
		}
		for _, item := range cartItems {
			cartSet[item.RecipeID] = true
		}
	}

	details := make([]RecipeDetail, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]

		tags := make([]models.Tag, 0, len(r.Tags))
		for _, rt := range r.Tags {
			tags = append(tags, rt.Tag)
		}

		ingredients := make([]IngredientView, 0, len(r.Ingredients))
		for _, ri := range r.Ingredients {
			ingredients = append(ingredients, IngredientView{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			})
		}

		details = append(details, RecipeDetail{
			ID:   r.ID,
			Tags: tags,
			Author: UserView{
				ID:        r.Author.ID,
				Email:     r.Author.Email,
				Username:  r.Author.Username,
				FirstName: r.Author.FirstName,
				LastName:  r.Author.LastName,
			},
			Ingredients:      ingredients,
			IsFavorited:      favoriteSet[r.ID],
			IsInShoppingCart: cartSet[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
			CreatedAt:        r.CreatedAt,
		})
	}
	return details, nil
}

func (s *RecipeService) storeImage(ctx context.Context, image string) (string, error) {
	if s.images == nil || !strings.HasPrefix(image, "data:") {
		return image, nil
	}
	return s.images.Store(ctx, image)
}

// validateRecipeInput enforces the write-time rules. All rules run before any
// database write so a failed submission persists nothing.
func validateRecipeInput(input RecipeInput) error {
	if len(input.TagIDs) == 0 {
		return &ValidationError{Field: "tags", Message: "must select at least one tag"}
	}
	seenTags := make(map[uint]bool, len(input.TagIDs))
	for _, id := range input.TagIDs {
		if seenTags[id] {
			return &ValidationError{Field: "tags", Message: "tags must be unique"}
		}
		seenTags[id] = true
	}

	if input.CookingTime < 1 {
		return &ValidationError{Field: "cooking_time", Message: "cooking time must be at least 1 minute"}
	}

	if len(input.Ingredients) == 0 {
		return &ValidationError{Field: "ingredients", Message: "must select at least one ingredient"}
	}
	seenIngredients := make(map[uint]bool, len(input.Ingredients))
	for _, line := range input.Ingredients {
		if line.Amount <= 0 {
			return &ValidationError{Field: "ingredients", Message: "amount must be greater than 0"}
		}
		if seenIngredients[line.ID] {
			return &ValidationError{Field: "ingredients", Message: "ingredients must be unique"}
		}
		seenIngredients[line.ID] = true
	}

	return nil
}

// resolveReferences verifies every submitted tag and ingredient id against
// the reference tables inside the write transaction.
func resolveReferences(tx *gorm.DB, input RecipeInput) error {
	var tagCount int64
	if err := tx.Model(&models.Tag{}).Where("id IN ?", input.TagIDs).Count(&tagCount).Error; err != nil {
		return err
	}
	if tagCount != int64(len(input.TagIDs)) {
		missing, err := missingIDs(tx, &models.Tag{}, input.TagIDs)
		if err != nil {
			return err
		}
		return &NotFoundError{Resource: "tag", ID: missing}
	}

	ingredientIDs := make([]uint, len(input.Ingredients))
	for i, line := range input.Ingredients {
		ingredientIDs[i] = line.ID
	}
	var ingredientCount int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ingredientIDs).Count(&ingredientCount).Error; err != nil {
		return err
	}
	if ingredientCount != int64(len(ingredientIDs)) {
		missing, err := missingIDs(tx, &models.Ingredient{}, ingredientIDs)
		if err != nil {
			return err
		}
		return &NotFoundError{Resource: "ingredient", ID: missing}
	}

	return nil
}

func missingIDs(tx *gorm.DB, model interface{}, ids []uint) (string, error) {
	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return "", err
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return fmt.Sprint(id), nil
		}
	}
	return "", nil
}

func insertJoinRows(tx *gorm.DB, recipeID uuid.UUID, input RecipeInput) error {
	recipeTags := make([]models.RecipeTag, len(input.TagIDs))
	for i, tagID := range input.TagIDs {
		recipeTags[i] = models.RecipeTag{RecipeID: recipeID, TagID: tagID}
	}
	if err := tx.Create(&recipeTags).Error; err != nil {
		return err
	}

	recipeIngredients := make([]models.RecipeIngredient, len(input.Ingredients))
	for i, line := range input.Ingredients {
		recipeIngredients[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.ID,
			Amount:       line.Amount,
		}
	}
	return tx.Create(&recipeIngredients).Error
}
