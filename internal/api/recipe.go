package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
)

type RecipeHandler struct {
	recipeService   *service.RecipeService
	favoriteService *service.FavoriteService
	cartService     *service.CartService
	shoppingList    *service.ShoppingListService
}

func NewRecipeHandler(
	recipeService *service.RecipeService,
	favoriteService *service.FavoriteService,
	cartService *service.CartService,
	shoppingList *service.ShoppingListService,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		favoriteService: favoriteService,
		cartService:     cartService,
		shoppingList:    shoppingList,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, validator middleware.TokenValidator) {
	optional := middleware.OptionalAuthMiddleware(validator)
	required := middleware.AuthMiddleware(validator)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.POST("", required, h.CreateRecipe)
		recipes.PATCH("/:id", required, h.UpdateRecipe)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite", required, h.Favorite)
		recipes.DELETE("/:id/favorite", required, h.Unfavorite)
		recipes.POST("/:id/shopping_cart", required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filters := service.ListFilters{
		TagSlugs: c.QueryArray("tags"),
	}
	filters.Limit, filters.Offset = pageParams(c)

	if raw := c.Query("author"); raw != "" {
		authorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filters.AuthorID = &authorID
	}
	// Presence of the parameter activates the filter, whatever its value.
	filters.FavoritedOnly = c.Query("is_favorited") != ""
	filters.InCartOnly = c.Query("is_in_shopping_cart") != ""

	viewer := viewerID(c)
	results, total, err := h.recipeService.List(c.Request.Context(), viewer, filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Count: total, Results: results})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipeID, ok := parseRecipeID(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), recipeID, viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var input service.RecipeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipeID, ok := parseRecipeID(c)
	if !ok {
		return
	}

	var input service.RecipeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), recipeID, actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipeID, ok := parseRecipeID(c)
	if !ok {
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), recipeID, actor); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	h.addRelation(c, func(c *gin.Context, userID, recipeID uuid.UUID) (interface{}, error) {
		return h.favoriteService.Add(c.Request.Context(), userID, recipeID)
	})
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	h.removeRelation(c, func(c *gin.Context, userID, recipeID uuid.UUID) error {
		return h.favoriteService.Remove(c.Request.Context(), userID, recipeID)
	})
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, func(c *gin.Context, userID, recipeID uuid.UUID) (interface{}, error) {
		return h.cartService.Add(c.Request.Context(), userID, recipeID)
	})
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, func(c *gin.Context, userID, recipeID uuid.UUID) error {
		return h.cartService.Remove(c.Request.Context(), userID, recipeID)
	})
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	items, err := h.shoppingList.Build(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.Render(items)))
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(*gin.Context, uuid.UUID, uuid.UUID) (interface{}, error)) {
	recipeID, ok := parseRecipeID(c)
	if !ok {
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	summary, err := add(c, userID, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(*gin.Context, uuid.UUID, uuid.UUID) error) {
	recipeID, ok := parseRecipeID(c)
	if !ok {
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := remove(c, userID, recipeID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseRecipeID(c *gin.Context) (uuid.UUID, bool) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return uuid.Nil, false
	}
	return recipeID, true
}

func viewerID(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.CurrentUserID(c); ok {
		return &id
	}
	return nil
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return service.Actor{}, false
	}
	return service.Actor{ID: userID, IsAdmin: middleware.IsAdmin(c)}, true
}
