package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

func recipePayload(tagID, ingredientID uint) map[string]interface{} {
	return map[string]interface{}{
		"name":         "Pancakes",
		"image":        "/media/pancakes.png",
		"text":         "Mix and fry.",
		"cooking_time": 15,
		"tags":         []uint{tagID},
		"ingredients": []map[string]interface{}{
			{"id": ingredientID, "amount": 200},
		},
	}
}

func TestCreateRecipeEndpoint(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, token := createUserAndToken(t, db, auth, "author")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var detail service.RecipeDetail
	decodeBody(t, w, &detail)
	assert.Equal(t, "Pancakes", detail.Name)
	assert.Equal(t, "author", detail.Author.Username)
	require.Len(t, detail.Ingredients, 1)
	assert.Equal(t, 200, detail.Ingredients[0].Amount)
}

func TestCreateRecipeRequiresAuth(t *testing.T) {
	router, db, _ := setupTestRouter(t)

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", "", recipePayload(tag.ID, flour.ID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/recipes", "bogus-token", recipePayload(tag.ID, flour.ID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRecipeValidationStatus(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, token := createUserAndToken(t, db, auth, "author")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	payload := recipePayload(tag.ID, flour.ID)
	payload["cooking_time"] = 0
	w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payload = recipePayload(tag.ID, flour.ID)
	payload["tags"] = []uint{9999}
	w = doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecipeEndpoint(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, token := createUserAndToken(t, db, auth, "author")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)

	// Anonymous read works and shows false flags.
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail service.RecipeDetail
	decodeBody(t, w, &detail)
	assert.Equal(t, created.ID, detail.ID)
	assert.False(t, detail.IsFavorited)

	w = doJSON(t, router, "GET", "/api/v1/recipes/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/recipes/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRecipeForbiddenForStranger(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, authorToken := createUserAndToken(t, db, auth, "author")
	_, strangerToken := createUserAndToken(t, db, auth, "stranger")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)

	payload := recipePayload(tag.ID, flour.ID)
	payload["name"] = "Hijacked"
	w = doJSON(t, router, "PATCH", "/api/v1/recipes/"+created.ID.String(), strangerToken, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	payload["name"] = "Renamed"
	w = doJSON(t, router, "PATCH", "/api/v1/recipes/"+created.ID.String(), authorToken, payload)
	require.Equal(t, http.StatusOK, w.Code)

	var updated service.RecipeDetail
	decodeBody(t, w, &updated)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestAdminCanDeleteForeignRecipe(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, authorToken := createUserAndToken(t, db, auth, "author")

	admin, _ := createUserAndToken(t, db, auth, "admin")
	require.NoError(t, db.Model(admin).Update("is_admin", true).Error)
	_, adminToken, err := auth.Login(context.Background(), admin.Email, "password123")
	require.NoError(t, err)

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)

	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+created.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/recipes/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecipesEndpoint(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, token := createUserAndToken(t, db, auth, "author")

	breakfast := testhelpers.CreateTestTag(t, db, "breakfast")
	lunch := testhelpers.CreateTestTag(t, db, "lunch")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload(breakfast.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	payload := recipePayload(lunch.ID, flour.ID)
	payload["name"] = "Soup"
	w = doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var page struct {
		Count   int64                  `json:"count"`
		Results []service.RecipeDetail `json:"results"`
	}

	w = doJSON(t, router, "GET", "/api/v1/recipes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	// Newest first.
	assert.Equal(t, "Soup", page.Results[0].Name)

	w = doJSON(t, router, "GET", "/api/v1/recipes?tags=lunch", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.EqualValues(t, 1, page.Count)

	w = doJSON(t, router, "GET", "/api/v1/recipes?tags=breakfast&tags=lunch", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.EqualValues(t, 2, page.Count)

	w = doJSON(t, router, "GET", "/api/v1/recipes?limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.EqualValues(t, 2, page.Count)
	assert.Len(t, page.Results, 1)

	w = doJSON(t, router, "GET", "/api/v1/recipes?author=not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoriteEndpoints(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, authorToken := createUserAndToken(t, db, auth, "author")
	_, viewerToken := createUserAndToken(t, db, auth, "viewer")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)
	base := "/api/v1/recipes/" + created.ID.String()

	w = doJSON(t, router, "POST", base+"/favorite", viewerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var summary service.RecipeSummary
	decodeBody(t, w, &summary)
	assert.Equal(t, created.ID, summary.ID)

	// Double add is a client error.
	w = doJSON(t, router, "POST", base+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The flag follows the viewer.
	w = doJSON(t, router, "GET", base, viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail service.RecipeDetail
	decodeBody(t, w, &detail)
	assert.True(t, detail.IsFavorited)

	w = doJSON(t, router, "DELETE", base+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "DELETE", base+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRelationFiltersActivateOnPresence(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, authorToken := createUserAndToken(t, db, auth, "author")
	_, viewerToken := createUserAndToken(t, db, auth, "viewer")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload(tag.ID, flour.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)

	payload := recipePayload(tag.ID, flour.ID)
	payload["name"] = "Soup"
	w = doJSON(t, router, "POST", "/api/v1/recipes", authorToken, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+created.ID.String()+"/favorite", viewerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var page struct {
		Count   int64                  `json:"count"`
		Results []service.RecipeDetail `json:"results"`
	}

	// Any present value activates the filter, including "0".
	for _, query := range []string{"is_favorited=1", "is_favorited=true", "is_favorited=0"} {
		w = doJSON(t, router, "GET", "/api/v1/recipes?"+query, viewerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decodeBody(t, w, &page)
		assert.EqualValues(t, 1, page.Count, query)
		require.Len(t, page.Results, 1, query)
		assert.Equal(t, created.ID, page.Results[0].ID, query)
	}

	// An absent parameter leaves the listing unfiltered.
	w = doJSON(t, router, "GET", "/api/v1/recipes", viewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.EqualValues(t, 2, page.Count)
}

func TestShoppingCartDownload(t *testing.T) {
	router, db, auth := setupTestRouter(t)
	_, token := createUserAndToken(t, db, auth, "author")

	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")
	eggs := testhelpers.CreateTestIngredient(t, db, "eggs", "pcs")

	payload := recipePayload(tag.ID, flour.ID)
	payload["ingredients"] = []map[string]interface{}{
		{"id": flour.ID, "amount": 200},
		{"id": eggs.ID, "amount": 2},
	}
	w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.RecipeDetail
	decodeBody(t, w, &created)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+created.ID.String()+"/shopping_cart", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shopping_list.txt")
	assert.Equal(t, "eggs - 2 pcs\nflour - 200 g\n", w.Body.String())

	// Downloads are private.
	w = doJSON(t, router, "GET", "/api/v1/recipes/download_shopping_cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
