package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

// setupTestRouter wires the full handler stack over an in-memory database.
func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	auth := service.NewAuthService(db, "test-secret")

	recipes := service.NewRecipeService(db, nil)
	favorites := service.NewFavoriteService(db)
	cart := service.NewCartService(db)
	follows := service.NewFollowService(db)
	shopping := service.NewShoppingListService(db)
	refData := service.NewRefDataService(db, nil)

	router := gin.New()
	router.Use(gin.Recovery())
	v1 := router.Group("/api/v1")

	NewAuthHandler(auth).RegisterRoutes(v1)
	NewRefDataHandler(refData).RegisterRoutes(v1)
	NewRecipeHandler(recipes, favorites, cart, shopping).RegisterRoutes(v1, auth)
	NewUserHandler(follows).RegisterRoutes(v1, auth)

	return router, db, auth
}

// createUserAndToken inserts a user and returns a valid bearer token for them.
func createUserAndToken(t *testing.T, db *gorm.DB, auth *service.AuthService, username string) (*models.User, string) {
	t.Helper()

	user := testhelpers.CreateTestUser(t, db, username)
	_, token, err := auth.Login(context.Background(), user.Email, "password123")
	if err != nil {
		t.Fatalf("failed to log test user in: %v", err)
	}
	return user, token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
}
