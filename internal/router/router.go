package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/logging"
	"github.com/foodgram/backend/internal/middleware"
)

// Setup configures the application routes.
func Setup(
	authHandler *api.AuthHandler,
	recipeHandler *api.RecipeHandler,
	refDataHandler *api.RefDataHandler,
	userHandler *api.UserHandler,
	validator middleware.TokenValidator,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(logging.L()))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	v1 := router.Group("/api/v1")

	authHandler.RegisterRoutes(v1)
	refDataHandler.RegisterRoutes(v1)
	recipeHandler.RegisterRoutes(v1, validator)
	userHandler.RegisterRoutes(v1, validator)

	return router
}
