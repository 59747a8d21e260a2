package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/logging"
	"github.com/foodgram/backend/internal/router"
	"github.com/foodgram/backend/internal/server"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log := logging.L()

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	cache, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var store storage.Storage
	if cfg.S3Bucket != "" {
		store, err = storage.NewS3Storage(context.Background(), cfg.S3Bucket, cfg.S3Region)
	} else {
		store, err = storage.NewLocalStorage(cfg.MediaDir)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise image storage")
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	imageService := service.NewImageService(store)
	recipeService := service.NewRecipeService(db, imageService)
	favoriteService := service.NewFavoriteService(db)
	cartService := service.NewCartService(db)
	followService := service.NewFollowService(db)
	shoppingList := service.NewShoppingListService(db)
	refDataService := service.NewRefDataService(db, cache)

	engine := router.Setup(
		api.NewAuthHandler(authService),
		api.NewRecipeHandler(recipeService, favoriteService, cartService, shoppingList),
		api.NewRefDataHandler(refDataService),
		api.NewUserHandler(followService),
		authService,
	)

	srv := server.New(engine, cfg.ServerPort)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}
