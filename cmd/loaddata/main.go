package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/logging"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

type ingredientFixture struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagFixture struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "path to the ingredients fixture")
	tagsPath := flag.String("tags", "", "path to an optional tags fixture")
	flag.Parse()

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
		log.Fatal().Err(err).Msg("migration failed")
	}

	var ingredients []ingredientFixture
	if err := readFixture(*ingredientsPath, &ingredients); err != nil {
		log.Fatal().Err(err).Str("path", *ingredientsPath).Msg("failed to read ingredients fixture")
	}

	created := 0
	for _, ing := range ingredients {
		if ing.Name == "" || ing.MeasurementUnit == "" {
			log.Warn().Str("name", ing.Name).Msg("skipping incomplete ingredient")
			continue
		}
		row := models.Ingredient{Name: ing.Name, MeasurementUnit: ing.MeasurementUnit}
		res := db.Where("name = ? AND measurement_unit = ?", ing.Name, ing.MeasurementUnit).
			FirstOrCreate(&row)
		if res.Error != nil {
			log.Fatal().Err(res.Error).Str("name", ing.Name).Msg("failed to load ingredient")
		}
		created += int(res.RowsAffected)
	}
	log.Info().Int("total", len(ingredients)).Int("created", created).Msg("ingredients loaded")

	if *tagsPath != "" {
		var tags []tagFixture
		if err := readFixture(*tagsPath, &tags); err != nil {
			log.Fatal().Err(err).Str("path", *tagsPath).Msg("failed to read tags fixture")
		}
		for _, t := range tags {
			row := models.Tag{Name: t.Name, Color: t.Color, Slug: t.Slug}
			if err := db.Where("slug = ?", t.Slug).FirstOrCreate(&row).Error; err != nil {
				log.Fatal().Err(err).Str("slug", t.Slug).Msg("failed to load tag")
			}
		}
		log.Info().Int("total", len(tags)).Msg("tags loaded")
	}

	cache, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, skipping cache invalidation")
		return
	}
	refData := service.NewRefDataService(db, cache)
	refData.InvalidateCache(context.Background())
}

func readFixture(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
