package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/logging"
	"github.com/foodgram/backend/internal/models"
)

const refdataCacheTTL = 10 * time.Minute

// RefDataService serves tags and ingredients. Both are reference data loaded
// from fixtures and rarely mutated, so full lists are cached in Redis when a
// client is available. A nil cache degrades to plain DB reads.
type RefDataService struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewRefDataService(db *gorm.DB, cache *redis.Client) *RefDataService {
	return &RefDataService{db: db, cache: cache}
}

// ListTags returns all tags.
func (s *RefDataService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if s.cacheGet(ctx, "refdata:tags", &tags) {
		return tags, nil
	}

	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	s.cacheSet(ctx, "refdata:tags", tags)
	return tags, nil
}

// GetTag returns one tag by id.
func (s *RefDataService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "tag", ID: fmt.Sprint(id)}
		}
		return nil, err
	}
	return &tag, nil
}

// ListIngredients returns ingredients, optionally filtered by a
// case-insensitive name prefix.
func (s *RefDataService) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	cacheKey := ""
	if namePrefix == "" {
		cacheKey = "refdata:ingredients"
		if s.cacheGet(ctx, cacheKey, &ingredients) {
			return ingredients, nil
		}
	}

	query := s.db.WithContext(ctx).Order("name")
	if namePrefix != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", namePrefix+"%")
	}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}

	if cacheKey != "" {
		s.cacheSet(ctx, cacheKey, ingredients)
	}
	return ingredients, nil
}

// GetIngredient returns one ingredient by id.
func (s *RefDataService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "ingredient", ID: fmt.Sprint(id)}
		}
		return nil, err
	}
	return &ingredient, nil
}

// InvalidateCache drops the cached reference lists. Called after fixture
// loads.
func (s *RefDataService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, "refdata:tags", "refdata:ingredients").Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate refdata cache")
	}
}

func (s *RefDataService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("refdata cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("refdata cache entry corrupt")
		return false
	}
	return true
}

func (s *RefDataService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, refdataCacheTTL).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("refdata cache write failed")
	}
}
