package integration

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

const (
	pgUser     = "postgres"
	pgPassword = "postpass"
	pgDatabase = "foodgram_test"
)

// setupPostgres starts a disposable PostgreSQL container and returns a
// migrated connection.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed, skipping container-based test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						pgUser, pgPassword, host, port.Port(), pgDatabase)
				}),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, mappedPort.Port(), pgUser, pgPassword, pgDatabase)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestUniqueConstraintsOnPostgres(t *testing.T) {
	db := setupPostgres(t)

	user := testhelpers.CreateTestUser(t, db, "author")
	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	recipes := service.NewRecipeService(db, nil)
	detail, err := recipes.Create(context.Background(), service.Actor{ID: user.ID}, service.RecipeInput{
		Name:        "Pancakes",
		Image:       "/media/pancakes.png",
		Text:        "Mix and fry.",
		CookingTime: 15,
		TagIDs:      []uint{tag.ID},
		Ingredients: []service.IngredientLine{{ID: flour.ID, Amount: 200}},
	})
	require.NoError(t, err)

	// The composite index, not application code, is the final arbiter for
	// duplicate relation rows.
	first := models.Favorite{UserID: user.ID, RecipeID: detail.ID}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Favorite{UserID: user.ID, RecipeID: detail.ID}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// Same for follows and ingredient identity.
	other := testhelpers.CreateTestUser(t, db, "reader")
	require.NoError(t, db.Create(&models.Follow{FollowerID: other.ID, AuthorID: user.ID}).Error)
	err = db.Create(&models.Follow{FollowerID: other.ID, AuthorID: user.ID}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	err = db.Create(&models.Ingredient{Name: "flour", MeasurementUnit: "g"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
	require.NoError(t, db.Create(&models.Ingredient{Name: "flour", MeasurementUnit: "kg"}).Error)
}

func TestRelationServicesOnPostgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	user := testhelpers.CreateTestUser(t, db, "author")
	viewer := testhelpers.CreateTestUser(t, db, "viewer")
	tag := testhelpers.CreateTestTag(t, db, "breakfast")
	flour := testhelpers.CreateTestIngredient(t, db, "flour", "g")

	recipes := service.NewRecipeService(db, nil)
	detail, err := recipes.Create(ctx, service.Actor{ID: user.ID}, service.RecipeInput{
		Name:        "Pancakes",
		Image:       "/media/pancakes.png",
		Text:        "Mix and fry.",
		CookingTime: 15,
		TagIDs:      []uint{tag.ID},
		Ingredients: []service.IngredientLine{{ID: flour.ID, Amount: 200}},
	})
	require.NoError(t, err)

	favorites := service.NewFavoriteService(db)
	_, err = favorites.Add(ctx, viewer.ID, detail.ID)
	require.NoError(t, err)
	_, err = favorites.Add(ctx, viewer.ID, detail.ID)
	assert.True(t, service.IsAlreadyExists(err))

	cart := service.NewCartService(db)
	_, err = cart.Add(ctx, viewer.ID, detail.ID)
	require.NoError(t, err)

	items, err := service.NewShoppingListService(db).Build(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 200, items[0].Amount)
}
