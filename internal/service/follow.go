package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// SubscriptionView is a followed author annotated with their recipes.
type SubscriptionView struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	IsSubscribed bool            `json:"is_subscribed"`
	Recipes      []RecipeSummary `json:"recipes"`
	RecipesCount int64           `json:"recipes_count"`
}

// FollowService manages author subscriptions.
type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Add subscribes the user to an author and returns the subscription view.
// Following yourself is rejected; a duplicate pair fails with
// AlreadyExistsError.
func (s *FollowService) Add(ctx context.Context, userID, authorID uuid.UUID) (*SubscriptionView, error) {
	if userID == authorID {
		return nil, &ValidationError{Field: "author", Message: "cannot subscribe to yourself"}
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "user", ID: authorID.String()}
		}
		return nil, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &AlreadyExistsError{Message: "subscription already exists"}
	}

	follow := models.Follow{FollowerID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&follow).Error; err != nil {
		return nil, translateDuplicate(err, &AlreadyExistsError{Message: "subscription already exists"})
	}

	return s.subscriptionView(ctx, userID, author, nil)
}

// Remove unsubscribes the user from an author. Missing pairs are an error.
func (s *FollowService) Remove(ctx context.Context, userID, authorID uuid.UUID) error {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &NotFoundError{Resource: "user", ID: authorID.String()}
		}
		return err
	}

	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "subscription", ID: authorID.String()}
	}
	return nil
}

// List returns every author the user follows, each annotated with their
// recipes (capped at recipesLimit when set) and total recipe count. Counts
// and recipes are fetched with one batched query each, not per author.
func (s *FollowService) List(ctx context.Context, userID uuid.UUID, recipesLimit *int) ([]SubscriptionView, error) {
	var follows []models.Follow
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("follower_id = ?", userID).
		Order("created_at DESC").
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	if len(follows) == 0 {
		return []SubscriptionView{}, nil
	}

	authorIDs := make([]uuid.UUID, len(follows))
	for i, follow := range follows {
		authorIDs[i] = follow.AuthorID
	}

	var counts []struct {
		AuthorID uuid.UUID
		Total    int64
	}
	err = s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByAuthor := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Total
	}

	var recipes []models.Recipe
	err = s.db.WithContext(ctx).
		Where("author_id IN ?", authorIDs).
		Order("created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	recipesByAuthor := make(map[uuid.UUID][]RecipeSummary, len(authorIDs))
	for _, recipe := range recipes {
		if recipesLimit != nil && len(recipesByAuthor[recipe.AuthorID]) >= *recipesLimit {
			continue
		}
		recipesByAuthor[recipe.AuthorID] = append(recipesByAuthor[recipe.AuthorID], RecipeSummary{
			ID:          recipe.ID,
			Name:        recipe.Name,
			Image:       recipe.Image,
			CookingTime: recipe.CookingTime,
		})
	}

	views := make([]SubscriptionView, 0, len(follows))
	for _, follow := range follows {
		author := follow.Author
		summaries := recipesByAuthor[author.ID]
		if summaries == nil {
			summaries = []RecipeSummary{}
		}
		views = append(views, SubscriptionView{
			ID:           author.ID,
			Email:        author.Email,
			Username:     author.Username,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			IsSubscribed: true,
			Recipes:      summaries,
			RecipesCount: countByAuthor[author.ID],
		})
	}
	return views, nil
}

// subscriptionView assembles the author annotation. IsSubscribed is resolved
// by an existence check rather than assumed from the calling context, so it
// stays correct if the listing semantics ever change.
func (s *FollowService) subscriptionView(ctx context.Context, viewerID uuid.UUID, author models.User, recipesLimit *int) (*SubscriptionView, error) {
	var subscribed int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", viewerID, author.ID).
		Count(&subscribed).Error
	if err != nil {
		return nil, err
	}

	var recipesCount int64
	err = s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", author.ID).
		Count(&recipesCount).Error
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("author_id = ?", author.ID).
		Order("created_at DESC")
	if recipesLimit != nil && *recipesLimit >= 0 {
		query = query.Limit(*recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	summaries := make([]RecipeSummary, 0, len(recipes))
	for _, recipe := range recipes {
		summaries = append(summaries, RecipeSummary{
			ID:          recipe.ID,
			Name:        recipe.Name,
			Image:       recipe.Image,
			CookingTime: recipe.CookingTime,
		})
	}

	return &SubscriptionView{
		ID:           author.ID,
		Email:        author.Email,
		Username:     author.Username,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		IsSubscribed: subscribed > 0,
		Recipes:      summaries,
		RecipesCount: recipesCount,
	}, nil
}
