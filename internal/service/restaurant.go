package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/event"
	"github.com/utafrali/bitebook/internal/repository"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
)

// RestaurantService implements restaurants and their reviews.
type RestaurantService struct {
	restaurants repository.RestaurantRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewRestaurantService creates a new restaurant service. restaurants is
// usually the cached repository.
func NewRestaurantService(restaurants repository.RestaurantRepository, producer *event.Producer, logger *slog.Logger) *RestaurantService {
	return &RestaurantService{
		restaurants: restaurants,
		producer:    producer,
		logger:      logger,
	}
}

// CreateRestaurantInput holds the parameters for creating a restaurant.
type CreateRestaurantInput struct {
	Name        string
	Location    string
	PhoneNumber string
	Email       string
	Website     string
	Hours       *domain.WeeklyHours
	Type        string
}

// Create adds a restaurant. Any identity may create one; the creator is
// recorded but owns nothing.
func (s *RestaurantService) Create(ctx context.Context, actorID string, input CreateRestaurantInput) (*domain.Restaurant, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, apperrors.InvalidInput("location is required")
	}

	r := &domain.Restaurant{
		Name:        input.Name,
		Location:    input.Location,
		PhoneNumber: input.PhoneNumber,
		Email:       input.Email,
		Website:     input.Website,
		Hours:       input.Hours,
		Type:        input.Type,
		CreatedBy:   actorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.restaurants.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}

	s.logger.InfoContext(ctx, "restaurant created",
		slog.String("restaurant_id", r.ID),
		slog.String("user_id", actorID),
	)
	return r.WithDerived(), nil
}

// Get returns a restaurant with its average rating.
func (s *RestaurantService) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	r, err := s.restaurants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	return r.WithDerived(), nil
}

// Search finds restaurants by type tag. An empty result is NoMatch.
func (s *RestaurantService) Search(ctx context.Context, typ string) ([]domain.Restaurant, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, apperrors.InvalidInput("type query is required")
	}

	found, err := s.restaurants.SearchByType(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	if len(found) == 0 {
		return nil, apperrors.NoMatch("restaurants", typ)
	}
	for i := range found {
		found[i].WithDerived()
	}
	return found, nil
}

// CreateReview adds actorID's review. Each identity reviews a restaurant
// at most once.
func (s *RestaurantService) CreateReview(ctx context.Context, actorID, restaurantID string, rating float64, comment string) (*domain.Review, error) {
	if !domain.ValidRating(rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %g and %g", domain.MinRating, domain.MaxRating))
	}

	rv := &domain.Review{
		UserID:    actorID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now().UTC(),
	}
	added, err := s.restaurants.AddReview(ctx, restaurantID, rv)
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}
	if !added {
		return nil, apperrors.Conflict(apperrors.CodeDuplicateReview, "you already reviewed this restaurant")
	}

	if err := s.producer.PublishRestaurantReviewed(ctx, restaurantID, rv); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", event.TopicRestaurantReviewed),
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "review created",
		slog.String("restaurant_id", restaurantID),
		slog.String("review_id", rv.ID),
		slog.String("user_id", actorID),
	)
	return rv, nil
}

// DeleteReview removes the actor's own review.
func (s *RestaurantService) DeleteReview(ctx context.Context, actorID, restaurantID, reviewID string) error {
	removed, err := s.restaurants.DeleteReviewByAuthor(ctx, restaurantID, reviewID, actorID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if !removed {
		return apperrors.NotFoundOrForbidden("review", reviewID)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("restaurant_id", restaurantID),
		slog.String("review_id", reviewID),
		slog.String("user_id", actorID),
	)
	return nil
}
