package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/repository"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
)

// FavoriteService manages a user's favorite restaurants.
type FavoriteService struct {
	favorites   repository.FavoriteRepository
	restaurants repository.RestaurantRepository
	logger      *slog.Logger
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(favorites repository.FavoriteRepository, restaurants repository.RestaurantRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		favorites:   favorites,
		restaurants: restaurants,
		logger:      logger,
	}
}

// Add marks an existing restaurant as a favorite of actorID.
func (s *FavoriteService) Add(ctx context.Context, actorID, restaurantID string) error {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return fmt.Errorf("get restaurant: %w", err)
	}

	added, err := s.favorites.Add(ctx, actorID, restaurantID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if !added {
		return apperrors.Conflict(apperrors.CodeAlreadyFavorited, "restaurant is already a favorite")
	}

	s.logger.InfoContext(ctx, "favorite added",
		slog.String("user_id", actorID),
		slog.String("restaurant_id", restaurantID),
	)
	return nil
}

// Remove unmarks a favorite.
func (s *FavoriteService) Remove(ctx context.Context, actorID, restaurantID string) error {
	removed, err := s.favorites.Remove(ctx, actorID, restaurantID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if !removed {
		return apperrors.Conflict(apperrors.CodeNotFavorited, "restaurant is not a favorite")
	}

	s.logger.InfoContext(ctx, "favorite removed",
		slog.String("user_id", actorID),
		slog.String("restaurant_id", restaurantID),
	)
	return nil
}

// List returns actorID's favorite restaurants, most recently added first.
func (s *FavoriteService) List(ctx context.Context, actorID string) ([]domain.Restaurant, error) {
	ids, err := s.favorites.List(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Restaurant{}, nil
	}

	restaurants, err := s.restaurants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load favorite restaurants: %w", err)
	}
	for i := range restaurants {
		restaurants[i].WithDerived()
	}
	return restaurants, nil
}
