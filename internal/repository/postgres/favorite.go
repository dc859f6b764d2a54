package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/bitebook/pkg/database"
)

// FavoriteRepository implements repository.FavoriteRepository using PostgreSQL.
type FavoriteRepository struct {
	db database.DBTX
}

// NewFavoriteRepository creates a new PostgreSQL-backed favorite repository.
func NewFavoriteRepository(db database.DBTX) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add stores the favorite. ON CONFLICT DO NOTHING makes a repeat a no-op
// that reports false.
func (r *FavoriteRepository) Add(ctx context.Context, userID, restaurantID string) (_ bool, err error) {
	query := `
		INSERT INTO user_favorites (user_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, restaurant_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "AddFavorite", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID, restaurantID)
	if err != nil {
		if nf := missingUser(err, userID); nf != nil {
			return false, nf
		}
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Remove deletes the favorite.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, restaurantID string) (_ bool, err error) {
	query := `DELETE FROM user_favorites WHERE user_id = $1 AND restaurant_id = $2`

	ctx, end := database.TraceQuery(ctx, "RemoveFavorite", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID, restaurantID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// List returns the favorite restaurant ids, newest first.
func (r *FavoriteRepository) List(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT restaurant_id FROM user_favorites WHERE user_id = $1 ORDER BY created_at DESC`
	return queryIDs(ctx, r.db, "ListFavorites", query, userID)
}
