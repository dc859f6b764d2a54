package repository

import (
	"context"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/pkg/pagination"
)

// UserRepository defines the interface for identity persistence operations.
type UserRepository interface {
	// Create inserts a new user. A taken username or email fails with
	// an AlreadyExists error.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update writes username, email, password hash and privacy flag.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user. Graph edges, requests and favorites cascade.
	Delete(ctx context.Context, id string) error

	// Search returns users whose username contains query, case-insensitively,
	// and the total number of matches.
	Search(ctx context.Context, query string, params pagination.Params) ([]domain.User, int, error)
}

// FollowRepository stores follow edges and pending follow requests.
type FollowRepository interface {
	// IsFollowing reports whether follower follows followee.
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)

	// Follow creates the edge follower→followee, clearing any pending request
	// for the same pair. Existing edges are left as they are.
	Follow(ctx context.Context, followerID, followeeID string) error

	// Unfollow removes the edge and reports whether one existed.
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)

	// CreateRequest records a pending request. Repeating it is a no-op.
	CreateRequest(ctx context.Context, requesterID, targetID string) error

	// AcceptRequest atomically turns a pending request into a follow edge.
	// It reports false when no such request was pending.
	AcceptRequest(ctx context.Context, requesterID, targetID string) (bool, error)

	// DeleteRequest removes a pending request and reports whether one existed.
	DeleteRequest(ctx context.Context, requesterID, targetID string) (bool, error)

	// Followers lists the ids following userID, newest edge first.
	Followers(ctx context.Context, userID string) ([]string, error)

	// Following lists the ids userID follows, newest edge first.
	Following(ctx context.Context, userID string) ([]string, error)

	// PendingRequests lists the ids with a pending request to userID.
	PendingRequests(ctx context.Context, userID string) ([]string, error)
}

// FavoriteRepository stores a user's favorite restaurant ids.
type FavoriteRepository interface {
	// Add reports false when the restaurant was already a favorite.
	Add(ctx context.Context, userID, restaurantID string) (bool, error)

	// Remove reports false when the restaurant was not a favorite.
	Remove(ctx context.Context, userID, restaurantID string) (bool, error)

	// List returns favorite restaurant ids, newest first.
	List(ctx context.Context, userID string) ([]string, error)
}

// PostRepository defines the interface for post persistence operations.
type PostRepository interface {
	// Create inserts a post and sets its id.
	Create(ctx context.Context, post *domain.Post) error

	// GetByID retrieves a post. A malformed id is reported as not found.
	GetByID(ctx context.Context, id string) (*domain.Post, error)

	// UpdateByAuthor applies update when the post exists and belongs to
	// authorID. It returns the updated post, or a not-found error otherwise.
	UpdateByAuthor(ctx context.Context, id, authorID string, update domain.PostUpdate) (*domain.Post, error)

	// DeleteByAuthor deletes the post when it belongs to authorID and
	// reports whether anything was deleted.
	DeleteByAuthor(ctx context.Context, id, authorID string) (bool, error)

	// DeleteByUser removes every post authored by userID.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// ListByUsers returns posts authored by any of userIDs, newest first,
	// and the total number of such posts.
	ListByUsers(ctx context.Context, userIDs []string, params pagination.Params) ([]domain.Post, int, error)

	// AddLike adds userID to the likes of the post. It reports false when
	// the user had already liked it. The returned count is the new number
	// of likes.
	AddLike(ctx context.Context, id, userID string) (int, bool, error)

	// RemoveLike is the inverse of AddLike.
	RemoveLike(ctx context.Context, id, userID string) (int, bool, error)

	// AddComment appends c to the post and sets its id.
	AddComment(ctx context.Context, id string, c *domain.Comment) error

	// DeleteComment removes the comment with commentID from the post.
	DeleteComment(ctx context.Context, id, commentID string) error
}

// RestaurantRepository defines the interface for restaurant persistence.
type RestaurantRepository interface {
	// Create inserts a restaurant and sets its id.
	Create(ctx context.Context, r *domain.Restaurant) error

	// GetByID retrieves a restaurant. A malformed id is reported as not found.
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)

	// GetByIDs returns the restaurants with the given ids in the order of ids.
	// Ids that match nothing are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Restaurant, error)

	// SearchByType matches the type tag case-insensitively as a substring.
	SearchByType(ctx context.Context, query string) ([]domain.Restaurant, error)

	// AddReview appends review unless the user already reviewed the
	// restaurant, in which case it reports false and changes nothing.
	AddReview(ctx context.Context, restaurantID string, review *domain.Review) (bool, error)

	// DeleteReviewByAuthor removes the review when it was written by
	// authorID and reports whether anything was removed.
	DeleteReviewByAuthor(ctx context.Context, restaurantID, reviewID, authorID string) (bool, error)
}
