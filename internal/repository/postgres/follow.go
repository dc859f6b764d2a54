package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/bitebook/pkg/database"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
)

// SQLSTATE codes mapped to application errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// missingUser maps a foreign key violation on a users reference to NotFound
// for userID. A token can outlive its user, so writes keyed by the acting
// identity may reference a deleted row. Other errors yield nil.
func missingUser(err error, userID string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolation {
		return nil
	}
	return apperrors.NotFound("user", userID)
}

// FollowRepository implements repository.FollowRepository. An edge is a
// single user_follows row, so a user's followers and following sets are two
// projections of the same rows and cannot disagree.
type FollowRepository struct {
	db database.DBTX
}

// NewFollowRepository creates a new PostgreSQL-backed follow repository.
func NewFollowRepository(db database.DBTX) *FollowRepository {
	return &FollowRepository{db: db}
}

// IsFollowing reports whether follower follows followee.
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_follows WHERE follower_id = $1 AND followee_id = $2)`
	return r.exists(ctx, "IsFollowing", query, followerID, followeeID)
}

// Follow inserts the edge and drops any pending request for the pair in one
// statement.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followeeID string) (err error) {
	query := `
		WITH cleared AS (
			DELETE FROM follow_requests WHERE requester_id = $1 AND target_id = $2
		)
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "Follow", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, followerID, followeeID); err != nil {
		if nf := missingUser(err, followerID); nf != nil {
			return nf
		}
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// Unfollow deletes the edge.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followeeID string) (_ bool, err error) {
	query := `DELETE FROM user_follows WHERE follower_id = $1 AND followee_id = $2`

	ctx, end := database.TraceQuery(ctx, "Unfollow", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// CreateRequest records a pending follow request.
func (r *FollowRepository) CreateRequest(ctx context.Context, requesterID, targetID string) (err error) {
	query := `
		INSERT INTO follow_requests (requester_id, target_id)
		VALUES ($1, $2)
		ON CONFLICT (requester_id, target_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "CreateFollowRequest", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, requesterID, targetID); err != nil {
		if nf := missingUser(err, requesterID); nf != nil {
			return nf
		}
		return fmt.Errorf("insert follow request: %w", err)
	}
	return nil
}

// AcceptRequest deletes the pending request and inserts the follow edge in
// one transaction.
func (r *FollowRepository) AcceptRequest(ctx context.Context, requesterID, targetID string) (accepted bool, err error) {
	deleteQuery := `DELETE FROM follow_requests WHERE requester_id = $1 AND target_id = $2`
	insertQuery := `
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "AcceptFollowRequest", deleteQuery)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, deleteQuery, requesterID, targetID)
		if err != nil {
			return fmt.Errorf("delete follow request: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insertQuery, requesterID, targetID); err != nil {
			return fmt.Errorf("insert follow: %w", err)
		}
		accepted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// DeleteRequest removes a pending request.
func (r *FollowRepository) DeleteRequest(ctx context.Context, requesterID, targetID string) (_ bool, err error) {
	query := `DELETE FROM follow_requests WHERE requester_id = $1 AND target_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteFollowRequest", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, requesterID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete follow request: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Followers lists the ids following userID.
func (r *FollowRepository) Followers(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT follower_id FROM user_follows WHERE followee_id = $1 ORDER BY created_at DESC`
	return queryIDs(ctx, r.db, "ListFollowers", query, userID)
}

// Following lists the ids userID follows.
func (r *FollowRepository) Following(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT followee_id FROM user_follows WHERE follower_id = $1 ORDER BY created_at DESC`
	return queryIDs(ctx, r.db, "ListFollowing", query, userID)
}

// PendingRequests lists the requesters waiting on userID.
func (r *FollowRepository) PendingRequests(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT requester_id FROM follow_requests WHERE target_id = $1 ORDER BY created_at DESC`
	return queryIDs(ctx, r.db, "ListFollowRequests", query, userID)
}

func (r *FollowRepository) exists(ctx context.Context, op, query string, args ...any) (ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// queryIDs runs a query returning one id column and collects the values.
func queryIDs(ctx context.Context, db database.DBTX, op, query string, args ...any) (_ []string, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: collect rows: %w", op, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
