package domain

import "time"

// User is an identity in the social graph.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	IsPrivate    bool      `json:"is_private"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is a user together with the projections of its graph edges.
// Email, PendingRequests and Favorites are only filled for the user's own
// profile.
type Profile struct {
	User
	Followers       []string `json:"followers"`
	Following       []string `json:"following"`
	FollowerCount   int      `json:"follower_count"`
	FollowingCount  int      `json:"following_count"`
	PendingRequests []string `json:"pending_requests,omitempty"`
	Favorites       []string `json:"favorites,omitempty"`
}

// NeedsFollowCheck reports whether CanView depends on the follow edge
// viewer→owner, so callers can skip that lookup otherwise.
func NeedsFollowCheck(viewerID string, owner *User) bool {
	return owner.ID != viewerID && owner.IsPrivate
}

// CanView reports whether viewerID may see content owned by owner. The owner
// always sees their own content; anyone sees a public owner; a private
// owner's content is visible to their followers.
func CanView(viewerID string, owner *User, viewerFollows bool) bool {
	if !NeedsFollowCheck(viewerID, owner) {
		return true
	}
	return viewerFollows
}

// FollowOutcome is the result of a follow attempt.
type FollowOutcome string

const (
	// FollowOutcomeFollowing means the edge was created immediately.
	FollowOutcomeFollowing FollowOutcome = "following"
	// FollowOutcomeRequested means the target is private and a request is pending.
	FollowOutcomeRequested FollowOutcome = "requested"
)
