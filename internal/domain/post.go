package domain

import (
	"slices"
	"time"
)

// Post is an image post about a restaurant. Likes and comments live inside
// the post document.
type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Image        string    `json:"image"`
	Description  string    `json:"description,omitempty"`
	RestaurantID string    `json:"restaurant_id"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is a comment embedded in a post.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// LikedBy reports whether userID has liked the post.
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// Comment returns the comment with the given id.
func (p *Post) Comment(id string) (*Comment, bool) {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i], true
		}
	}
	return nil, false
}

// CanDeleteComment reports whether userID may delete c from the post: the
// comment's author and the post's author may.
func (p *Post) CanDeleteComment(userID string, c *Comment) bool {
	return c.UserID == userID || p.UserID == userID
}

// PostUpdate holds the mutable fields of a post. Nil fields are unchanged.
type PostUpdate struct {
	Image        *string
	Description  *string
	RestaurantID *string
}

// Empty reports whether the update changes nothing.
func (u PostUpdate) Empty() bool {
	return u.Image == nil && u.Description == nil && u.RestaurantID == nil
}
