package domain

import (
	"math"
	"time"
)

// Rating bounds for a review.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Restaurant is a place that posts and reviews refer to.
type Restaurant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Location    string       `json:"location"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	Email       string       `json:"email,omitempty"`
	Website     string       `json:"website,omitempty"`
	Hours       *WeeklyHours `json:"hours,omitempty"`
	Type        string       `json:"type,omitempty"`
	Reviews     []Review     `json:"reviews"`
	CreatedBy   string       `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`

	// Derived at read time, never stored.
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// WeeklyHours holds opening hours per weekday. Days without hours are nil.
type WeeklyHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// DayHours is an opening window in HH:MM.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Review is a rating embedded in a restaurant. One per user per restaurant.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is within the accepted range.
func ValidRating(r float64) bool {
	return !math.IsNaN(r) && r >= MinRating && r <= MaxRating
}

// AverageRating is the mean review rating rounded to two decimals, or 0 with
// no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(sum/float64(len(reviews))*100) / 100
}

// WithDerived fills the read-time fields from the embedded reviews.
func (r *Restaurant) WithDerived() *Restaurant {
	r.AverageRating = AverageRating(r.Reviews)
	r.ReviewCount = len(r.Reviews)
	if r.Reviews == nil {
		r.Reviews = []Review{}
	}
	return r
}
