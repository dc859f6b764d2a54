package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanView(t *testing.T) {
	public := &User{ID: "owner", IsPrivate: false}
	private := &User{ID: "owner", IsPrivate: true}

	tests := []struct {
		name    string
		viewer  string
		owner   *User
		follows bool
		want    bool
	}{
		{name: "public to stranger", viewer: "x", owner: public, want: true},
		{name: "private to stranger", viewer: "x", owner: private, want: false},
		{name: "private to follower", viewer: "x", owner: private, follows: true, want: true},
		{name: "private to self", viewer: "owner", owner: private, want: true},
	}
	assert.False(t, NeedsFollowCheck("owner", private))
	assert.False(t, NeedsFollowCheck("x", public))
	assert.True(t, NeedsFollowCheck("x", private))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.viewer, tt.owner, tt.follows))
		})
	}
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.0, AverageRating([]Review{{Rating: 3}, {Rating: 4}, {Rating: 5}}))
	assert.Equal(t, 3.67, AverageRating([]Review{{Rating: 3}, {Rating: 3}, {Rating: 5}}))
	assert.Equal(t, 0.5, AverageRating([]Review{{Rating: 0}, {Rating: 1}}))
}

func TestRestaurant_WithDerived(t *testing.T) {
	r := (&Restaurant{Reviews: []Review{{UserID: "a", Rating: 2}, {UserID: "b", Rating: 5}}}).WithDerived()
	assert.Equal(t, 3.5, r.AverageRating)
	assert.Equal(t, 2, r.ReviewCount)

	empty := (&Restaurant{}).WithDerived()
	assert.Equal(t, 0.0, empty.AverageRating)
	assert.Equal(t, 0, empty.ReviewCount)
	assert.NotNil(t, empty.Reviews)
}

func TestValidRating(t *testing.T) {
	assert.True(t, ValidRating(0))
	assert.True(t, ValidRating(5))
	assert.True(t, ValidRating(2.5))
	assert.False(t, ValidRating(-0.1))
	assert.False(t, ValidRating(5.01))
	assert.False(t, ValidRating(math.NaN()))
}

func TestPost_Comments(t *testing.T) {
	p := &Post{
		UserID: "author",
		Likes:  []string{"a"},
		Comments: []Comment{
			{ID: "c1", UserID: "commenter"},
		},
	}

	assert.True(t, p.LikedBy("a"))
	assert.False(t, p.LikedBy("b"))

	c, ok := p.Comment("c1")
	assert.True(t, ok)
	assert.True(t, p.CanDeleteComment("commenter", c))
	assert.True(t, p.CanDeleteComment("author", c))
	assert.False(t, p.CanDeleteComment("stranger", c))

	_, ok = p.Comment("missing")
	assert.False(t, ok)
}

func TestPostUpdate_Empty(t *testing.T) {
	assert.True(t, PostUpdate{}.Empty())
	img := "x"
	assert.False(t, PostUpdate{Image: &img}.Empty())
}
