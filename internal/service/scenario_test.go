package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bitebook/internal/domain"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
	"github.com/utafrali/bitebook/pkg/pagination"
)

// In-memory stores for flows that span several services. Methods the
// scenario never touches fall through to the embedded mocks, which fail the
// test when called without an expectation.

type memUsers struct {
	mockUserRepository
	mu   sync.Mutex
	byID map[string]*domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

type edge struct{ from, to string }

type memFollows struct {
	mockFollowRepository
	mu       sync.Mutex
	edges    []edge
	requests []edge
}

func (m *memFollows) IsFollowing(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.edges, edge{a, b}), nil
}

func (m *memFollows) Follow(_ context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.edges, edge{a, b}) {
		m.edges = append(m.edges, edge{a, b})
	}
	return nil
}

func (m *memFollows) CreateRequest(_ context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.requests, edge{a, b}) {
		m.requests = append(m.requests, edge{a, b})
	}
	return nil
}

func (m *memFollows) AcceptRequest(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.Index(m.requests, edge{a, b})
	if i < 0 {
		return false, nil
	}
	m.requests = slices.Delete(m.requests, i, i+1)
	m.edges = append(m.edges, edge{a, b})
	return true, nil
}

func (m *memFollows) collect(match func(edge) (string, bool), from []edge) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, e := range from {
		if id, ok := match(e); ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *memFollows) Followers(_ context.Context, id string) ([]string, error) {
	return m.collect(func(e edge) (string, bool) { return e.from, e.to == id }, m.edges), nil
}

func (m *memFollows) Following(_ context.Context, id string) ([]string, error) {
	return m.collect(func(e edge) (string, bool) { return e.to, e.from == id }, m.edges), nil
}

func (m *memFollows) PendingRequests(_ context.Context, id string) ([]string, error) {
	return m.collect(func(e edge) (string, bool) { return e.from, e.to == id }, m.requests), nil
}

type memPosts struct {
	mockPostRepository
	mu    sync.Mutex
	posts []domain.Post
}

func (m *memPosts) Create(_ context.Context, p *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = fmt.Sprintf("p-%d", len(m.posts)+1)
	p.Likes, p.Comments = []string{}, []domain.Comment{}
	m.posts = append(m.posts, *p)
	return nil
}

func (m *memPosts) ListByUsers(_ context.Context, ids []string, _ pagination.Params) ([]domain.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Post{}
	for _, p := range m.posts {
		if slices.Contains(ids, p.UserID) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type scenario struct {
	accounts *AccountService
	social   *SocialService
	posts    *PostService
	follows  *memFollows
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	users := &memUsers{byID: map[string]*domain.User{}}
	follows := &memFollows{}
	posts := &memPosts{}
	restaurants := new(mockRestaurantRepository)
	restaurants.On("GetByID", context.Background(), "r-1").Return(&domain.Restaurant{ID: "r-1"}, nil)
	favorites := new(mockFavoriteRepository)

	producer, _ := newTestProducer()
	logger := newTestLogger()
	social := NewSocialService(users, follows, producer, logger)
	return &scenario{
		accounts: NewAccountService(users, follows, favorites, posts, newTestJWTManager(), producer, logger).WithBcryptCost(4),
		social:   social,
		posts:    NewPostService(posts, restaurants, social, producer, logger),
		follows:  follows,
	}
}

func (s *scenario) signUp(t *testing.T, name string, private bool) *domain.User {
	t.Helper()
	u, _, err := s.accounts.SignUp(context.Background(), SignUpInput{
		Username:  name,
		Email:     name + "@example.com",
		Password:  "password123",
		IsPrivate: private,
	})
	require.NoError(t, err)
	return u
}

func TestScenario_PrivateFollowFlow(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	params := pagination.DefaultParams()

	alice := s.signUp(t, "alice", false)
	bob := s.signUp(t, "bob", true)
	carol := s.signUp(t, "carol", true)

	outcome, err := s.social.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowOutcomeRequested, outcome)

	pending, err := s.social.ListPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, pending)
	following, _ := s.follows.Following(ctx, alice.ID)
	assert.Empty(t, following)

	require.NoError(t, s.social.AcceptFollow(ctx, bob.ID, alice.ID))

	followers, err := s.social.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, followers)
	following, err = s.social.ListFollowing(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, following)
	pending, _ = s.social.ListPendingRequests(ctx, bob.ID)
	assert.Empty(t, pending)

	_, err = s.social.Follow(ctx, alice.ID, bob.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyFollowing))

	_, err = s.posts.Create(ctx, alice.ID, CreatePostInput{Image: "a.jpg", RestaurantID: "r-1"})
	require.NoError(t, err)
	_, err = s.posts.Create(ctx, bob.ID, CreatePostInput{Image: "b.jpg", RestaurantID: "r-1"})
	require.NoError(t, err)

	// alice is public: everyone reads her posts.
	for _, viewer := range []string{bob.ID, carol.ID} {
		got, _, err := s.posts.UserPosts(ctx, viewer, alice.ID, params)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}

	// bob is private: his follower and bob himself read them, carol does not.
	got, _, err := s.posts.UserPosts(ctx, alice.ID, bob.ID, params)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, _, err = s.posts.UserPosts(ctx, bob.ID, bob.ID, params)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, _, err = s.posts.UserPosts(ctx, carol.ID, bob.ID, params)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	feed, total, err := s.posts.Feed(ctx, alice.ID, params)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, bob.ID, feed[0].UserID)
}
