package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/bitebook/internal/auth"
	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/event"
	pkgkafka "github.com/utafrali/bitebook/pkg/kafka"
	"github.com/utafrali/bitebook/pkg/pagination"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) Search(ctx context.Context, query string, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, query, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

// --- Mock Follow Repository ---

type mockFollowRepository struct {
	mock.Mock
}

func (m *mockFollowRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	return m.Called(ctx, followerID, followeeID).Error(0)
}

func (m *mockFollowRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowRepository) CreateRequest(ctx context.Context, requesterID, targetID string) error {
	return m.Called(ctx, requesterID, targetID).Error(0)
}

func (m *mockFollowRepository) AcceptRequest(ctx context.Context, requesterID, targetID string) (bool, error) {
	args := m.Called(ctx, requesterID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowRepository) DeleteRequest(ctx context.Context, requesterID, targetID string) (bool, error) {
	args := m.Called(ctx, requesterID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFollowRepository) Followers(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockFollowRepository) Following(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockFollowRepository) PendingRequests(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock Favorite Repository ---

type mockFavoriteRepository struct {
	mock.Mock
}

func (m *mockFavoriteRepository) Add(ctx context.Context, userID, restaurantID string) (bool, error) {
	args := m.Called(ctx, userID, restaurantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepository) Remove(ctx context.Context, userID, restaurantID string) (bool, error) {
	args := m.Called(ctx, userID, restaurantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepository) List(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock Post Repository ---

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) Create(ctx context.Context, post *domain.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *mockPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *mockPostRepository) UpdateByAuthor(ctx context.Context, id, authorID string, update domain.PostUpdate) (*domain.Post, error) {
	args := m.Called(ctx, id, authorID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *mockPostRepository) DeleteByAuthor(ctx context.Context, id, authorID string) (bool, error) {
	args := m.Called(ctx, id, authorID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPostRepository) ListByUsers(ctx context.Context, userIDs []string, params pagination.Params) ([]domain.Post, int, error) {
	args := m.Called(ctx, userIDs, params)
	return args.Get(0).([]domain.Post), args.Int(1), args.Error(2)
}

func (m *mockPostRepository) AddLike(ctx context.Context, id, userID string) (int, bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *mockPostRepository) RemoveLike(ctx context.Context, id, userID string) (int, bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *mockPostRepository) AddComment(ctx context.Context, id string, c *domain.Comment) error {
	return m.Called(ctx, id, c).Error(0)
}

func (m *mockPostRepository) DeleteComment(ctx context.Context, id, commentID string) error {
	return m.Called(ctx, id, commentID).Error(0)
}

// --- Mock Restaurant Repository ---

type mockRestaurantRepository struct {
	mock.Mock
}

func (m *mockRestaurantRepository) Create(ctx context.Context, r *domain.Restaurant) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRestaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Restaurant), args.Error(1)
}

func (m *mockRestaurantRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Restaurant, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Restaurant), args.Error(1)
}

func (m *mockRestaurantRepository) SearchByType(ctx context.Context, q string) ([]domain.Restaurant, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Restaurant), args.Error(1)
}

func (m *mockRestaurantRepository) AddReview(ctx context.Context, id string, rv *domain.Review) (bool, error) {
	args := m.Called(ctx, id, rv)
	return args.Bool(0), args.Error(1)
}

func (m *mockRestaurantRepository) DeleteReviewByAuthor(ctx context.Context, id, reviewID, authorID string) (bool, error) {
	args := m.Called(ctx, id, reviewID, authorID)
	return args.Bool(0), args.Error(1)
}

// --- Test Helpers ---

// recordingWriter captures published kafka messages.
type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) topics() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.msgs))
	for _, m := range w.msgs {
		out = append(out, m.Topic)
	}
	return out
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer() (*event.Producer, *recordingWriter) {
	w := &recordingWriter{}
	logger := newTestLogger()
	return event.NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger), logger), w
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing-only-32b", time.Hour, "bitebook")
}
