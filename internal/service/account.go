package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/bitebook/internal/auth"
	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/event"
	"github.com/utafrali/bitebook/internal/repository"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
)

// DefaultBcryptCost is the cost factor for password hashing.
const DefaultBcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AccountService implements sign-up, login and profile management.
type AccountService struct {
	users      repository.UserRepository
	follows    repository.FollowRepository
	favorites  repository.FavoriteRepository
	posts      repository.PostRepository
	jwtManager *auth.JWTManager
	producer   *event.Producer
	logger     *slog.Logger
	bcryptCost int
}

// NewAccountService creates a new account service.
func NewAccountService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	favorites repository.FavoriteRepository,
	posts repository.PostRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:      users,
		follows:    follows,
		favorites:  favorites,
		posts:      posts,
		jwtManager: jwtManager,
		producer:   producer,
		logger:     logger,
		bcryptCost: DefaultBcryptCost,
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	s.bcryptCost = cost
	return s
}

// --- Input types ---

// SignUpInput holds the parameters for creating an account.
type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	IsPrivate bool
}

// LoginInput holds the parameters for a login.
type LoginInput struct {
	Username string
	Password string
}

// UpdateUserInput holds the mutable account fields. Nil fields are unchanged.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	Password  *string
	IsPrivate *bool
}

// --- Auth ---

// SignUp creates an account and returns it with an access token.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (*domain.User, string, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" {
		return nil, "", apperrors.InvalidInput("username is required")
	}
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsPrivate:    input.IsPrivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwtManager.Generate(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, token, nil
}

// Login checks the credentials and returns the user with an access token.
// Unknown usernames and wrong passwords fail the same way.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*domain.User, string, error) {
	if input.Username == "" || input.Password == "" {
		return nil, "", apperrors.InvalidCredentials()
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", apperrors.InvalidCredentials()
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", apperrors.InvalidCredentials()
	}

	token, err := s.jwtManager.Generate(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

// TokenExpiry is the lifetime of tokens issued by SignUp and Login.
func (s *AccountService) TokenExpiry() time.Duration {
	return s.jwtManager.Expiry()
}

// --- Profile ---

// GetUser returns userID's profile. Email, pending requests and favorites
// are only included when actorID is looking at their own profile.
func (s *AccountService) GetUser(ctx context.Context, actorID, userID string) (*domain.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	followers, err := s.follows.Followers(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	following, err := s.follows.Following(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}

	profile := &domain.Profile{
		User:           *user,
		Followers:      followers,
		Following:      following,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
	}
	if actorID != user.ID {
		profile.Email = ""
		return profile, nil
	}

	if profile.PendingRequests, err = s.follows.PendingRequests(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("list follow requests: %w", err)
	}
	if profile.Favorites, err = s.favorites.List(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return profile, nil
}

// UpdateUser changes actorID's own account. Turning a private account public
// leaves pending requests in place.
func (s *AccountService) UpdateUser(ctx context.Context, actorID, userID string, input UpdateUserInput) (*domain.User, error) {
	if actorID != userID {
		return nil, apperrors.Forbidden("you can only update your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if input.Username != nil {
		name := strings.TrimSpace(*input.Username)
		if name == "" {
			return nil, apperrors.InvalidInput("username cannot be empty")
		}
		user.Username = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, apperrors.InvalidInput("email cannot be empty")
		}
		user.Email = email
	}
	if input.Password != nil {
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.IsPrivate != nil {
		user.IsPrivate = *input.IsPrivate
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("user_id", user.ID),
		slog.Bool("is_private", user.IsPrivate),
	)
	return user, nil
}

// DeleteUser removes actorID's own account and their posts. Graph edges,
// requests and favorites go with the identity row.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID != userID {
		return apperrors.Forbidden("you can only delete your own account")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	n, err := s.posts.DeleteByUser(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete posts of deleted user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("delete user posts: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", userID),
		slog.Int64("posts_deleted", n),
	)
	return nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.InvalidInput("password is too long")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
