package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/event"
	"github.com/utafrali/bitebook/internal/repository"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
	"github.com/utafrali/bitebook/pkg/pagination"
)

// SocialService implements the follow graph and the visibility policy.
type SocialService struct {
	users    repository.UserRepository
	follows  repository.FollowRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewSocialService creates a new social graph service.
func NewSocialService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *SocialService {
	return &SocialService{
		users:    users,
		follows:  follows,
		producer: producer,
		logger:   logger,
	}
}

// --- Follow graph ---

// Follow makes actorID follow targetID. A private target gets a pending
// request instead; repeating that request is harmless.
func (s *SocialService) Follow(ctx context.Context, actorID, targetID string) (domain.FollowOutcome, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("get follow target: %w", err)
	}
	if actorID == target.ID {
		return "", apperrors.InvalidInput("you cannot follow yourself")
	}

	following, err := s.follows.IsFollowing(ctx, actorID, target.ID)
	if err != nil {
		return "", fmt.Errorf("check follow: %w", err)
	}
	if following {
		return "", apperrors.Conflict(apperrors.CodeAlreadyFollowing, "you already follow this user")
	}

	if target.IsPrivate {
		if err := s.follows.CreateRequest(ctx, actorID, target.ID); err != nil {
			return "", fmt.Errorf("create follow request: %w", err)
		}
		if err := s.producer.PublishFollowRequested(ctx, actorID, target.ID); err != nil {
			s.logPublishFailure(ctx, event.TopicSocialFollowRequested, err)
		}
		s.logger.InfoContext(ctx, "follow requested",
			slog.String("user_id", actorID),
			slog.String("target_id", target.ID),
		)
		return domain.FollowOutcomeRequested, nil
	}

	if err := s.follows.Follow(ctx, actorID, target.ID); err != nil {
		return "", fmt.Errorf("follow: %w", err)
	}
	if err := s.producer.PublishFollowed(ctx, actorID, target.ID); err != nil {
		s.logPublishFailure(ctx, event.TopicSocialFollowed, err)
	}
	s.logger.InfoContext(ctx, "user followed",
		slog.String("user_id", actorID),
		slog.String("target_id", target.ID),
	)
	return domain.FollowOutcomeFollowing, nil
}

// AcceptFollow turns requesterID's pending request to actorID into a follow.
func (s *SocialService) AcceptFollow(ctx context.Context, actorID, requesterID string) error {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("get requester: %w", err)
	}

	accepted, err := s.follows.AcceptRequest(ctx, requester.ID, actorID)
	if err != nil {
		return fmt.Errorf("accept follow request: %w", err)
	}
	if !accepted {
		return apperrors.Conflict(apperrors.CodeNoSuchRequest, "no pending follow request from this user")
	}

	if err := s.producer.PublishFollowAccepted(ctx, requester.ID, actorID); err != nil {
		s.logPublishFailure(ctx, event.TopicSocialFollowAccepted, err)
	}
	s.logger.InfoContext(ctx, "follow request accepted",
		slog.String("user_id", actorID),
		slog.String("requester_id", requester.ID),
	)
	return nil
}

// RejectFollow drops requesterID's pending request to actorID.
func (s *SocialService) RejectFollow(ctx context.Context, actorID, requesterID string) error {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("get requester: %w", err)
	}

	removed, err := s.follows.DeleteRequest(ctx, requester.ID, actorID)
	if err != nil {
		return fmt.Errorf("reject follow request: %w", err)
	}
	if !removed {
		return apperrors.Conflict(apperrors.CodeNoSuchRequest, "no pending follow request from this user")
	}

	s.logger.InfoContext(ctx, "follow request rejected",
		slog.String("user_id", actorID),
		slog.String("requester_id", requester.ID),
	)
	return nil
}

// Unfollow removes the edge actorID→targetID.
func (s *SocialService) Unfollow(ctx context.Context, actorID, targetID string) error {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("get unfollow target: %w", err)
	}

	removed, err := s.follows.Unfollow(ctx, actorID, target.ID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !removed {
		return apperrors.Conflict(apperrors.CodeNotFollowing, "you do not follow this user")
	}

	if err := s.producer.PublishUnfollowed(ctx, actorID, target.ID); err != nil {
		s.logPublishFailure(ctx, event.TopicSocialUnfollowed, err)
	}
	s.logger.InfoContext(ctx, "user unfollowed",
		slog.String("user_id", actorID),
		slog.String("target_id", target.ID),
	)
	return nil
}

// --- Queries ---

// Search finds users whose username contains query. No match is an empty
// page, not an error.
func (s *SocialService) Search(ctx context.Context, query string, params pagination.Params) ([]domain.User, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, apperrors.InvalidInput("username query is required")
	}

	users, total, err := s.users.Search(ctx, query, params)
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	for i := range users {
		users[i].Email = ""
	}
	return users, total, nil
}

// ListFollowers returns the ids following userID.
func (s *SocialService) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	ids, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return ids, nil
}

// ListFollowing returns the ids userID follows.
func (s *SocialService) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	ids, err := s.follows.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return ids, nil
}

// ListPendingRequests returns the ids waiting for actorID to answer.
func (s *SocialService) ListPendingRequests(ctx context.Context, actorID string) ([]string, error) {
	ids, err := s.follows.PendingRequests(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list follow requests: %w", err)
	}
	return ids, nil
}

// --- Visibility ---

// CheckVisible loads ownerID and fails with Forbidden when viewerID may not
// see their content.
func (s *SocialService) CheckVisible(ctx context.Context, viewerID, ownerID string) (*domain.User, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get content owner: %w", err)
	}

	var follows bool
	if domain.NeedsFollowCheck(viewerID, owner) {
		follows, err = s.follows.IsFollowing(ctx, viewerID, owner.ID)
		if err != nil {
			return nil, fmt.Errorf("check follow: %w", err)
		}
	}
	if !domain.CanView(viewerID, owner, follows) {
		return nil, apperrors.Forbidden("this account is private")
	}
	return owner, nil
}

func (s *SocialService) logPublishFailure(ctx context.Context, topic string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("error", err.Error()),
	)
}
