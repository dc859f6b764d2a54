package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/event"
	"github.com/utafrali/bitebook/internal/repository"
	apperrors "github.com/utafrali/bitebook/pkg/errors"
	"github.com/utafrali/bitebook/pkg/pagination"
)

// PostService implements posts, likes, comments and feeds. Every read or
// interaction on someone else's post goes through the visibility policy.
type PostService struct {
	posts       repository.PostRepository
	restaurants repository.RestaurantRepository
	social      *SocialService
	producer    *event.Producer
	logger      *slog.Logger
}

// NewPostService creates a new post service.
func NewPostService(
	posts repository.PostRepository,
	restaurants repository.RestaurantRepository,
	social *SocialService,
	producer *event.Producer,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:       posts,
		restaurants: restaurants,
		social:      social,
		producer:    producer,
		logger:      logger,
	}
}

// CreatePostInput holds the parameters for creating a post.
type CreatePostInput struct {
	Image        string
	Description  string
	RestaurantID string
}

// --- Posts ---

// Create publishes a post by actorID about an existing restaurant. The
// author must still exist: a token outlives a deleted account.
func (s *PostService) Create(ctx context.Context, actorID string, input CreatePostInput) (*domain.Post, error) {
	if strings.TrimSpace(input.Image) == "" {
		return nil, apperrors.InvalidInput("image is required")
	}
	if input.RestaurantID == "" {
		return nil, apperrors.InvalidInput("restaurant_id is required")
	}
	if _, err := s.social.users.GetByID(ctx, actorID); err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if _, err := s.restaurants.GetByID(ctx, input.RestaurantID); err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}

	now := time.Now().UTC()
	post := &domain.Post{
		UserID:       actorID,
		Image:        input.Image,
		Description:  input.Description,
		RestaurantID: input.RestaurantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.producer.PublishPostCreated(ctx, post); err != nil {
		s.logPublishFailure(ctx, event.TopicPostCreated, post.ID, err)
	}
	s.logger.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", actorID),
		slog.String("restaurant_id", post.RestaurantID),
	)
	return post, nil
}

// Get returns a post the actor is allowed to see.
func (s *PostService) Get(ctx context.Context, actorID, postID string) (*domain.Post, error) {
	return s.visiblePost(ctx, actorID, postID)
}

// Update changes the author's own post. Missing posts and posts by someone
// else are indistinguishable to the caller.
func (s *PostService) Update(ctx context.Context, actorID, postID string, update domain.PostUpdate) (*domain.Post, error) {
	if update.Empty() {
		return nil, apperrors.InvalidInput("nothing to update")
	}
	if update.Image != nil && strings.TrimSpace(*update.Image) == "" {
		return nil, apperrors.InvalidInput("image cannot be empty")
	}
	if update.RestaurantID != nil {
		if *update.RestaurantID == "" {
			return nil, apperrors.InvalidInput("restaurant_id cannot be empty")
		}
		if _, err := s.restaurants.GetByID(ctx, *update.RestaurantID); err != nil {
			return nil, fmt.Errorf("get restaurant: %w", err)
		}
	}

	post, err := s.posts.UpdateByAuthor(ctx, postID, actorID, update)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	s.logger.InfoContext(ctx, "post updated",
		slog.String("post_id", post.ID),
		slog.String("user_id", actorID),
	)
	return post, nil
}

// Delete removes the author's own post.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	deleted, err := s.posts.DeleteByAuthor(ctx, postID, actorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !deleted {
		return apperrors.NotFoundOrForbidden("post", postID)
	}

	s.logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", actorID),
	)
	return nil
}

// --- Likes ---

// Like adds actorID's like and returns the new like count.
func (s *PostService) Like(ctx context.Context, actorID, postID string) (int, error) {
	if _, err := s.visiblePost(ctx, actorID, postID); err != nil {
		return 0, err
	}

	count, added, err := s.posts.AddLike(ctx, postID, actorID)
	if err != nil {
		return 0, fmt.Errorf("like post: %w", err)
	}
	if !added {
		return 0, apperrors.Conflict(apperrors.CodeAlreadyLiked, "you already liked this post")
	}

	if err := s.producer.PublishPostLiked(ctx, postID, actorID, count); err != nil {
		s.logPublishFailure(ctx, event.TopicPostLiked, postID, err)
	}
	s.logger.InfoContext(ctx, "post liked",
		slog.String("post_id", postID),
		slog.String("user_id", actorID),
	)
	return count, nil
}

// Unlike removes actorID's like and returns the new like count. Taking back
// a like needs no visibility.
func (s *PostService) Unlike(ctx context.Context, actorID, postID string) (int, error) {
	count, removed, err := s.posts.RemoveLike(ctx, postID, actorID)
	if err != nil {
		return 0, fmt.Errorf("unlike post: %w", err)
	}
	if !removed {
		return 0, apperrors.Conflict(apperrors.CodeNotLiked, "you have not liked this post")
	}

	s.logger.InfoContext(ctx, "post unliked",
		slog.String("post_id", postID),
		slog.String("user_id", actorID),
	)
	return count, nil
}

// --- Comments ---

// AddComment appends a comment by actorID.
func (s *PostService) AddComment(ctx context.Context, actorID, postID, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("comment text is required")
	}
	if _, err := s.visiblePost(ctx, actorID, postID); err != nil {
		return nil, err
	}

	c := &domain.Comment{UserID: actorID, Text: text, CreatedAt: time.Now().UTC()}
	if err := s.posts.AddComment(ctx, postID, c); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	if err := s.producer.PublishPostCommented(ctx, postID, c); err != nil {
		s.logPublishFailure(ctx, event.TopicPostCommented, postID, err)
	}
	s.logger.InfoContext(ctx, "comment added",
		slog.String("post_id", postID),
		slog.String("comment_id", c.ID),
		slog.String("user_id", actorID),
	)
	return c, nil
}

// DeleteComment removes a comment. The comment's author and the post's
// author may do so.
func (s *PostService) DeleteComment(ctx context.Context, actorID, postID, commentID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	c, ok := post.Comment(commentID)
	if !ok {
		return apperrors.NotFound("comment", commentID)
	}
	if !post.CanDeleteComment(actorID, c) {
		return apperrors.Forbidden("you can only delete your own comments or comments on your posts")
	}

	if err := s.posts.DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.logger.InfoContext(ctx, "comment deleted",
		slog.String("post_id", postID),
		slog.String("comment_id", commentID),
		slog.String("user_id", actorID),
	)
	return nil
}

// --- Feeds ---

// Feed returns posts by the users actorID follows, newest first.
func (s *PostService) Feed(ctx context.Context, actorID string, params pagination.Params) ([]domain.Post, int, error) {
	following, err := s.social.follows.Following(ctx, actorID)
	if err != nil {
		return nil, 0, fmt.Errorf("list following: %w", err)
	}
	posts, total, err := s.posts.ListByUsers(ctx, following, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", err)
	}
	return posts, total, nil
}

// UserPosts returns targetID's posts when viewerID may see them.
func (s *PostService) UserPosts(ctx context.Context, viewerID, targetID string, params pagination.Params) ([]domain.Post, int, error) {
	owner, err := s.social.CheckVisible(ctx, viewerID, targetID)
	if err != nil {
		return nil, 0, err
	}
	posts, total, err := s.posts.ListByUsers(ctx, []string{owner.ID}, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list user posts: %w", err)
	}
	return posts, total, nil
}

// visiblePost loads a post and applies the visibility policy to its author.
// A post whose author no longer exists is reported as missing.
func (s *PostService) visiblePost(ctx context.Context, actorID, postID string) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if _, err := s.social.CheckVisible(ctx, actorID, post.UserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("post", postID)
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) logPublishFailure(ctx context.Context, topic, postID string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("post_id", postID),
		slog.String("error", err.Error()),
	)
}
