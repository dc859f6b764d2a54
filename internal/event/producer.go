// Package event publishes BiteBook domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/bitebook/internal/domain"
	pkgkafka "github.com/utafrali/bitebook/pkg/kafka"
	"github.com/utafrali/bitebook/pkg/logger"
)

// Kafka topics.
const (
	TopicUserRegistered        = "bitebook.user.registered"
	TopicSocialFollowed        = "bitebook.social.followed"
	TopicSocialFollowRequested = "bitebook.social.follow_requested"
	TopicSocialFollowAccepted  = "bitebook.social.follow_accepted"
	TopicSocialUnfollowed      = "bitebook.social.unfollowed"
	TopicPostCreated           = "bitebook.post.created"
	TopicPostLiked             = "bitebook.post.liked"
	TopicPostCommented         = "bitebook.post.commented"
	TopicRestaurantReviewed    = "bitebook.restaurant.reviewed"
)

// Aggregate types.
const (
	AggregateTypeUser       = "user"
	AggregateTypePost       = "post"
	AggregateTypeRestaurant = "restaurant"
)

// Source is the producer name stamped on every event.
const Source = "bitebook-api"

// UserRegisteredData is the payload for user.registered.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsPrivate bool   `json:"is_private"`
}

// SocialEdgeData is the payload for every social.* event.
type SocialEdgeData struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
}

// PostCreatedData is the payload for post.created.
type PostCreatedData struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	RestaurantID string `json:"restaurant_id"`
}

// PostLikedData is the payload for post.liked.
type PostLikedData struct {
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	LikeCount int    `json:"like_count"`
}

// PostCommentedData is the payload for post.commented.
type PostCommentedData struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	UserID    string `json:"user_id"`
}

// RestaurantReviewedData is the payload for restaurant.reviewed.
type RestaurantReviewedData struct {
	RestaurantID string  `json:"restaurant_id"`
	ReviewID     string  `json:"review_id"`
	UserID       string  `json:"user_id"`
	Rating       float64 `json:"rating"`
}

// Producer publishes domain events.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes user.registered.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateTypeUser, u.ID, UserRegisteredData{
		ID:        u.ID,
		Username:  u.Username,
		IsPrivate: u.IsPrivate,
	})
}

// PublishFollowed publishes social.followed when follower now follows followee.
func (p *Producer) PublishFollowed(ctx context.Context, followerID, followeeID string) error {
	return p.publishEdge(ctx, TopicSocialFollowed, followerID, followeeID, followerID)
}

// PublishFollowRequested publishes social.follow_requested.
func (p *Producer) PublishFollowRequested(ctx context.Context, requesterID, targetID string) error {
	return p.publishEdge(ctx, TopicSocialFollowRequested, requesterID, targetID, requesterID)
}

// PublishFollowAccepted publishes social.follow_accepted. The actor is the
// followee who accepted.
func (p *Producer) PublishFollowAccepted(ctx context.Context, requesterID, targetID string) error {
	return p.publishEdge(ctx, TopicSocialFollowAccepted, requesterID, targetID, targetID)
}

// PublishUnfollowed publishes social.unfollowed.
func (p *Producer) PublishUnfollowed(ctx context.Context, followerID, followeeID string) error {
	return p.publishEdge(ctx, TopicSocialUnfollowed, followerID, followeeID, followerID)
}

// PublishPostCreated publishes post.created.
func (p *Producer) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, TopicPostCreated, post.ID, AggregateTypePost, post.UserID, PostCreatedData{
		ID:           post.ID,
		UserID:       post.UserID,
		RestaurantID: post.RestaurantID,
	})
}

// PublishPostLiked publishes post.liked.
func (p *Producer) PublishPostLiked(ctx context.Context, postID, userID string, count int) error {
	return p.publish(ctx, TopicPostLiked, postID, AggregateTypePost, userID, PostLikedData{
		PostID:    postID,
		UserID:    userID,
		LikeCount: count,
	})
}

// PublishPostCommented publishes post.commented.
func (p *Producer) PublishPostCommented(ctx context.Context, postID string, c *domain.Comment) error {
	return p.publish(ctx, TopicPostCommented, postID, AggregateTypePost, c.UserID, PostCommentedData{
		PostID:    postID,
		CommentID: c.ID,
		UserID:    c.UserID,
	})
}

// PublishRestaurantReviewed publishes restaurant.reviewed.
func (p *Producer) PublishRestaurantReviewed(ctx context.Context, restaurantID string, rv *domain.Review) error {
	return p.publish(ctx, TopicRestaurantReviewed, restaurantID, AggregateTypeRestaurant, rv.UserID, RestaurantReviewedData{
		RestaurantID: restaurantID,
		ReviewID:     rv.ID,
		UserID:       rv.UserID,
		Rating:       rv.Rating,
	})
}

// Edge events are keyed by the followee so a user's inbound graph changes
// stay ordered on one partition.
func (p *Producer) publishEdge(ctx context.Context, topic, followerID, followeeID, actorID string) error {
	return p.publish(ctx, topic, followeeID, AggregateTypeUser, actorID, SocialEdgeData{
		FollowerID: followerID,
		FolloweeID: followeeID,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType, actorID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithActor(actorID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
