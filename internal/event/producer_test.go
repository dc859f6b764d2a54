package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bitebook/internal/domain"
	pkgkafka "github.com/utafrali/bitebook/pkg/kafka"
	"github.com/utafrali/bitebook/pkg/logger"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestProducer() (*Producer, *recordingWriter) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &recordingWriter{}
	return NewProducer(pkgkafka.NewProducerWithWriter(w, nil, log), log), w
}

func decode(t *testing.T, msg kafka.Message) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	return ev
}

func TestPublishUserRegistered(t *testing.T) {
	p, w := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishUserRegistered(ctx, &domain.User{ID: "u-1", Username: "alice", IsPrivate: true}))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicUserRegistered, msg.Topic)
	assert.Equal(t, "u-1", string(msg.Key))

	ev := decode(t, msg)
	assert.Equal(t, TopicUserRegistered, ev.EventType)
	assert.Equal(t, AggregateTypeUser, ev.AggregateType)
	assert.Equal(t, Source, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "u-1", ev.ActorID)

	var data UserRegisteredData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, UserRegisteredData{ID: "u-1", Username: "alice", IsPrivate: true}, data)
}

func TestPublishEdgeEvents_KeyedByFollowee(t *testing.T) {
	p, w := newTestProducer()
	ctx := context.Background()

	require.NoError(t, p.PublishFollowed(ctx, "alice", "bob"))
	require.NoError(t, p.PublishFollowRequested(ctx, "carol", "bob"))
	require.NoError(t, p.PublishFollowAccepted(ctx, "carol", "bob"))
	require.NoError(t, p.PublishUnfollowed(ctx, "alice", "bob"))
	require.Len(t, w.msgs, 4)

	topics := []string{TopicSocialFollowed, TopicSocialFollowRequested, TopicSocialFollowAccepted, TopicSocialUnfollowed}
	actors := []string{"alice", "carol", "bob", "alice"}
	for i, msg := range w.msgs {
		assert.Equal(t, topics[i], msg.Topic)
		assert.Equal(t, "bob", string(msg.Key))
		ev := decode(t, msg)
		assert.Equal(t, actors[i], ev.ActorID)
		assert.Empty(t, ev.CorrelationID)
	}

	var data SocialEdgeData
	require.NoError(t, decode(t, w.msgs[2]).UnmarshalData(&data))
	assert.Equal(t, SocialEdgeData{FollowerID: "carol", FolloweeID: "bob"}, data)
}

func TestPublishContentEvents(t *testing.T) {
	p, w := newTestProducer()
	ctx := context.Background()

	require.NoError(t, p.PublishPostCreated(ctx, &domain.Post{ID: "p-1", UserID: "u-1", RestaurantID: "r-1"}))
	require.NoError(t, p.PublishPostLiked(ctx, "p-1", "u-2", 3))
	require.NoError(t, p.PublishPostCommented(ctx, "p-1", &domain.Comment{ID: "c-1", UserID: "u-3"}))
	require.NoError(t, p.PublishRestaurantReviewed(ctx, "r-1", &domain.Review{ID: "rv-1", UserID: "u-2", Rating: 4.5}))
	require.Len(t, w.msgs, 4)

	var liked PostLikedData
	require.NoError(t, decode(t, w.msgs[1]).UnmarshalData(&liked))
	assert.Equal(t, 3, liked.LikeCount)

	var reviewed RestaurantReviewedData
	ev := decode(t, w.msgs[3])
	require.NoError(t, ev.UnmarshalData(&reviewed))
	assert.Equal(t, AggregateTypeRestaurant, ev.AggregateType)
	assert.Equal(t, 4.5, reviewed.Rating)
	assert.Equal(t, "r-1", string(w.msgs[3].Key))
}

func TestPublish_WriterError(t *testing.T) {
	p, w := newTestProducer()
	w.err = errors.New("broker down")

	err := p.PublishFollowed(context.Background(), "alice", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicSocialFollowed)
}
