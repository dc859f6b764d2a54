// Package cache provides a Redis read-through cache in front of the
// restaurant repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/repository"
	"github.com/utafrali/bitebook/pkg/breaker"
)

const (
	keyPrefix = "restaurant:"

	// DefaultTTL is used when no TTL is configured.
	DefaultTTL = 5 * time.Minute
)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bitebook_restaurant_cache_lookups_total",
		Help: "Restaurant cache lookups by result (hit, miss, error, bypass).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// RestaurantCache wraps a RestaurantRepository. GetByID is served from
// Redis when possible; review writes delete the cached document. Redis
// failures are logged and never fail the call.
//
// Every invalidation bumps a per-restaurant generation key. A read-miss
// records the generation before loading and writes the document back only
// if the generation is unchanged, so a load that overlaps a review write
// cannot repopulate the key with the pre-review document.
type RestaurantCache struct {
	repository.RestaurantRepository

	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[entry]
	logger  *slog.Logger
}

// entry is a raw cached document and the generation observed with it.
type entry struct {
	data []byte
	gen  string
}

// errStaleWrite aborts a write-back whose generation has moved on.
var errStaleWrite = errors.New("restaurant cache: generation changed")

// NewRestaurantCache returns a caching decorator around next. A nil client
// disables caching and every call goes to next.
func NewRestaurantCache(next repository.RestaurantRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RestaurantCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RestaurantCache{
		RestaurantRepository: next,
		client:               client,
		ttl:                  ttl,
		breaker:              breaker.New[entry](breaker.DefaultConfig("restaurant-cache"), logger),
		logger:               logger,
	}
}

func key(id string) string    { return keyPrefix + id }
func genKey(id string) string { return keyPrefix + id + ":gen" }

// GetByID returns the cached restaurant or loads it and fills the cache.
func (c *RestaurantCache) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	if c.client == nil {
		lookups.WithLabelValues("bypass").Inc()
		return c.RestaurantRepository.GetByID(ctx, id)
	}

	cached, err := c.breaker.Execute(func() (entry, error) {
		vals, err := c.client.MGet(ctx, key(id), genKey(id)).Result()
		if err != nil {
			return entry{}, err
		}
		var e entry
		if s, ok := vals[0].(string); ok {
			e.data = []byte(s)
		}
		if s, ok := vals[1].(string); ok {
			e.gen = s
		}
		return e, nil
	})
	switch {
	case errors.Is(err, breaker.ErrOpen):
		lookups.WithLabelValues("bypass").Inc()
	case err != nil:
		lookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "restaurant cache read failed",
			slog.String("restaurant_id", id),
			slog.String("error", err.Error()),
		)
	case cached.data != nil:
		var r domain.Restaurant
		if jerr := json.Unmarshal(cached.data, &r); jerr == nil {
			lookups.WithLabelValues("hit").Inc()
			return &r, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("restaurant_id", id))
	default:
		lookups.WithLabelValues("miss").Inc()
	}

	r, loadErr := c.RestaurantRepository.GetByID(ctx, id)
	if loadErr != nil {
		return nil, loadErr
	}
	// Without a generation read there is nothing to guard the write with.
	if err == nil {
		c.store(ctx, id, r, cached.gen)
	}
	return r, nil
}

// AddReview writes through and drops the cached document.
func (c *RestaurantCache) AddReview(ctx context.Context, restaurantID string, review *domain.Review) (bool, error) {
	added, err := c.RestaurantRepository.AddReview(ctx, restaurantID, review)
	if err == nil && added {
		c.Invalidate(ctx, restaurantID)
	}
	return added, err
}

// DeleteReviewByAuthor writes through and drops the cached document.
func (c *RestaurantCache) DeleteReviewByAuthor(ctx context.Context, restaurantID, reviewID, authorID string) (bool, error) {
	removed, err := c.RestaurantRepository.DeleteReviewByAuthor(ctx, restaurantID, reviewID, authorID)
	if err == nil && removed {
		c.Invalidate(ctx, restaurantID)
	}
	return removed, err
}

// Invalidate bumps the generation and deletes the cached document for id.
func (c *RestaurantCache) Invalidate(ctx context.Context, id string) {
	if c.client == nil {
		return
	}
	_, err := c.breaker.Execute(func() (entry, error) {
		_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, genKey(id))
			p.Expire(ctx, genKey(id), c.ttl)
			p.Del(ctx, key(id))
			return nil
		})
		return entry{}, err
	})
	if err != nil {
		c.logger.WarnContext(ctx, "restaurant cache invalidation failed",
			slog.String("restaurant_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// store writes r back unless the generation differs from gen.
func (c *RestaurantCache) store(ctx context.Context, id string, r *domain.Restaurant, gen string) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_, err = c.breaker.Execute(func() (entry, error) {
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, genKey(id)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if cur != gen {
				return errStaleWrite
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key(id), data, c.ttl)
				return nil
			})
			return err
		}, genKey(id))
		if errors.Is(err, errStaleWrite) || errors.Is(err, redis.TxFailedErr) {
			c.logger.DebugContext(ctx, "skipped stale restaurant cache write", slog.String("restaurant_id", id))
			return entry{}, nil
		}
		return entry{}, err
	})
	if err != nil {
		c.logger.WarnContext(ctx, "restaurant cache write failed",
			slog.String("restaurant_id", id),
			slog.String("error", err.Error()),
		)
	}
}
