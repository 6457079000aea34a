package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/relinkhq/relink/internal/model"
	"github.com/relinkhq/relink/internal/observability"
	"github.com/sony/gobreaker"
)

// LinkRepositoryInterface is the store contract consumed by the service
// layer. Both the plain and the cached repository satisfy it.
type LinkRepositoryInterface interface {
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	Touch(ctx context.Context, code string) (*model.Link, error)
	Delete(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context) ([]*model.Link, error)
}

// CachedLinkRepository wraps LinkRepository with a redis cache for the
// lookup path. The cache is an optimization only: clicks are always
// incremented through the store's atomic UPDATE, and a cache failure
// degrades to a direct store read. All redis calls go through a circuit
// breaker so a cache outage stops hammering redis quickly.
type CachedLinkRepository struct {
	db      *LinkRepository
	cache   *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	metrics *observability.AppMetrics
}

// NewCachedLinkRepository creates a cached repository. A nil cache client
// disables caching entirely; metrics may also be nil.
func NewCachedLinkRepository(db *LinkRepository, cache *redis.Client, ttl time.Duration, metrics *observability.AppMetrics) *CachedLinkRepository {
	var breaker *gobreaker.CircuitBreaker
	if cache != nil {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "link-cache",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return &CachedLinkRepository{
		db:      db,
		cache:   cache,
		ttl:     ttl,
		breaker: breaker,
		metrics: metrics,
	}
}

func cacheKey(code string) string {
	return fmt.Sprintf("link:%s", code)
}

// Create inserts through the store and primes the cache with the new record.
func (r *CachedLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.Create(ctx, link); err != nil {
		return err
	}
	r.cacheSet(ctx, link)
	return nil
}

// GetByCode reads through the cache. Cache errors are swallowed and the
// lookup falls back to the store.
func (r *CachedLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if r.cache != nil {
		if link := r.cacheGet(ctx, code); link != nil {
			r.countCacheHit(ctx)
			return link, nil
		}
		r.countCacheMiss(ctx)
	}

	link, err := r.db.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheSet(ctx, link)
	return link, nil
}

// Touch increments through the store and refreshes the cached record with
// the post-increment state.
func (r *CachedLinkRepository) Touch(ctx context.Context, code string) (*model.Link, error) {
	link, err := r.db.Touch(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, link)
	return link, nil
}

// Delete removes from the store, then evicts the cached record.
func (r *CachedLinkRepository) Delete(ctx context.Context, code string) (*model.Link, error) {
	link, err := r.db.Delete(ctx, code)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.breaker.Execute(func() (interface{}, error) {
			return nil, r.cache.Del(ctx, cacheKey(code)).Err()
		})
	}
	return link, nil
}

// List always hits the store; listings must reflect deletions immediately.
func (r *CachedLinkRepository) List(ctx context.Context) ([]*model.Link, error) {
	return r.db.List(ctx)
}

func (r *CachedLinkRepository) cacheGet(ctx context.Context, code string) *model.Link {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.cache.Get(ctx, cacheKey(code)).Result()
	})
	if err != nil {
		return nil
	}
	var link model.Link
	if err := json.Unmarshal([]byte(result.(string)), &link); err != nil {
		return nil
	}
	return &link
}

func (r *CachedLinkRepository) cacheSet(ctx context.Context, link *model.Link) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	r.breaker.Execute(func() (interface{}, error) {
		return nil, r.cache.Set(ctx, cacheKey(link.Code), data, r.ttl).Err()
	})
}

func (r *CachedLinkRepository) countCacheHit(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.CacheHits.Add(ctx, 1)
	}
}

func (r *CachedLinkRepository) countCacheMiss(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.CacheMisses.Add(ctx, 1)
	}
}

var _ LinkRepositoryInterface = (*CachedLinkRepository)(nil)
