package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/relinkhq/relink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedRepo(ttl time.Duration) *CachedLinkRepository {
	return NewCachedLinkRepository(newTestRepo(), testCache.Client, ttl, nil)
}

func TestCachedLinkRepository_GetByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("miss populates the cache", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		testDB.Pool.Exec(ctx, `
            INSERT INTO links (code, url) VALUES ($1, $2)
        `, "cache1", "https://example.com/cached")

		link, err := repo.GetByCode(ctx, "cache1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/cached", link.URL)

		cached, err := testCache.Client.Get(ctx, "link:cache1").Result()
		require.NoError(t, err, "expected record to be cached after a miss")

		var cachedLink model.Link
		require.NoError(t, json.Unmarshal([]byte(cached), &cachedLink))
		assert.Equal(t, "cache1", cachedLink.Code)
	})

	t.Run("hit is served from the cache", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		testDB.Pool.Exec(ctx, `
            INSERT INTO links (code, url) VALUES ($1, $2)
        `, "cache2", "https://example.com/hot")

		_, err := repo.GetByCode(ctx, "cache2")
		require.NoError(t, err)

		// Remove the row behind the cache's back; a cached read still answers.
		testDB.Pool.Exec(ctx, "DELETE FROM links WHERE code = $1", "cache2")

		link, err := repo.GetByCode(ctx, "cache2")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/hot", link.URL)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		_, err := repo.GetByCode(ctx, "ghost1")
		assert.ErrorIs(t, err, ErrNotFound)

		exists, err := testCache.Client.Exists(ctx, "link:ghost1").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})

	t.Run("nil cache client falls through to the store", func(t *testing.T) {
		testDB.Cleanup(ctx)
		repo := NewCachedLinkRepository(newTestRepo(), nil, time.Minute, nil)

		testDB.Pool.Exec(ctx, `
            INSERT INTO links (code, url) VALUES ($1, $2)
        `, "nocache", "https://example.com/direct")

		link, err := repo.GetByCode(ctx, "nocache")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/direct", link.URL)
	})
}

func TestCachedLinkRepository_Touch(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes the cached record with post-increment state", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		testDB.Pool.Exec(ctx, `
            INSERT INTO links (code, url) VALUES ($1, $2)
        `, "touch1", "https://example.com/touched")

		link, err := repo.Touch(ctx, "touch1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.Clicks)

		cached, err := testCache.Client.Get(ctx, "link:touch1").Result()
		require.NoError(t, err)

		var cachedLink model.Link
		require.NoError(t, json.Unmarshal([]byte(cached), &cachedLink))
		assert.Equal(t, int64(1), cachedLink.Clicks, "cache must reflect the increment")
	})
}

func TestCachedLinkRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("evicts the cached record", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		testDB.Pool.Exec(ctx, `
            INSERT INTO links (code, url) VALUES ($1, $2)
        `, "evict1", "https://example.com/evicted")

		_, err := repo.GetByCode(ctx, "evict1")
		require.NoError(t, err)

		_, err = repo.Delete(ctx, "evict1")
		require.NoError(t, err)

		exists, err := testCache.Client.Exists(ctx, "link:evict1").Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "expected cache entry to be evicted on delete")

		_, err = repo.GetByCode(ctx, "evict1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCachedLinkRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("primes the cache with the new record", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		link := &model.Link{Code: "prime1", URL: "https://example.com/primed"}
		require.NoError(t, repo.Create(ctx, link))

		cached, err := testCache.Client.Get(ctx, "link:prime1").Result()
		require.NoError(t, err, "expected record to be cached on create")

		var cachedLink model.Link
		require.NoError(t, json.Unmarshal([]byte(cached), &cachedLink))
		assert.Equal(t, "https://example.com/primed", cachedLink.URL)
	})

	t.Run("conflict bypasses the cache", func(t *testing.T) {
		testDB.Cleanup(ctx)
		testCache.Cleanup(ctx)
		repo := newCachedRepo(time.Minute)

		require.NoError(t, repo.Create(ctx, &model.Link{Code: "confl1", URL: "https://example.com/1"}))
		testCache.Cleanup(ctx)

		err := repo.Create(ctx, &model.Link{Code: "confl1", URL: "https://example.com/2"})
		assert.ErrorIs(t, err, ErrCodeConflict)

		exists, err := testCache.Client.Exists(ctx, "link:confl1").Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "a failed create must not populate the cache")
	})
}
