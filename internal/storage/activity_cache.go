package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pace-club/internal/models"
)

// ErrCacheMiss is returned when no cached value exists for a key
var ErrCacheMiss = errors.New("cache miss")

// Key layout under the application namespace. Blobs are whole values:
// readers get the full list or a miss, never a partial record.
const (
	keyPrefix     = "paceclub"
	keyRunsAll    = keyPrefix + ":runs:all:%s"
	keyRunsRecent = keyPrefix + ":runs:recent:%s"
	keyOAuthState = keyPrefix + ":oauth:state:%s"
)

// oauthStateTTL bounds how long an issued authorize redirect stays valid
const oauthStateTTL = 10 * time.Minute

// ActivityCache stores fetched activity lists and derived recent-run views
// per wallet, used as the fallback when the provider is unreachable.
type ActivityCache struct {
	store *RedisStore
	ttl   time.Duration
}

// NewActivityCache creates a cache with the given blob TTL
func NewActivityCache(store *RedisStore, ttl time.Duration) *ActivityCache {
	return &ActivityCache{store: store, ttl: ttl}
}

// SetActivities caches the full fetched activity list for a wallet
func (c *ActivityCache) SetActivities(ctx context.Context, walletAddress string, activities []models.Activity) error {
	blob, err := json.Marshal(activities)
	if err != nil {
		return fmt.Errorf("failed to marshal activities: %w", err)
	}
	return c.store.Set(ctx, fmt.Sprintf(keyRunsAll, walletAddress), blob, c.ttl)
}

// GetActivities returns the cached activity list for a wallet
func (c *ActivityCache) GetActivities(ctx context.Context, walletAddress string) ([]models.Activity, error) {
	raw, err := c.store.Get(ctx, fmt.Sprintf(keyRunsAll, walletAddress))
	if err != nil {
		if IsNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached activities: %w", err)
	}

	var activities []models.Activity
	if err := json.Unmarshal([]byte(raw), &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached activities: %w", err)
	}
	return activities, nil
}

// SetRecentRuns caches the derived recent-run view for a wallet
func (c *ActivityCache) SetRecentRuns(ctx context.Context, walletAddress string, runs []models.RecentRun) error {
	blob, err := json.Marshal(runs)
	if err != nil {
		return fmt.Errorf("failed to marshal recent runs: %w", err)
	}
	return c.store.Set(ctx, fmt.Sprintf(keyRunsRecent, walletAddress), blob, c.ttl)
}

// GetRecentRuns returns the cached recent-run view for a wallet
func (c *ActivityCache) GetRecentRuns(ctx context.Context, walletAddress string) ([]models.RecentRun, error) {
	raw, err := c.store.Get(ctx, fmt.Sprintf(keyRunsRecent, walletAddress))
	if err != nil {
		if IsNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached recent runs: %w", err)
	}

	var runs []models.RecentRun
	if err := json.Unmarshal([]byte(raw), &runs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached recent runs: %w", err)
	}
	return runs, nil
}

// PutOAuthState records an issued authorize-redirect nonce
func (c *ActivityCache) PutOAuthState(ctx context.Context, state string) error {
	return c.store.Set(ctx, fmt.Sprintf(keyOAuthState, state), "1", oauthStateTTL)
}

// TakeOAuthState consumes a nonce, reporting whether it was outstanding.
// A nonce is single-use: a second take fails.
func (c *ActivityCache) TakeOAuthState(ctx context.Context, state string) (bool, error) {
	_, err := c.store.GetDel(ctx, fmt.Sprintf(keyOAuthState, state))
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to take oauth state: %w", err)
	}
	return true, nil
}

// Wipe clears every cached key for a wallet
func (c *ActivityCache) Wipe(ctx context.Context, walletAddress string) error {
	return c.store.Del(ctx,
		fmt.Sprintf(keyRunsAll, walletAddress),
		fmt.Sprintf(keyRunsRecent, walletAddress),
	)
}

// WipeAll clears every key under the application namespace
func (c *ActivityCache) WipeAll(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, keyPrefix+":*")
	if err != nil {
		return fmt.Errorf("failed to list namespace keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.store.Del(ctx, keys...)
}
