package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"blurt-quest/internal/app"
	"blurt-quest/internal/domain"
)

const leaderboardKey = "quest:leaderboard"

// LeaderboardCache keeps the ranked scoreboard in Redis with a TTL and falls
// back to the base provider on cache miss. Submissions invalidate it so the
// next read reflects the new scores.
type LeaderboardCache struct {
	client *redis.Client
	base   app.LeaderboardProvider
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, base app.LeaderboardProvider, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		base:   base,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if entries, ok := c.fromCache(ctx); ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(leaderboardKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if entries, ok := c.fromCache(ctx); ok {
			return entries, nil
		}

		entries, err := c.base.Leaderboard(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(entries); err == nil {
			_ = c.client.Set(ctx, leaderboardKey, data, c.ttlWithJitter()).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Invalidate drops the cached scoreboard; best effort.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, leaderboardKey).Err()
}

func (c *LeaderboardCache) fromCache(ctx context.Context) ([]domain.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
