package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"blurt-quest/internal/domain"
)

type countingProvider struct {
	calls   int
	entries []domain.LeaderboardEntry
}

func (p *countingProvider) Leaderboard(_ context.Context) ([]domain.LeaderboardEntry, error) {
	p.calls++
	return p.entries, nil
}

func TestLeaderboardCacheHitsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	base := &countingProvider{entries: []domain.LeaderboardEntry{
		{Rank: 1, Username: "alice", TotalScore: 100},
	}}
	cache := NewLeaderboardCache(client, base, time.Minute)

	entries, err := cache.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || base.calls != 1 {
		t.Fatalf("expected one base call, got calls=%d entries=%+v", base.calls, entries)
	}
	if !mr.Exists(leaderboardKey) {
		t.Fatalf("expected cached key in redis")
	}

	// Second read is served from cache.
	if _, err := cache.Leaderboard(context.Background()); err != nil {
		t.Fatalf("cached leaderboard: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected cache hit, base calls=%d", base.calls)
	}
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	base := &countingProvider{entries: []domain.LeaderboardEntry{{Rank: 1, Username: "alice"}}}
	cache := NewLeaderboardCache(client, base, time.Minute)

	if _, err := cache.Leaderboard(context.Background()); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	cache.Invalidate(context.Background())
	if mr.Exists(leaderboardKey) {
		t.Fatalf("expected key dropped after invalidate")
	}

	if _, err := cache.Leaderboard(context.Background()); err != nil {
		t.Fatalf("leaderboard after invalidate: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected reload after invalidate, base calls=%d", base.calls)
	}
}
