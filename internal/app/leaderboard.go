package app

import (
	"context"

	"blurt-quest/internal/domain"
)

// LeaderboardSize is how many ranked players the scoreboard exposes.
const LeaderboardSize = 20

// StoreLeaderboard is the uncached LeaderboardProvider, ranking players
// straight from the user store.
type StoreLeaderboard struct {
	users UserStore
	limit int
}

func NewStoreLeaderboard(users UserStore) *StoreLeaderboard {
	return &StoreLeaderboard{users: users, limit: LeaderboardSize}
}

func (l *StoreLeaderboard) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	profiles, err := l.users.Top(ctx, l.limit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:            i + 1,
			Username:        p.Username,
			TotalScore:      p.TotalScore,
			LevelsCompleted: len(p.CompletedLevels),
			CurrentLevel:    p.CurrentLevel,
		})
	}
	return entries, nil
}
