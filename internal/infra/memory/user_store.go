package memory

import (
	"context"
	"sort"
	"sync"

	"blurt-quest/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.UserProfile
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.UserProfile)}
}

func (s *UserStore) Get(_ context.Context, username string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.users[username]
	if !ok {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	return cloneProfile(profile), nil
}

func (s *UserStore) Upsert(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[profile.Username] = cloneProfile(profile)
	return nil
}

func (s *UserStore) Top(_ context.Context, limit int) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]domain.UserProfile, 0, len(s.users))
	for _, p := range s.users {
		profiles = append(profiles, cloneProfile(p))
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].TotalScore != profiles[j].TotalScore {
			return profiles[i].TotalScore > profiles[j].TotalScore
		}
		return profiles[i].Username < profiles[j].Username
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func cloneProfile(p domain.UserProfile) domain.UserProfile {
	completed := make([]int, len(p.CompletedLevels))
	copy(completed, p.CompletedLevels)
	p.CompletedLevels = completed
	return p
}

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu          sync.Mutex
	completions []domain.LevelCompletion
	rewards     []domain.RewardClaim
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

func (s *AttemptStore) RecordCompletion(_ context.Context, completion domain.LevelCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, completion)
	return nil
}

func (s *AttemptStore) RecordReward(_ context.Context, claim domain.RewardClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards = append(s.rewards, claim)
	return nil
}

func (s *AttemptStore) Rewards(_ context.Context) ([]domain.RewardClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RewardClaim, len(s.rewards))
	copy(out, s.rewards)
	return out, nil
}

func (s *AttemptStore) PendingRewards(_ context.Context) ([]domain.RewardClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RewardClaim, 0, len(s.rewards))
	for _, claim := range s.rewards {
		if claim.Status == "pending" {
			out = append(out, claim)
		}
	}
	return out, nil
}

// Completions returns every recorded attempt; used in tests.
func (s *AttemptStore) Completions() []domain.LevelCompletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LevelCompletion, len(s.completions))
	copy(out, s.completions)
	return out
}
