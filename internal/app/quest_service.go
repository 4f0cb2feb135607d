package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"blurt-quest/internal/domain"
)

// PassRatio is the share of correct answers required to complete a level.
const PassRatio = 0.6

// UserStore persists player progress.
type UserStore interface {
	Get(ctx context.Context, username string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) error
	Top(ctx context.Context, limit int) ([]domain.UserProfile, error)
}

// QuestionBank loads the full question set (answers included) for a level.
type QuestionBank interface {
	Level(ctx context.Context, level int) ([]domain.Question, error)
}

// AttemptStore records submitted attempts and reward claims.
type AttemptStore interface {
	RecordCompletion(ctx context.Context, completion domain.LevelCompletion) error
	RecordReward(ctx context.Context, claim domain.RewardClaim) error
	Rewards(ctx context.Context) ([]domain.RewardClaim, error)
	PendingRewards(ctx context.Context) ([]domain.RewardClaim, error)
}

// LeaderboardProvider returns the ranked scoreboard. Implementations may
// cache; StoreLeaderboard is the uncached base.
type LeaderboardProvider interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// QuestService contains the server-side quest use cases: authentication,
// progress, level content, scoring, and reward accounting.
type QuestService struct {
	users       UserStore
	questions   QuestionBank
	attempts    AttemptStore
	leaderboard LeaderboardProvider
	verifier    KeyVerifier
	tokens      *TokenIssuer
	now         func() time.Time

	mu          sync.Mutex
	subscribers map[chan []domain.LeaderboardEntry]struct{}
}

func NewQuestService(users UserStore, questions QuestionBank, attempts AttemptStore, leaderboard LeaderboardProvider, verifier KeyVerifier, tokens *TokenIssuer) *QuestService {
	return &QuestService{
		users:       users,
		questions:   questions,
		attempts:    attempts,
		leaderboard: leaderboard,
		verifier:    verifier,
		tokens:      tokens,
		now:         time.Now,
		subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// Login verifies the posting key, creates the player on first sight, and
// issues a session token.
func (s *QuestService) Login(ctx context.Context, username, postingKey string) (domain.Session, error) {
	ok, err := s.verifier.Verify(ctx, username, postingKey)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	if _, err := s.users.Get(ctx, username); errors.Is(err, domain.ErrUserNotFound) {
		profile := domain.UserProfile{Username: username, CurrentLevel: 1, CompletedLevels: []int{}}
		if err := s.users.Upsert(ctx, profile); err != nil {
			return domain.Session{}, err
		}
	} else if err != nil {
		return domain.Session{}, err
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Username: username, Token: token}, nil
}

// Authenticate resolves a bearer token to the player it names.
func (s *QuestService) Authenticate(token string) (string, error) {
	return s.tokens.Validate(token)
}

// Profile returns the player's progress.
func (s *QuestService) Profile(ctx context.Context, username string) (domain.UserProfile, error) {
	profile, err := s.users.Get(ctx, username)
	if err != nil {
		return domain.UserProfile{}, err
	}
	profile.LevelsCompleted = len(profile.CompletedLevels)
	return profile, nil
}

// LevelQuestions returns the question set for a level with correct-answer
// data stripped. The level must be valid and unlocked for the player.
func (s *QuestService) LevelQuestions(ctx context.Context, username string, level int) ([]domain.Question, error) {
	if level < 1 || level > domain.MaxLevel {
		return nil, domain.ErrInvalidLevel
	}
	profile, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if level > profile.CurrentLevel {
		return nil, domain.ErrLevelLocked
	}
	questions, err := s.questions.Level(ctx, level)
	if err != nil {
		return nil, err
	}

	stripped := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.CorrectAnswer = 0
		stripped[i] = q
	}
	return stripped, nil
}

// Submit scores an answer set against the level's key, updates progress on a
// first-time pass, and records the attempt and any reward claim.
func (s *QuestService) Submit(ctx context.Context, username string, level int, answers []int, timeTaken int) (domain.LevelResult, error) {
	if level < 1 || level > domain.MaxLevel {
		return domain.LevelResult{}, domain.ErrInvalidLevel
	}
	profile, err := s.users.Get(ctx, username)
	if err != nil {
		return domain.LevelResult{}, err
	}
	if level > profile.CurrentLevel {
		return domain.LevelResult{}, domain.ErrLevelLocked
	}
	questions, err := s.questions.Level(ctx, level)
	if err != nil {
		return domain.LevelResult{}, err
	}
	if len(answers) != len(questions) {
		return domain.LevelResult{}, domain.ErrAnswerCount
	}

	correct := 0
	points := 0
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			correct++
			points += q.Points
		}
	}
	passing := float64(len(questions)) * PassRatio
	completed := float64(correct) >= passing
	alreadyCompleted := profile.Completed(level)

	now := s.now()
	if err := s.attempts.RecordCompletion(ctx, domain.LevelCompletion{
		ID:                uuid.NewString(),
		Username:          username,
		Level:             level,
		Score:             points,
		QuestionsAnswered: len(answers),
		TimeTakenSeconds:  timeTaken,
		CompletedAt:       now,
	}); err != nil {
		return domain.LevelResult{}, err
	}

	rewardEarned := 0.0
	if completed && !alreadyCompleted {
		profile.CompletedLevels = append(profile.CompletedLevels, level)
		if level == profile.CurrentLevel {
			profile.CurrentLevel = int(math.Min(float64(level+1), domain.MaxLevel))
		}
		profile.TotalScore += points
		if err := s.users.Upsert(ctx, profile); err != nil {
			return domain.LevelResult{}, err
		}

		rewardEarned = domain.RewardForLevel(level)
		if err := s.attempts.RecordReward(ctx, domain.RewardClaim{
			ID:           uuid.NewString(),
			Username:     username,
			Level:        level,
			RewardAmount: rewardEarned,
			ClaimedAt:    now,
			Status:       "pending",
		}); err != nil {
			return domain.LevelResult{}, err
		}

		s.broadcastLeaderboard(ctx)
	}

	return domain.LevelResult{
		Level:              level,
		CorrectAnswers:     correct,
		TotalQuestions:     len(questions),
		Score:              points,
		LevelCompleted:     completed,
		PassingScoreNeeded: passing,
		NextLevelUnlocked:  completed && level < domain.MaxLevel,
		RewardEarned:       rewardEarned,
	}, nil
}

// Leaderboard returns the ranked scoreboard.
func (s *QuestService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.leaderboard.Leaderboard(ctx)
}

// Users lists all players ordered by score, for the admin surface.
func (s *QuestService) Users(ctx context.Context) ([]domain.UserProfile, error) {
	profiles, err := s.users.Top(ctx, 1000)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].LevelsCompleted = len(profiles[i].CompletedLevels)
	}
	return profiles, nil
}

// Rewards lists every recorded reward claim.
func (s *QuestService) Rewards(ctx context.Context) ([]domain.RewardClaim, error) {
	return s.attempts.Rewards(ctx)
}

// RewardExport summarizes pending claims for manual distribution.
type RewardExport struct {
	Rewards             []domain.RewardClaim `json:"rewards"`
	TotalPendingRewards float64              `json:"total_pending_rewards"`
	TotalClaims         int                  `json:"total_claims"`
}

// ExportPendingRewards gathers claims awaiting payout.
func (s *QuestService) ExportPendingRewards(ctx context.Context) (RewardExport, error) {
	pending, err := s.attempts.PendingRewards(ctx)
	if err != nil {
		return RewardExport{}, err
	}
	total := 0.0
	for _, claim := range pending {
		total += claim.RewardAmount
	}
	return RewardExport{Rewards: pending, TotalPendingRewards: total, TotalClaims: len(pending)}, nil
}

// SubscribeLeaderboard returns a channel receiving a fresh scoreboard after
// every score-changing submission. The cancel function must be called to
// release the subscription.
func (s *QuestService) SubscribeLeaderboard(ctx context.Context) (<-chan []domain.LeaderboardEntry, func(), error) {
	initial, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []domain.LeaderboardEntry, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Deliver the initial snapshot before any broadcast can race it. The
	// channel is fresh and buffered, so this cannot block.
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// leaderboardInvalidator is implemented by caching providers that need an
// explicit drop when scores change.
type leaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

func (s *QuestService) broadcastLeaderboard(ctx context.Context) {
	if inv, ok := s.leaderboard.(leaderboardInvalidator); ok {
		inv.Invalidate(ctx)
	}
	entries, err := s.leaderboard.Leaderboard(ctx)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- entries:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
