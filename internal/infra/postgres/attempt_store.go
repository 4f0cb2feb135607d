package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blurt-quest/internal/domain"
)

// AttemptStore records level completions and reward claims in Postgres.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) RecordCompletion(ctx context.Context, c domain.LevelCompletion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO level_completions (id, username, level, score, questions_answered, time_taken_seconds, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Username, c.Level, c.Score, c.QuestionsAnswered, c.TimeTakenSeconds, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

func (s *AttemptStore) RecordReward(ctx context.Context, claim domain.RewardClaim) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reward_claims (id, username, level, reward_amount, claimed_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		claim.ID, claim.Username, claim.Level, claim.RewardAmount, claim.ClaimedAt, claim.Status,
	)
	if err != nil {
		return fmt.Errorf("record reward: %w", err)
	}
	return nil
}

func (s *AttemptStore) Rewards(ctx context.Context) ([]domain.RewardClaim, error) {
	return s.queryRewards(ctx, `SELECT id, username, level, reward_amount, claimed_at, status
		FROM reward_claims ORDER BY claimed_at DESC`)
}

func (s *AttemptStore) PendingRewards(ctx context.Context) ([]domain.RewardClaim, error) {
	return s.queryRewards(ctx, `SELECT id, username, level, reward_amount, claimed_at, status
		FROM reward_claims WHERE status='pending' ORDER BY claimed_at ASC`)
}

func (s *AttemptStore) queryRewards(ctx context.Context, query string, args ...interface{}) ([]domain.RewardClaim, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()
	return scanRewards(rows)
}

func scanRewards(rows pgx.Rows) ([]domain.RewardClaim, error) {
	var claims []domain.RewardClaim
	for rows.Next() {
		var claim domain.RewardClaim
		if err := rows.Scan(&claim.ID, &claim.Username, &claim.Level, &claim.RewardAmount, &claim.ClaimedAt, &claim.Status); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}
