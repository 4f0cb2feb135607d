package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blurt-quest/internal/domain"
)

// UserStore persists player progress in Postgres.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Get(ctx context.Context, username string) (domain.UserProfile, error) {
	var (
		profile   domain.UserProfile
		completed []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT username, current_level, completed_levels, total_score FROM users WHERE username=$1`,
		username,
	).Scan(&profile.Username, &profile.CurrentLevel, &completed, &profile.TotalScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	if err := json.Unmarshal(completed, &profile.CompletedLevels); err != nil {
		return domain.UserProfile{}, fmt.Errorf("decode completed levels: %w", err)
	}
	return profile, nil
}

func (s *UserStore) Upsert(ctx context.Context, profile domain.UserProfile) error {
	completed := profile.CompletedLevels
	if completed == nil {
		completed = []int{}
	}
	data, err := json.Marshal(completed)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (username, current_level, completed_levels, total_score, last_active)
		 VALUES ($1, $2, $3::jsonb, $4, now())
		 ON CONFLICT (username) DO UPDATE
		 SET current_level=EXCLUDED.current_level,
		     completed_levels=EXCLUDED.completed_levels,
		     total_score=EXCLUDED.total_score,
		     last_active=now()`,
		profile.Username, profile.CurrentLevel, string(data), profile.TotalScore,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *UserStore) Top(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, current_level, completed_levels, total_score FROM users
		 ORDER BY total_score DESC, username ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	var profiles []domain.UserProfile
	for rows.Next() {
		var (
			profile   domain.UserProfile
			completed []byte
		)
		if err := rows.Scan(&profile.Username, &profile.CurrentLevel, &completed, &profile.TotalScore); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(completed, &profile.CompletedLevels); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
