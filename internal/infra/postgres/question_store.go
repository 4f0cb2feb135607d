package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"blurt-quest/internal/domain"
)

// QuestionStore loads level question sets (answer keys included) from
// Postgres. Rows are JSONB in the same shape the memory bank uses.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Level(ctx context.Context, level int) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE level=$1 ORDER BY id`, level)
	if err != nil {
		return nil, fmt.Errorf("load level %d: %w", level, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrInvalidLevel
	}
	return questions, nil
}

// Seed inserts the given questions if the table is empty, mirroring the
// startup seeding of the original deployment.
func Seed(ctx context.Context, pool *pgxpool.Pool, questions []domain.Question) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM questions`).Scan(&count); err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO questions (id, level, data) VALUES ($1, $2, $3::jsonb) ON CONFLICT (id) DO NOTHING`,
			q.ID, q.Level, string(data),
		); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return nil
}
