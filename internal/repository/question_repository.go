package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opexam/opexam-backend/internal/model"
)

// QuestionRepository handles question data access. Option lists are stored
// as JSONB alongside the question row; type tags are resolved into the
// closed QuestionType set when rows are loaded.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByBank retrieves all questions of a bank, ordered by order_num.
func (r *QuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bank_id, question_text, question_type, options, correct_answer, points, order_num
		 FROM questions WHERE bank_id = $1
		 ORDER BY order_num`, bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			typeTag string
			rawOpts []byte
		)
		if err := rows.Scan(&q.ID, &q.BankID, &q.Text, &typeTag, &rawOpts, &q.CorrectAnswer, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		q.Type, err = model.ParseQuestionType(typeTag)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if len(rawOpts) > 0 {
			if err := json.Unmarshal(rawOpts, &q.Options); err != nil {
				return nil, fmt.Errorf("question %s options: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForBank atomically replaces a bank's entire question list.
func (r *QuestionRepository) ReplaceForBank(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE bank_id = $1`, bankID); err != nil {
		return fmt.Errorf("clear bank: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (bank_id, question_text, question_type, options, correct_answer, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			bankID, q.Text, string(q.Type), opts, q.CorrectAnswer, q.Points, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE question_banks SET updated_at = NOW() WHERE id = $1`, bankID); err != nil {
		return fmt.Errorf("touch bank: %w", err)
	}

	return tx.Commit(ctx)
}

// ErrNoRows re-exported so callers don't import pgx directly.
var ErrNoRows = pgx.ErrNoRows
