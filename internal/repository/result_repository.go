package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opexam/opexam-backend/internal/model"
)

// SessionResult is a persisted score breakdown row.
type SessionResult struct {
	ID        uuid.UUID             `json:"id"`
	SessionID uuid.UUID             `json:"session_id"`
	Breakdown *model.ScoreBreakdown `json:"breakdown"`
	CreatedAt time.Time             `json:"created_at"`
}

// ResultRepository persists final score breakdowns. It is the engine's score
// sink: one write per finished session, awaited before results are shown.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Save upserts the breakdown for a session and returns the result id.
// Finishing is idempotent upstream, so a repeated save for the same session
// keeps the existing row.
func (r *ResultRepository) Save(ctx context.Context, sessionID uuid.UUID, b *model.ScoreBreakdown) (uuid.UUID, error) {
	perQuestion, err := json.Marshal(b.PerQuestionResult)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal per-question results: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO session_results
		   (session_id, total_points, earned_points, correct_count, incorrect_count,
		    unanswered_count, pending_review_count, percentage, per_question)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		 RETURNING id`,
		sessionID, b.TotalPoints, b.EarnedPoints, b.CorrectCount, b.IncorrectCount,
		b.UnansweredCount, b.PendingReviewCount, b.Percentage, perQuestion,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save result: %w", err)
	}
	return id, nil
}

// GetBySessionID retrieves the breakdown persisted for a session, if any.
// Backs idempotent finish after the live engine has been retired.
func (r *ResultRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ScoreBreakdown, error) {
	b := &model.ScoreBreakdown{}
	var id uuid.UUID
	var perQuestion []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, total_points, earned_points, correct_count, incorrect_count,
		        unanswered_count, pending_review_count, percentage, per_question
		 FROM session_results WHERE session_id = $1`, sessionID,
	).Scan(&id, &b.TotalPoints, &b.EarnedPoints, &b.CorrectCount, &b.IncorrectCount,
		&b.UnansweredCount, &b.PendingReviewCount, &b.Percentage, &perQuestion)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(perQuestion, &b.PerQuestionResult); err != nil {
		return nil, fmt.Errorf("unmarshal per-question results: %w", err)
	}
	b.ResultID = &id
	return b, nil
}

// GetByID retrieves a persisted result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*SessionResult, error) {
	res := &SessionResult{Breakdown: &model.ScoreBreakdown{}}
	var perQuestion []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, total_points, earned_points, correct_count, incorrect_count,
		        unanswered_count, pending_review_count, percentage, per_question, created_at
		 FROM session_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.SessionID,
		&res.Breakdown.TotalPoints, &res.Breakdown.EarnedPoints,
		&res.Breakdown.CorrectCount, &res.Breakdown.IncorrectCount,
		&res.Breakdown.UnansweredCount, &res.Breakdown.PendingReviewCount,
		&res.Breakdown.Percentage, &perQuestion, &res.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(perQuestion, &res.Breakdown.PerQuestionResult); err != nil {
		return nil, fmt.Errorf("unmarshal per-question results: %w", err)
	}
	res.Breakdown.ResultID = &res.ID
	return res, nil
}
