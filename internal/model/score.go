package model

import (
	"github.com/google/uuid"
)

// QuestionResult is the scoring outcome for a single question, in the
// original question order.
type QuestionResult struct {
	QuestionID     uuid.UUID `json:"question_id"`
	IsCorrect      bool      `json:"is_correct"`
	PointsEarned   int       `json:"points_earned"`
	Answered       bool      `json:"answered"`
	RequiresReview bool      `json:"requires_review,omitempty"`
}

// ScoreBreakdown is the scorer's output for a finished session.
type ScoreBreakdown struct {
	ResultID           *uuid.UUID       `json:"result_id,omitempty"`
	TotalPoints        int              `json:"total_points"`
	EarnedPoints       int              `json:"earned_points"`
	CorrectCount       int              `json:"correct_count"`
	IncorrectCount     int              `json:"incorrect_count"`
	UnansweredCount    int              `json:"unanswered_count"`
	PendingReviewCount int              `json:"pending_review_count"`
	Percentage         float64          `json:"percentage"`
	PerQuestionResult  []QuestionResult `json:"per_question_result"`
}
