package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one user response. At most one Answer exists per question per
// session; a later write replaces the earlier one.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Value      string    `json:"value"`
	Flagged    bool      `json:"flagged"`
	AnsweredAt time.Time `json:"answered_at"`
}
