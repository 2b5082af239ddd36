package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionBank is a named, ordered collection of questions that sessions
// draw from.
type QuestionBank struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateBankRequest is the payload for creating a question bank.
type CreateBankRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}
