package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QuestionType is the closed set of supported question kinds. It is resolved
// once when questions are loaded from storage; nothing downstream compares
// raw string tags.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeDescriptive    QuestionType = "DESCRIPTIVE"
	QuestionTypeFillBlank      QuestionType = "FILL_BLANK"
)

// ParseQuestionType resolves a stored type tag into a QuestionType.
// Tags are matched case-insensitively so legacy rows like "multiple_choice"
// load cleanly.
func ParseQuestionType(tag string) (QuestionType, error) {
	switch QuestionType(strings.ToUpper(strings.TrimSpace(tag))) {
	case QuestionTypeMultipleChoice:
		return QuestionTypeMultipleChoice, nil
	case QuestionTypeTrueFalse:
		return QuestionTypeTrueFalse, nil
	case QuestionTypeShortAnswer:
		return QuestionTypeShortAnswer, nil
	case QuestionTypeDescriptive:
		return QuestionTypeDescriptive, nil
	case QuestionTypeFillBlank:
		return QuestionTypeFillBlank, nil
	default:
		return "", fmt.Errorf("unknown question type %q", tag)
	}
}

// HasOptions reports whether the type carries an option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// AutoScored reports whether an answer of this type is compared against the
// canonical answer automatically. Descriptive answers always require human
// review and never earn points from the scorer.
func (t QuestionType) AutoScored() bool {
	return t != QuestionTypeDescriptive
}

// Option is one selectable choice belonging to exactly one question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a single exam question. Immutable for the duration of a session.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	BankID        uuid.UUID    `json:"bank_id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	OrderNum      int          `json:"order_num"`
}

// QuestionView is a question without the correct answer, safe to send to
// exam takers.
type QuestionView struct {
	ID       uuid.UUID    `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Options  []Option     `json:"options,omitempty"`
	Points   int          `json:"points"`
	OrderNum int          `json:"order_num"`
}

// View strips the correct answer from a question.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Type:     q.Type,
		Options:  q.Options,
		Points:   q.Points,
		OrderNum: q.OrderNum,
	}
}

// AddQuestionRequest is the payload for adding a question to a bank.
type AddQuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=1,max=2000"`
	Type          string   `json:"type" binding:"required,oneof=MULTIPLE_CHOICE TRUE_FALSE SHORT_ANSWER DESCRIPTIVE FILL_BLANK"`
	Options       []Option `json:"options" binding:"omitempty,dive"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=500"`
	Points        int      `json:"points" binding:"omitempty,min=1,max=100"`
	OrderNum      int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a bank's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
