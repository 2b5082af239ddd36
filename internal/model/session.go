package model

// SessionState enumerates the session engine states.
type SessionState string

const (
	SessionNotStarted SessionState = "NOT_STARTED"
	SessionRunning    SessionState = "RUNNING"
	SessionFinished   SessionState = "FINISHED"
	SessionCancelled  SessionState = "CANCELLED"
)

// Terminal reports whether the state accepts no further mutation.
func (s SessionState) Terminal() bool {
	return s == SessionFinished || s == SessionCancelled
}

// StartSessionRequest is the payload for starting a new exam session.
type StartSessionRequest struct {
	BankID          string `json:"bank_id" binding:"required,uuid"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1"`
}

// SubmitAnswerRequest is the payload for answering a question.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Value      string `json:"value" binding:"required,max=5000"`
}

// FlagRequest is the payload for toggling a question's review flag.
type FlagRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// MoveRequest is the payload for navigating within a session.
// Direction is one of "next", "previous" or "goto"; Index is only read for
// "goto".
type MoveRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next previous goto"`
	Index     int    `json:"index" binding:"min=0"`
}
