package websocket

import (
	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionFlag   Action = "flag"
	ActionGoto   Action = "goto"
	ActionSubmit Action = "submit"
	ActionCancel Action = "cancel"
	ActionPing   Action = "ping"
)

// RequestPayload is the single client message shape; which fields are read
// depends on Action.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Value      string `json:"value,omitempty"`
	Index      int    `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventGraded   Event = "graded"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotResponse pushes the full session snapshot after every change.
type SnapshotResponse struct {
	Event    Event            `json:"event"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// GradedResponse carries the final breakdown after submit or expiry.
type GradedResponse struct {
	Event     Event                 `json:"event"`
	Breakdown *model.ScoreBreakdown `json:"breakdown"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
