package session

import (
	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
)

// Snapshot is an immutable view of a session. Every state change publishes a
// fresh snapshot to subscribers; the presentation layer never polls.
type Snapshot struct {
	SessionID       uuid.UUID                  `json:"session_id"`
	State           model.SessionState         `json:"state"`
	CurrentIndex    int                        `json:"current_index"`
	TotalQuestions  int                        `json:"total_questions"`
	CurrentQuestion *model.QuestionView        `json:"current_question,omitempty"`
	RemainingMillis int64                      `json:"remaining_millis"`
	Answers         map[uuid.UUID]model.Answer `json:"answers"`
	Breakdown       *model.ScoreBreakdown      `json:"breakdown,omitempty"`
	Warning         string                     `json:"warning,omitempty"`
}

// Snapshot returns a consistent copy of the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// snapshotLocked builds a snapshot. Caller holds the engine mutex. Maps and
// the breakdown are copied so readers never observe a half-applied mutation.
func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:       e.id,
		State:           e.state,
		CurrentIndex:    e.pos,
		TotalQuestions:  len(e.questions),
		RemainingMillis: e.remaining.Milliseconds(),
		Answers:         make(map[uuid.UUID]model.Answer, len(e.answers)),
		Warning:         e.warning,
	}

	for qid, a := range e.answers {
		snap.Answers[qid] = a
	}

	if e.pos >= 0 && e.pos < len(e.questions) {
		view := e.questions[e.pos].View()
		snap.CurrentQuestion = &view
	}

	if e.breakdown != nil {
		b := *e.breakdown
		snap.Breakdown = &b
	}

	return snap
}

// Subscribe registers a snapshot listener. The returned cancel func must be
// called when the listener goes away. Slow listeners drop snapshots rather
// than block the engine.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan Snapshot, 16)
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(snap Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
