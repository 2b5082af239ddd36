// Package session implements the exam session engine: a single-writer state
// machine owning the question sequence, the collected answers and the
// countdown of one exam attempt.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/scoring"
)

// Engine errors. Invalid input is reported synchronously from the offending
// call; everything else is a silent no-op so a stray caller can never corrupt
// a session.
var (
	ErrInvalidConfiguration = errors.New("session requires at least one question and a positive duration")
	ErrUnknownQuestion      = errors.New("question is not part of this session")
	ErrAlreadyStarted       = errors.New("session already started")
	ErrNotRunning           = errors.New("session is not running")
)

// Clock is the countdown contract the engine depends on. The tick cadence and
// scheduling mechanism belong to the implementation.
type Clock interface {
	Start(duration time.Duration, onTick func(remaining time.Duration), onExpire func()) error
	Stop()
}

// AnswerStore is the write-through recovery replica. The in-memory answer map
// stays authoritative while the session runs; store failures downgrade to a
// warning on the published snapshot.
type AnswerStore interface {
	Put(ctx context.Context, sessionID uuid.UUID, a model.Answer) error
	GetAll(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]model.Answer, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

// ScoreSink persists the final breakdown once, at finish time.
type ScoreSink interface {
	Save(ctx context.Context, sessionID uuid.UUID, b *model.ScoreBreakdown) (uuid.UUID, error)
}

// Engine drives one exam attempt through
// NOT_STARTED → RUNNING → {FINISHED, CANCELLED}.
//
// All mutations serialize on a single mutex, including clock callbacks.
// Side effects that could re-enter the engine (clock stop, store writes,
// snapshot publishing) run after the lock is released.
type Engine struct {
	id    uuid.UUID
	store AnswerStore
	sink  ScoreSink
	clock Clock
	log   zerolog.Logger

	mu        sync.Mutex
	state     model.SessionState
	questions []model.Question
	byID      map[uuid.UUID]int
	pos       int
	answers   map[uuid.UUID]model.Answer
	remaining time.Duration
	breakdown *model.ScoreBreakdown
	persisted bool
	warning   string

	recovered map[uuid.UUID]model.Answer

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// Option customizes engine construction.
type Option func(*Engine)

// WithRecoveredAnswers seeds the engine with answers reloaded from the
// Answer Store after a crash. Answers for questions outside the session's
// question list are dropped at Start.
func WithRecoveredAnswers(answers map[uuid.UUID]model.Answer) Option {
	return func(e *Engine) {
		e.recovered = answers
	}
}

// New creates an engine in the NOT_STARTED state.
func New(id uuid.UUID, store AnswerStore, sink ScoreSink, clock Clock, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		id:    id,
		store: store,
		sink:  sink,
		clock: clock,
		log:   log.With().Str("component", "session_engine").Str("session_id", id.String()).Logger(),
		state: model.SessionNotStarted,
		subs:  make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the session identifier.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Start transitions NOT_STARTED → RUNNING and begins the countdown.
// The question list and duration are fixed for the lifetime of the session.
func (e *Engine) Start(ctx context.Context, questions []model.Question, duration time.Duration) error {
	e.mu.Lock()
	if e.state != model.SessionNotStarted {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(questions) == 0 || duration <= 0 {
		e.mu.Unlock()
		return ErrInvalidConfiguration
	}

	e.questions = questions
	e.byID = make(map[uuid.UUID]int, len(questions))
	for i, q := range questions {
		e.byID[q.ID] = i
	}

	e.answers = make(map[uuid.UUID]model.Answer, len(e.recovered))
	for qid, a := range e.recovered {
		if _, ok := e.byID[qid]; ok {
			e.answers[qid] = a
		}
	}
	e.recovered = nil

	e.pos = 0
	e.remaining = duration
	e.state = model.SessionRunning
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.clock.Start(duration, e.syncRemaining, e.expire); err != nil {
		return err
	}

	e.publish(snap)
	e.log.Info().
		Int("questions", len(questions)).
		Dur("duration", duration).
		Msg("Session started")
	return nil
}

// SubmitAnswer upserts the answer for a question. Last write wins; the flag
// bit of an existing answer survives the rewrite. The write is mirrored to
// the Answer Store immediately.
func (e *Engine) SubmitAnswer(ctx context.Context, questionID uuid.UUID, value string) error {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return nil
	}
	if e.state != model.SessionRunning {
		e.mu.Unlock()
		return ErrNotRunning
	}
	if _, ok := e.byID[questionID]; !ok {
		e.mu.Unlock()
		// Caller bug, not user error: log it as a defect signal.
		e.log.Warn().Str("question_id", questionID.String()).Msg("Answer for unknown question rejected")
		return ErrUnknownQuestion
	}

	ans := model.Answer{
		QuestionID: questionID,
		Value:      value,
		Flagged:    e.answers[questionID].Flagged,
		AnsweredAt: time.Now(),
	}
	e.answers[questionID] = ans
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(snap)
	e.writeThrough(ctx, ans)
	return nil
}

// ToggleFlag flips the review flag on the existing answer, creating an empty
// one if the question has not been answered yet.
func (e *Engine) ToggleFlag(ctx context.Context, questionID uuid.UUID) error {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return nil
	}
	if e.state != model.SessionRunning {
		e.mu.Unlock()
		return ErrNotRunning
	}
	if _, ok := e.byID[questionID]; !ok {
		e.mu.Unlock()
		return ErrUnknownQuestion
	}

	ans := e.answers[questionID]
	ans.QuestionID = questionID
	ans.Flagged = !ans.Flagged
	ans.AnsweredAt = time.Now()
	e.answers[questionID] = ans
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(snap)
	e.writeThrough(ctx, ans)
	return nil
}

// GoTo moves the current position. Out-of-range requests are silently
// ignored: navigation must never crash an in-progress exam.
func (e *Engine) GoTo(index int) {
	e.mu.Lock()
	if e.state != model.SessionRunning || index < 0 || index >= len(e.questions) || index == e.pos {
		e.mu.Unlock()
		return
	}
	e.pos = index
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(snap)
}

// Next advances one question, clamped at the end.
func (e *Engine) Next() {
	e.mu.Lock()
	idx := e.pos + 1
	e.mu.Unlock()
	e.GoTo(idx)
}

// Previous moves back one question, clamped at the start.
func (e *Engine) Previous() {
	e.mu.Lock()
	idx := e.pos - 1
	e.mu.Unlock()
	e.GoTo(idx)
}

// Tick decreases the remaining time by elapsed, floored at zero. Reaching
// zero finishes the session automatically.
func (e *Engine) Tick(elapsed time.Duration) {
	e.advance(func(current time.Duration) time.Duration {
		return current - elapsed
	}, true)
}

// syncRemaining is the clock's tick callback. The clock computes remaining
// time from its own deadline, so this only ever moves remaining downward.
func (e *Engine) syncRemaining(remaining time.Duration) {
	e.advance(func(current time.Duration) time.Duration {
		if remaining < current {
			return remaining
		}
		return current
	}, false)
}

// expire is the clock's expiry callback.
func (e *Engine) expire() {
	e.advance(func(time.Duration) time.Duration { return 0 }, false)
}

// advance applies a remaining-time transition. stopClock must be false when
// the call originates from a clock callback: the expiring clock tears itself
// down, and stopping it from inside its own callback would deadlock.
func (e *Engine) advance(next func(time.Duration) time.Duration, stopClock bool) {
	e.mu.Lock()
	if e.state != model.SessionRunning {
		e.mu.Unlock()
		return
	}

	remaining := next(e.remaining)
	if remaining < 0 {
		remaining = 0
	}
	e.remaining = remaining

	if remaining > 0 {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(snap)
		return
	}

	b, snap := e.finishLocked()
	e.mu.Unlock()

	if stopClock {
		e.clock.Stop()
	}
	e.publish(snap)
	e.log.Info().Msg("Session auto-finished on expiry")

	// The timer goroutine is not a request context; persist with a fresh one.
	e.persistResult(context.Background(), b)
}

// Finish transitions RUNNING → FINISHED: scores the in-memory answer set,
// persists the breakdown and stops the clock. Idempotent — repeated calls
// return the breakdown computed the first time.
func (e *Engine) Finish(ctx context.Context) (*model.ScoreBreakdown, error) {
	e.mu.Lock()
	switch e.state {
	case model.SessionFinished:
		b := e.breakdown
		persisted := e.persisted
		e.mu.Unlock()
		if persisted {
			return b, nil
		}
		// The earlier result write failed; this retry is the recovery path.
		if err := e.persistResult(ctx, b); err != nil {
			return b, err
		}
		return b, nil
	case model.SessionRunning:
		// fall through
	default:
		e.mu.Unlock()
		return nil, ErrNotRunning
	}

	b, snap := e.finishLocked()
	e.mu.Unlock()

	e.clock.Stop()
	e.publish(snap)

	if err := e.persistResult(ctx, b); err != nil {
		return b, err
	}
	return b, nil
}

// finishLocked performs the scoring transition. Caller holds the lock and
// has verified the session is running.
func (e *Engine) finishLocked() (*model.ScoreBreakdown, Snapshot) {
	e.breakdown = scoring.Score(e.questions, e.answers)
	e.state = model.SessionFinished
	return e.breakdown, e.snapshotLocked()
}

// Cancel abandons the session without scoring. Answers already mirrored to
// the Answer Store remain for a later resume.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state = model.SessionCancelled
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.clock.Stop()
	e.publish(snap)
	e.log.Info().Msg("Session cancelled")
}

// writeThrough mirrors one answer to the Answer Store. Failures never abort
// the session; they surface as a warning on the next published snapshot.
func (e *Engine) writeThrough(ctx context.Context, ans model.Answer) {
	if err := e.store.Put(ctx, e.id, ans); err != nil {
		e.log.Warn().Err(err).Str("question_id", ans.QuestionID.String()).Msg("Answer replica write failed")
		e.setWarning("answer checkpoint failed; the session continues in memory")
	}
}

// persistResult saves the final breakdown and clears the recovery replica.
func (e *Engine) persistResult(ctx context.Context, b *model.ScoreBreakdown) error {
	resultID, err := e.sink.Save(ctx, e.id, b)
	if err != nil {
		e.log.Error().Err(err).Msg("Result persistence failed")
		e.setWarning("result could not be persisted")
		return err
	}

	e.mu.Lock()
	e.breakdown.ResultID = &resultID
	e.persisted = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	if err := e.store.Clear(ctx, e.id); err != nil {
		e.log.Warn().Err(err).Msg("Replica cleanup failed")
	}
	return nil
}

func (e *Engine) setWarning(msg string) {
	e.mu.Lock()
	e.warning = msg
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}
