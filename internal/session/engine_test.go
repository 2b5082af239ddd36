package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/session"
	"github.com/opexam/opexam-backend/internal/store"
)

// fakeClock records calls instead of keeping time so tests drive the engine
// through Tick directly.
type fakeClock struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	duration time.Duration
	onTick   func(time.Duration)
	onExpire func()
}

func (c *fakeClock) Start(duration time.Duration, onTick func(time.Duration), onExpire func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.duration = duration
	c.onTick = onTick
	c.onExpire = onExpire
	return nil
}

func (c *fakeClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *fakeClock) wasStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

type fakeSink struct {
	mu    sync.Mutex
	saves int
	last  *model.ScoreBreakdown
	err   error
}

func (s *fakeSink) Save(ctx context.Context, sessionID uuid.UUID, b *model.ScoreBreakdown) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.saves++
	s.last = b
	return uuid.New(), nil
}

func (s *fakeSink) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// failingStore always rejects writes, to exercise the warning path.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, sessionID uuid.UUID, a model.Answer) error {
	return errors.New("store down")
}

func (failingStore) GetAll(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]model.Answer, error) {
	return nil, errors.New("store down")
}

func (failingStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return errors.New("store down")
}

func sampleQuestions(n int) []model.Question {
	questions := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, model.Question{
			ID:            uuid.New(),
			Text:          "question",
			Type:          model.QuestionTypeMultipleChoice,
			Options:       []model.Option{{ID: "A", Text: "a"}, {ID: "B", Text: "b"}},
			CorrectAnswer: "A",
			Points:        1,
			OrderNum:      i,
		})
	}
	return questions
}

func newEngine(t *testing.T, questions []model.Question, opts ...session.Option) (*session.Engine, *fakeClock, *fakeSink) {
	t.Helper()
	clock := &fakeClock{}
	sink := &fakeSink{}
	eng := session.New(uuid.New(), store.NewMemoryStore(), sink, clock, zerolog.Nop(), opts...)
	if len(questions) > 0 {
		if err := eng.Start(context.Background(), questions, 30*time.Minute); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	return eng, clock, sink
}

func TestStartValidation(t *testing.T) {
	eng, _, _ := newEngine(t, nil)

	if err := eng.Start(context.Background(), nil, time.Minute); !errors.Is(err, session.ErrInvalidConfiguration) {
		t.Errorf("empty questions: got %v, want ErrInvalidConfiguration", err)
	}
	if err := eng.Start(context.Background(), sampleQuestions(1), 0); !errors.Is(err, session.ErrInvalidConfiguration) {
		t.Errorf("zero duration: got %v, want ErrInvalidConfiguration", err)
	}

	snap := eng.Snapshot()
	if snap.State != model.SessionNotStarted {
		t.Errorf("state after rejected starts = %s, want NOT_STARTED", snap.State)
	}
}

func TestStartTwice(t *testing.T) {
	eng, clock, _ := newEngine(t, sampleQuestions(2))

	if !clock.started {
		t.Fatal("clock not started")
	}
	err := eng.Start(context.Background(), sampleQuestions(2), time.Minute)
	if !errors.Is(err, session.ErrAlreadyStarted) {
		t.Errorf("second start: got %v, want ErrAlreadyStarted", err)
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	eng, _, _ := newEngine(t, nil)

	err := eng.SubmitAnswer(context.Background(), uuid.New(), "A")
	if !errors.Is(err, session.ErrNotRunning) {
		t.Errorf("got %v, want ErrNotRunning", err)
	}
}

func TestSubmitLastWriteWins(t *testing.T) {
	questions := sampleQuestions(2)
	eng, _, _ := newEngine(t, questions)
	qid := questions[0].ID

	if err := eng.SubmitAnswer(context.Background(), qid, "A"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := eng.SubmitAnswer(context.Background(), qid, "B"); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	snap := eng.Snapshot()
	if got := snap.Answers[qid].Value; got != "B" {
		t.Errorf("answer value = %q, want %q", got, "B")
	}
	if len(snap.Answers) != 1 {
		t.Errorf("answer count = %d, want 1", len(snap.Answers))
	}
}

func TestSubmitPreservesFlag(t *testing.T) {
	questions := sampleQuestions(1)
	eng, _, _ := newEngine(t, questions)
	qid := questions[0].ID

	if err := eng.ToggleFlag(context.Background(), qid); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := eng.SubmitAnswer(context.Background(), qid, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ans := eng.Snapshot().Answers[qid]
	if !ans.Flagged {
		t.Error("flag lost after answer rewrite")
	}
	if ans.Value != "A" {
		t.Errorf("value = %q, want %q", ans.Value, "A")
	}
}

func TestSubmitUnknownQuestion(t *testing.T) {
	questions := sampleQuestions(2)
	eng, _, _ := newEngine(t, questions)

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := eng.SubmitAnswer(context.Background(), uuid.New(), "B")
	if !errors.Is(err, session.ErrUnknownQuestion) {
		t.Errorf("got %v, want ErrUnknownQuestion", err)
	}

	// The recorded answers must be untouched by the rejected write.
	snap := eng.Snapshot()
	if len(snap.Answers) != 1 {
		t.Errorf("answer count = %d, want 1", len(snap.Answers))
	}
	if snap.State != model.SessionRunning {
		t.Errorf("state = %s, want RUNNING", snap.State)
	}
}

func TestNavigationClamping(t *testing.T) {
	eng, _, _ := newEngine(t, sampleQuestions(3))

	eng.Previous()
	if got := eng.Snapshot().CurrentIndex; got != 0 {
		t.Errorf("previous at start: index = %d, want 0", got)
	}

	eng.GoTo(99)
	if got := eng.Snapshot().CurrentIndex; got != 0 {
		t.Errorf("goto out of range: index = %d, want 0", got)
	}

	eng.GoTo(-1)
	if got := eng.Snapshot().CurrentIndex; got != 0 {
		t.Errorf("goto negative: index = %d, want 0", got)
	}

	eng.Next()
	eng.Next()
	eng.Next() // clamped at the last question
	if got := eng.Snapshot().CurrentIndex; got != 2 {
		t.Errorf("next past end: index = %d, want 2", got)
	}

	eng.GoTo(1)
	if got := eng.Snapshot().CurrentIndex; got != 1 {
		t.Errorf("goto 1: index = %d, want 1", got)
	}
}

func TestCurrentQuestionHidesCorrectAnswer(t *testing.T) {
	eng, _, _ := newEngine(t, sampleQuestions(1))

	snap := eng.Snapshot()
	if snap.CurrentQuestion == nil {
		t.Fatal("current question missing")
	}
	if len(snap.CurrentQuestion.Options) != 2 {
		t.Errorf("options = %d, want 2", len(snap.CurrentQuestion.Options))
	}
}

func TestTickCountsDown(t *testing.T) {
	eng, _, _ := newEngine(t, sampleQuestions(1))

	eng.Tick(10 * time.Minute)
	snap := eng.Snapshot()
	if snap.RemainingMillis != (20 * time.Minute).Milliseconds() {
		t.Errorf("remaining = %d ms, want %d", snap.RemainingMillis, (20 * time.Minute).Milliseconds())
	}
	if snap.State != model.SessionRunning {
		t.Errorf("state = %s, want RUNNING", snap.State)
	}
}

func TestTickExpiryAutoFinishes(t *testing.T) {
	questions := sampleQuestions(2)
	eng, clock, sink := newEngine(t, questions)

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Overshooting the deadline floors at zero and finishes.
	eng.Tick(45 * time.Minute)

	snap := eng.Snapshot()
	if snap.State != model.SessionFinished {
		t.Fatalf("state = %s, want FINISHED", snap.State)
	}
	if snap.RemainingMillis != 0 {
		t.Errorf("remaining = %d, want 0", snap.RemainingMillis)
	}
	if snap.Breakdown == nil {
		t.Fatal("breakdown missing after expiry")
	}
	if snap.Breakdown.CorrectCount != 1 || snap.Breakdown.UnansweredCount != 1 {
		t.Errorf("breakdown = %+v, want 1 correct / 1 unanswered", snap.Breakdown)
	}
	if !clock.wasStopped() {
		t.Error("clock not stopped after expiry tick")
	}
	if sink.saveCount() != 1 {
		t.Errorf("sink saves = %d, want 1", sink.saveCount())
	}
}

func TestFinishIdempotent(t *testing.T) {
	questions := sampleQuestions(2)
	eng, _, sink := newEngine(t, questions)

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "a "); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := eng.Finish(context.Background())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if first.CorrectCount != 1 {
		t.Errorf("correct = %d, want 1 (case-insensitive match)", first.CorrectCount)
	}

	second, err := eng.Finish(context.Background())
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if second != first {
		t.Error("second finish returned a different breakdown")
	}
	if sink.saveCount() != 1 {
		t.Errorf("sink saves = %d, want 1", sink.saveCount())
	}
}

func TestFinishedSessionIsImmutable(t *testing.T) {
	questions := sampleQuestions(2)
	eng, _, _ := newEngine(t, questions)

	if _, err := eng.Finish(context.Background()); err != nil {
		t.Fatalf("finish: %v", err)
	}

	// Terminal-state mutations are silent no-ops.
	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Errorf("submit after finish: got %v, want nil no-op", err)
	}
	if err := eng.ToggleFlag(context.Background(), questions[0].ID); err != nil {
		t.Errorf("flag after finish: got %v, want nil no-op", err)
	}
	eng.GoTo(1)
	eng.Tick(time.Hour)

	snap := eng.Snapshot()
	if len(snap.Answers) != 0 {
		t.Errorf("answers mutated after finish: %d", len(snap.Answers))
	}
	if snap.CurrentIndex != 0 {
		t.Errorf("position mutated after finish: %d", snap.CurrentIndex)
	}
	if snap.State != model.SessionFinished {
		t.Errorf("state = %s, want FINISHED", snap.State)
	}
}

func TestCancel(t *testing.T) {
	questions := sampleQuestions(1)
	eng, clock, sink := newEngine(t, questions)

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	eng.Cancel()

	snap := eng.Snapshot()
	if snap.State != model.SessionCancelled {
		t.Fatalf("state = %s, want CANCELLED", snap.State)
	}
	if !clock.wasStopped() {
		t.Error("clock not stopped on cancel")
	}
	if sink.saveCount() != 0 {
		t.Errorf("cancel must not score, sink saves = %d", sink.saveCount())
	}

	if _, err := eng.Finish(context.Background()); !errors.Is(err, session.ErrNotRunning) {
		t.Errorf("finish after cancel: got %v, want ErrNotRunning", err)
	}
}

func TestRecoveredAnswersFiltered(t *testing.T) {
	questions := sampleQuestions(2)
	recovered := map[uuid.UUID]model.Answer{
		questions[1].ID: {QuestionID: questions[1].ID, Value: "B", AnsweredAt: time.Now()},
		uuid.New():      {Value: "stale"},
	}

	eng, _, _ := newEngine(t, questions, session.WithRecoveredAnswers(recovered))

	snap := eng.Snapshot()
	if len(snap.Answers) != 1 {
		t.Fatalf("answer count = %d, want 1 (stale answer dropped)", len(snap.Answers))
	}
	if got := snap.Answers[questions[1].ID].Value; got != "B" {
		t.Errorf("recovered value = %q, want %q", got, "B")
	}
}

func TestStoreFailureSetsWarning(t *testing.T) {
	questions := sampleQuestions(1)
	clock := &fakeClock{}
	eng := session.New(uuid.New(), failingStore{}, &fakeSink{}, clock, zerolog.Nop())
	if err := eng.Start(context.Background(), questions, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Fatalf("submit must not fail on replica errors: %v", err)
	}

	snap := eng.Snapshot()
	if snap.Warning == "" {
		t.Error("expected warning after store failure")
	}
	if got := snap.Answers[questions[0].ID].Value; got != "A" {
		t.Errorf("in-memory answer lost: %q", got)
	}
}

func TestSinkFailureKeepsBreakdown(t *testing.T) {
	questions := sampleQuestions(1)
	clock := &fakeClock{}
	sink := &fakeSink{err: errors.New("pg down")}
	eng := session.New(uuid.New(), store.NewMemoryStore(), sink, clock, zerolog.Nop())
	if err := eng.Start(context.Background(), questions, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}

	b, err := eng.Finish(context.Background())
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if b == nil {
		t.Fatal("breakdown must be returned even when persistence fails")
	}
	if eng.Snapshot().State != model.SessionFinished {
		t.Error("session must stay finished despite sink failure")
	}
}

func TestSubscribePublishesSnapshots(t *testing.T) {
	questions := sampleQuestions(1)
	eng, _, _ := newEngine(t, questions)

	snapshots, cancel := eng.Subscribe()
	defer cancel()

	if err := eng.SubmitAnswer(context.Background(), questions[0].ID, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case snap := <-snapshots:
		if len(snap.Answers) != 1 {
			t.Errorf("published snapshot answers = %d, want 1", len(snap.Answers))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestConcurrentSubmits(t *testing.T) {
	questions := sampleQuestions(10)
	eng, _, _ := newEngine(t, questions)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(q model.Question) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = eng.SubmitAnswer(context.Background(), q.ID, "A")
				eng.Next()
			}
		}(questions[i])
	}
	wg.Wait()

	snap := eng.Snapshot()
	if len(snap.Answers) != 10 {
		t.Errorf("answer count = %d, want 10", len(snap.Answers))
	}
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= 10 {
		t.Errorf("index out of range after concurrent navigation: %d", snap.CurrentIndex)
	}
}
