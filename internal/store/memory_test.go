package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID := uuid.New()
	qid := uuid.New()

	if err := s.Put(ctx, sessionID, model.Answer{QuestionID: qid, Value: "A", AnsweredAt: time.Now()}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Last write wins.
	if err := s.Put(ctx, sessionID, model.Answer{QuestionID: qid, Value: "B", Flagged: true}); err != nil {
		t.Fatalf("put: %v", err)
	}

	answers, err := s.GetAll(ctx, sessionID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer count = %d, want 1", len(answers))
	}
	if got := answers[qid]; got.Value != "B" || !got.Flagged {
		t.Errorf("answer = %+v, want value B flagged", got)
	}
}

func TestMemoryStoreSessionsIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	if err := s.Put(ctx, a, model.Answer{QuestionID: uuid.New(), Value: "x"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	answers, err := s.GetAll(ctx, b)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("session b sees %d answers from session a", len(answers))
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	sessionID := uuid.New()

	if err := s.Put(ctx, sessionID, model.Answer{QuestionID: uuid.New(), Value: "x"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Clear(ctx, sessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	answers, err := s.GetAll(ctx, sessionID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("answers survive clear: %d", len(answers))
	}
}
