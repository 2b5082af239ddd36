package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
)

func mcQuestion(correct string, points int) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeMultipleChoice,
		CorrectAnswer: correct,
		Points:        points,
	}
}

func TestScoreMixedOutcomes(t *testing.T) {
	questions := []model.Question{
		mcQuestion("A", 1),
		mcQuestion("B", 1),
		mcQuestion("C", 1),
	}
	answers := map[uuid.UUID]model.Answer{
		questions[0].ID: {QuestionID: questions[0].ID, Value: "A"},
		questions[1].ID: {QuestionID: questions[1].ID, Value: "X"},
	}

	b := Score(questions, answers)

	if b.TotalPoints != 3 {
		t.Errorf("total = %d, want 3", b.TotalPoints)
	}
	if b.EarnedPoints != 1 {
		t.Errorf("earned = %d, want 1", b.EarnedPoints)
	}
	if b.CorrectCount != 1 || b.IncorrectCount != 1 || b.UnansweredCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			b.CorrectCount, b.IncorrectCount, b.UnansweredCount)
	}
	if b.Percentage != 33.33 {
		t.Errorf("percentage = %.2f, want 33.33", b.Percentage)
	}
	if len(b.PerQuestionResult) != 3 {
		t.Fatalf("per-question results = %d, want 3", len(b.PerQuestionResult))
	}
	// Results keep question order.
	for i, q := range questions {
		if b.PerQuestionResult[i].QuestionID != q.ID {
			t.Errorf("result %d out of order", i)
		}
	}
	if !b.PerQuestionResult[0].IsCorrect || b.PerQuestionResult[1].IsCorrect {
		t.Error("per-question correctness wrong")
	}
	if b.PerQuestionResult[2].Answered {
		t.Error("unanswered question marked answered")
	}
}

func TestScoreNormalizesValue(t *testing.T) {
	q := model.Question{
		ID:            uuid.New(),
		Type:          model.QuestionTypeShortAnswer,
		CorrectAnswer: "Au",
		Points:        2,
	}
	answers := map[uuid.UUID]model.Answer{
		q.ID: {QuestionID: q.ID, Value: "  au "},
	}

	b := Score([]model.Question{q}, answers)
	if b.EarnedPoints != 2 {
		t.Errorf("earned = %d, want 2 (trimmed, case-folded match)", b.EarnedPoints)
	}
	if b.Percentage != 100 {
		t.Errorf("percentage = %.2f, want 100", b.Percentage)
	}
}

func TestScoreDescriptiveRequiresReview(t *testing.T) {
	q := model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeDescriptive,
		Points: 5,
	}
	answers := map[uuid.UUID]model.Answer{
		q.ID: {QuestionID: q.ID, Value: "a long essay"},
	}

	b := Score([]model.Question{q}, answers)

	if b.EarnedPoints != 0 {
		t.Errorf("descriptive must not auto-earn, got %d", b.EarnedPoints)
	}
	if b.PendingReviewCount != 1 {
		t.Errorf("pending review = %d, want 1", b.PendingReviewCount)
	}
	if !b.PerQuestionResult[0].RequiresReview {
		t.Error("requires_review not set")
	}
	if !b.PerQuestionResult[0].Answered {
		t.Error("descriptive answer not marked answered")
	}
}

func TestScoreEmptyValueIsUnanswered(t *testing.T) {
	q := mcQuestion("A", 1)
	// A flag toggle without an answer leaves an empty-value entry behind.
	answers := map[uuid.UUID]model.Answer{
		q.ID: {QuestionID: q.ID, Value: "", Flagged: true},
	}

	b := Score([]model.Question{q}, answers)
	if b.UnansweredCount != 1 {
		t.Errorf("unanswered = %d, want 1", b.UnansweredCount)
	}
	if b.IncorrectCount != 0 {
		t.Errorf("incorrect = %d, want 0", b.IncorrectCount)
	}
}

func TestScoreDefaultsZeroPointsToOne(t *testing.T) {
	q := mcQuestion("A", 0)
	answers := map[uuid.UUID]model.Answer{
		q.ID: {QuestionID: q.ID, Value: "a"},
	}

	b := Score([]model.Question{q}, answers)
	if b.TotalPoints != 1 || b.EarnedPoints != 1 {
		t.Errorf("points = %d/%d, want 1/1", b.EarnedPoints, b.TotalPoints)
	}
}

func TestScoreEmptyQuestionList(t *testing.T) {
	b := Score(nil, nil)
	if b.TotalPoints != 0 || b.Percentage != 0 {
		t.Errorf("empty input: got %+v, want zeroes", b)
	}
	if b.PerQuestionResult == nil || len(b.PerQuestionResult) != 0 {
		t.Error("per-question results should be empty, not nil")
	}
}

func TestScoreDeterministic(t *testing.T) {
	questions := []model.Question{mcQuestion("A", 2), mcQuestion("B", 3)}
	answers := map[uuid.UUID]model.Answer{
		questions[0].ID: {QuestionID: questions[0].ID, Value: "A"},
	}

	first := Score(questions, answers)
	second := Score(questions, answers)

	if first.EarnedPoints != second.EarnedPoints || first.Percentage != second.Percentage {
		t.Error("score is not deterministic for identical input")
	}
	if first.Percentage != 40 {
		t.Errorf("percentage = %.2f, want 40", first.Percentage)
	}
}
