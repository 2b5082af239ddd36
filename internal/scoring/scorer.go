// Package scoring grades a finished answer set against its question list.
// It is pure: no I/O, no clocks, deterministic for a given input.
package scoring

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
)

// Score walks the questions in their original order and compares each
// recorded answer against the canonical one.
//
// Comparison policy by type: MULTIPLE_CHOICE, TRUE_FALSE, FILL_BLANK and
// SHORT_ANSWER are matched exactly after trimming and case-folding.
// DESCRIPTIVE answers are never auto-scored: they earn zero points and are
// reported with requires_review so a human can grade them later.
func Score(questions []model.Question, answers map[uuid.UUID]model.Answer) *model.ScoreBreakdown {
	b := &model.ScoreBreakdown{
		PerQuestionResult: make([]model.QuestionResult, 0, len(questions)),
	}

	for _, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		b.TotalPoints += points

		result := model.QuestionResult{QuestionID: q.ID}

		ans, answered := answers[q.ID]
		// A flag toggle on an untouched question leaves an empty value behind;
		// that is not an answer.
		if answered && ans.Value == "" {
			answered = false
		}
		result.Answered = answered

		switch {
		case !answered:
			b.UnansweredCount++
		case !q.Type.AutoScored():
			result.RequiresReview = true
			b.PendingReviewCount++
			b.IncorrectCount++
		case match(ans.Value, q.CorrectAnswer):
			result.IsCorrect = true
			result.PointsEarned = points
			b.CorrectCount++
			b.EarnedPoints += points
		default:
			b.IncorrectCount++
		}

		b.PerQuestionResult = append(b.PerQuestionResult, result)
	}

	if b.TotalPoints > 0 {
		pct := float64(b.EarnedPoints) / float64(b.TotalPoints) * 100
		b.Percentage = math.Round(pct*100) / 100
	}

	return b
}

// match compares an answer value against the canonical answer,
// case-normalized and trimmed.
func match(value, correct string) bool {
	return normalize(value) == normalize(correct)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
