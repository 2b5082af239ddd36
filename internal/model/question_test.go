package model

import "testing"

func TestParseQuestionType(t *testing.T) {
	cases := []struct {
		tag  string
		want QuestionType
	}{
		{"MULTIPLE_CHOICE", QuestionTypeMultipleChoice},
		{"multiple_choice", QuestionTypeMultipleChoice},
		{" true_false ", QuestionTypeTrueFalse},
		{"Short_Answer", QuestionTypeShortAnswer},
		{"DESCRIPTIVE", QuestionTypeDescriptive},
		{"fill_blank", QuestionTypeFillBlank},
	}
	for _, tc := range cases {
		got, err := ParseQuestionType(tc.tag)
		if err != nil {
			t.Errorf("ParseQuestionType(%q): %v", tc.tag, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseQuestionType(%q) = %s, want %s", tc.tag, got, tc.want)
		}
	}

	if _, err := ParseQuestionType("ESSAY"); err == nil {
		t.Error("unknown tag accepted")
	}
}

func TestQuestionViewStripsCorrectAnswer(t *testing.T) {
	q := Question{
		Text:          "2+2?",
		Type:          QuestionTypeShortAnswer,
		CorrectAnswer: "4",
		Points:        1,
	}

	view := q.View()
	if view.Text != q.Text || view.Type != q.Type || view.Points != q.Points {
		t.Errorf("view lost fields: %+v", view)
	}
}

func TestSessionStateTerminal(t *testing.T) {
	if SessionNotStarted.Terminal() || SessionRunning.Terminal() {
		t.Error("non-terminal state reported terminal")
	}
	if !SessionFinished.Terminal() || !SessionCancelled.Terminal() {
		t.Error("terminal state reported non-terminal")
	}
}
