package attempt

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func gradedForReview(t *testing.T, s quiz.Settings) (*quiz.Quiz, Attempt) {
	t.Helper()
	q := twoQuestionQuiz()
	q.Questions[0].Common().Explanation = "A is right"
	q.Settings = s
	a := mustStart(t, q)
	a, _ = RecordAnswer(q, a, "q1", quiz.ChoiceResponse("a"))
	a, _ = Submit(q, a, ReasonManual, t0)
	return q, a
}

func TestReviewRequiresGradedAttempt(t *testing.T) {
	q := twoQuestionQuiz()
	if _, err := BuildReview(q, mustStart(t, q)); !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("want ErrNotFinalized, got %v", err)
	}
}

func TestReviewHonoursSettings(t *testing.T) {
	cases := []struct {
		name              string
		settings          quiz.Settings
		items             bool
		key, explanations bool
	}{
		{"no review", quiz.Settings{ShowCorrectAnswers: true, ShowExplanations: true}, false, false, false},
		{"review only", quiz.Settings{AllowReview: true}, true, false, false},
		{"answers", quiz.Settings{AllowReview: true, ShowCorrectAnswers: true}, true, true, false},
		{"everything", quiz.Settings{AllowReview: true, ShowCorrectAnswers: true, ShowExplanations: true}, true, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q, a := gradedForReview(t, c.settings)
			r, err := BuildReview(q, a)
			if err != nil {
				t.Fatal(err)
			}
			if r.Score != 50 || r.EarnedPoints != 5 {
				t.Fatalf("summary wrong: %+v", r)
			}
			if (len(r.Items) > 0) != c.items {
				t.Fatalf("items present=%v", len(r.Items) > 0)
			}
			if !c.items {
				return
			}
			first := r.Items[0]
			if (first.CorrectAnswer != nil) != c.key {
				t.Errorf("correct answer shown=%v", first.CorrectAnswer != nil)
			}
			if (first.Explanation != "") != c.explanations {
				t.Errorf("explanation shown=%v", first.Explanation != "")
			}
			if first.IsCorrect == nil || !*first.IsCorrect || r.Items[1].Response != nil {
				t.Errorf("per-question results wrong: %+v", r.Items)
			}
		})
	}
}
