package stats

import (
	"math"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
)

func graded(quizID, user string, score int, passed bool, correct ...bool) attempt.Attempt {
	a := attempt.Attempt{QuizID: quizID, UserID: user, State: attempt.Graded, Score: &score, Passed: &passed}
	for i, c := range correct {
		c := c
		a.Answers = append(a.Answers, attempt.Answer{QuestionID: string(rune('a' + i)), IsCorrect: &c})
	}
	return a
}

func TestComputeRequiredFields(t *testing.T) {
	attempts := []attempt.Attempt{
		graded("qz", "ann", 40, false),
		graded("qz", "ann", 80, true),
		graded("qz", "bob", 90, true),
		graded("qz", "cy", 50, false),
		graded("other", "ann", 100, true),
		{QuizID: "qz", UserID: "dee", State: attempt.InProgress},
	}
	s := Compute("qz", attempts)

	if s.TotalAttempts != 4 || s.UniqueUsers != 3 {
		t.Fatalf("counts: %+v", s)
	}
	if s.AverageScore != 65 {
		t.Fatalf("average over every attempt should be 65, got %v", s.AverageScore)
	}
	if s.PassRate != 50 {
		t.Fatalf("pass rate %v", s.PassRate)
	}
	want := map[string]int{"ann": 80, "bob": 90, "cy": 50}
	for u, b := range want {
		if s.BestScores[u] != b {
			t.Errorf("best[%s] = %d, want %d", u, s.BestScores[u], b)
		}
	}
	if _, ok := s.BestScores["dee"]; ok {
		t.Error("in-progress attempt counted")
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute("qz", nil)
	if s.TotalAttempts != 0 || s.AverageScore != 0 || s.PassRate != 0 || s.Distribution != nil {
		t.Fatalf("empty stats should be zero: %+v", s)
	}
	if s.BestScores == nil {
		t.Fatal("best scores map should be non-nil")
	}
}

func TestComputeDistributionAndQuestionRates(t *testing.T) {
	attempts := []attempt.Attempt{
		graded("qz", "a", 20, false, true, false),
		graded("qz", "b", 60, true, true, true),
		graded("qz", "c", 100, true, false, true),
	}
	// pending essay slot does not count as graded
	attempts[0].Answers = append(attempts[0].Answers, attempt.Answer{QuestionID: "c"})

	s := Compute("qz", attempts)
	d := s.Distribution
	if d == nil || d.Min != 20 || d.Max != 100 || d.Median != 60 {
		t.Fatalf("distribution %+v", d)
	}
	if math.Abs(d.StdDev-32.6599) > 0.001 {
		t.Fatalf("population std dev %v", d.StdDev)
	}

	if len(s.Questions) != 3 {
		t.Fatalf("question rates %+v", s.Questions)
	}
	first := s.Questions[0]
	if first.QuestionID != "a" || first.Graded != 3 || first.Correct != 2 {
		t.Fatalf("question a: %+v", first)
	}
	if math.Abs(first.CorrectRate-66.6667) > 0.001 {
		t.Fatalf("question a rate %v", first.CorrectRate)
	}
	if s.Questions[2].Graded != 0 || s.Questions[2].CorrectRate != 0 {
		t.Fatalf("pending question should have no graded answers: %+v", s.Questions[2])
	}
}

func TestComputeIsStateless(t *testing.T) {
	attempts := []attempt.Attempt{graded("qz", "a", 70, true)}
	first := Compute("qz", attempts)
	attempts = append(attempts, graded("qz", "b", 10, false))
	second := Compute("qz", attempts)
	if first.TotalAttempts != 1 || second.TotalAttempts != 2 || second.AverageScore != 40 {
		t.Fatalf("first %+v second %+v", first, second)
	}
}

func TestLeaderboard(t *testing.T) {
	s := Compute("qz", []attempt.Attempt{
		graded("qz", "zed", 90, true),
		graded("qz", "amy", 90, true),
		graded("qz", "bo", 95, true),
	})
	got := s.Leaderboard()
	if len(got) != 3 || got[0] != "bo" || got[1] != "amy" || got[2] != "zed" {
		t.Fatalf("leaderboard %v", got)
	}
}
