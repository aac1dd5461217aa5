package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// loadQuiz reads a quiz file, choosing the codec by extension.
func loadQuiz(path string) (*quiz.Quiz, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return quiz.DecodeYAML(b)
	default:
		return quiz.DecodeJSON(b)
	}
}

// runValidate prints every authoring error and reports whether there were none.
func runValidate(w io.Writer, path string) (bool, error) {
	q, err := loadQuiz(path)
	if err != nil {
		return false, err
	}
	errs := quiz.Validate(q)
	if len(errs) == 0 {
		fmt.Fprintf(w, "%s: ok (%d questions, %d points)\n", path, len(q.Questions), q.TotalPoints())
		return true, nil
	}
	for _, e := range errs {
		fmt.Fprintf(w, "%s: %s\n", path, e)
	}
	return false, nil
}

func runGrade(w io.Writer, quizPath, answersPath string) error {
	q, err := loadQuiz(quizPath)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(answersPath)
	if err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	responses := make(map[string]quiz.Response, len(raw))
	for id, v := range raw {
		qu, _, ok := q.Question(id)
		if !ok {
			return fmt.Errorf("answers: unknown question %q", id)
		}
		r, err := quiz.DecodeResponse(qu, v)
		if err != nil {
			return fmt.Errorf("answers: question %q: %w", id, err)
		}
		responses[id] = r
	}

	graded, earned, possible := grading.GradeAll(q.Questions, responses)
	for _, g := range graded {
		fmt.Fprintf(w, "%-16s %-9s %d/%d\n", g.QuestionID, g.Verdict, g.PointsEarned, g.MaxPoints)
	}
	score := attempt.Score(earned, possible)
	result := "failed"
	if score >= q.Settings.PassingScore {
		result = "passed"
	}
	fmt.Fprintf(w, "score %d%% (%d/%d points), %s\n", score, earned, possible, result)
	return nil
}

func runStats(w io.Writer, driver, dsn, quizID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, dbh, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	if dbh != nil {
		defer dbh.Close()
	}
	return printStats(ctx, w, st, quizID)
}

func printStats(ctx context.Context, w io.Writer, st store.Store, quizID string) error {
	if _, err := st.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	attempts, err := st.ListAttempts(ctx, store.AttemptFilter{QuizID: quizID})
	if err != nil {
		return err
	}
	s := stats.Compute(quizID, attempts)
	out := struct {
		stats.QuizStatistics
		Leaderboard []string `json:"leaderboard"`
	}{s, s.Leaderboard()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
