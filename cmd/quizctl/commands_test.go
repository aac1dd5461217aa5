package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

const quizYAML = `id: planets
title: Planets
published: true
settings:
  passing_score: 60
questions:
  - id: red
    type: multiple_choice
    prompt: The red planet
    points: 2
    options:
      - {id: m, text: Mars, correct: true}
      - {id: v, text: Venus}
  - id: rings
    type: true_false
    prompt: Saturn has rings
    points: 1
    correct_answer: true
  - id: why
    type: essay
    prompt: Why is Pluto not a planet?
    points: 2
    sample_answer: It has not cleared its orbit.
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunValidate(t *testing.T) {
	var out bytes.Buffer
	ok, err := runValidate(&out, writeFile(t, "planets.yaml", quizYAML))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v out=%s", ok, err, out.String())
	}
	if !strings.Contains(out.String(), "3 questions, 5 points") {
		t.Fatalf("summary: %s", out.String())
	}

	out.Reset()
	ok, err = runValidate(&out, writeFile(t, "bad.json", `{"title":"","questions":[{"id":"x","type":"short_answer","prompt":"p","points":1}]}`))
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Fatalf("want title and answer errors, got:\n%s", out.String())
	}

	if _, err := runValidate(&out, writeFile(t, "broken.yaml", "questions: [{type: riddle}]")); err == nil {
		t.Fatal("unknown question type should fail to decode")
	}
}

func TestRunGrade(t *testing.T) {
	qp := writeFile(t, "planets.yml", quizYAML)

	var out bytes.Buffer
	if err := runGrade(&out, qp, writeFile(t, "a.json", `{"red":"m","rings":false,"why":"too small"}`)); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"red", "correct", "incorrect", "pending", "score 40% (2/5 points), failed"} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in:\n%s", want, s)
		}
	}

	if err := runGrade(&out, qp, writeFile(t, "b.json", `{"moon":"m"}`)); err == nil {
		t.Fatal("unknown question accepted")
	}
	if err := runGrade(&out, qp, writeFile(t, "c.json", `{"red":["m"]}`)); err == nil {
		t.Fatal("wrong value shape accepted")
	}
}

func TestPrintStats(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	q, err := quiz.DecodeYAML([]byte(quizYAML))
	if err != nil {
		t.Fatal(err)
	}
	q.Settings.AllowMultipleAttempts = true
	if err := st.PutQuiz(ctx, q); err != nil {
		t.Fatal(err)
	}
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, user := range []string{"ann", "bob"} {
		a, err := attempt.Start(q, user, nil, t0)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			a, _ = attempt.RecordAnswer(q, a, "red", quiz.ChoiceResponse("m"))
		}
		done, _ := attempt.Submit(q, a, attempt.ReasonManual, t0.Add(time.Minute))
		if err := st.PutAttempt(ctx, done); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := printStats(ctx, &out, st, "planets"); err != nil {
		t.Fatal(err)
	}
	var got struct {
		TotalAttempts int      `json:"total_attempts"`
		UniqueUsers   int      `json:"unique_users"`
		AverageScore  float64  `json:"average_score"`
		Leaderboard   []string `json:"leaderboard"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TotalAttempts != 2 || got.UniqueUsers != 2 || got.AverageScore != 20 {
		t.Fatalf("stats: %+v", got)
	}
	if strings.Join(got.Leaderboard, ",") != "ann,bob" {
		t.Fatalf("leaderboard: %v", got.Leaderboard)
	}

	if err := printStats(ctx, &out, st, "nope"); !store.IsNotFound(err) {
		t.Fatalf("missing quiz: %v", err)
	}
}
