package attempt

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Start creates an in-progress attempt for userID, or returns a
// *RejectionError when the quiz settings forbid another one. prior may hold
// attempts of any user or quiz; only those for (q.ID, userID) are considered.
// A single-attempt quiz with an open prior attempt is rejected with
// ReasonAttemptInProgress and the open attempt's ID, to be resumed instead.
func Start(q *quiz.Quiz, userID string, prior []Attempt, now time.Time) (Attempt, error) {
	if !q.Published {
		return Attempt{}, &RejectionError{Reason: ReasonNotPublished}
	}
	count, finalized := 0, 0
	open := ""
	for _, p := range prior {
		if p.QuizID != q.ID || p.UserID != userID {
			continue
		}
		count++
		if p.Finalized() {
			finalized++
		} else if open == "" {
			open = p.ID
		}
	}
	if !q.Settings.AllowMultipleAttempts {
		if finalized > 0 {
			return Attempt{}, &RejectionError{Reason: ReasonNoAttemptsRemaining}
		}
		if open != "" {
			return Attempt{}, &RejectionError{Reason: ReasonAttemptInProgress, AttemptID: open}
		}
	}
	if limit := q.Settings.MaxAttempts; limit != nil && count >= *limit {
		return Attempt{}, &RejectionError{Reason: ReasonMaxAttemptsReached}
	}

	a := Attempt{
		ID:          uuid.NewString(),
		QuizID:      q.ID,
		UserID:      userID,
		StartedAt:   now.UTC(),
		Answers:     make([]Answer, len(q.Questions)),
		State:       InProgress,
		TotalPoints: q.TotalPoints(),
	}
	for i, qu := range q.Questions {
		a.Answers[i].QuestionID = qu.Common().ID
	}
	return a, nil
}

// RecordAnswer overwrites the answer slot of questionID. A nil value clears it.
func RecordAnswer(q *quiz.Quiz, a Attempt, questionID string, v quiz.Response) (Attempt, error) {
	if a.State != InProgress {
		return a, illegal("answer", a.State)
	}
	qu, _, ok := q.Question(questionID)
	slot := a.Slot(questionID)
	if !ok || slot < 0 {
		return a, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !quiz.Accepts(qu, v) {
		return a, fmt.Errorf("%w: %s expects a %s answer", ErrInvalidResponse, questionID, qu.Kind())
	}
	if es, ok := qu.(*quiz.Essay); ok && v != nil && es.MaxLength > 0 {
		if n := utf8.RuneCountInString(string(v.(quiz.TextResponse))); n > es.MaxLength {
			return a, fmt.Errorf("%w: %s allows at most %d characters, got %d", ErrInvalidResponse, questionID, es.MaxLength, n)
		}
	}
	out := a.Clone()
	out.Answers[slot].Value = cloneResponse(v)
	return out, nil
}

// Tick advances the elapsed time by one second and finalizes the attempt with
// ReasonExpired once the time limit is reached.
func Tick(q *quiz.Quiz, a Attempt, now time.Time) (Attempt, error) {
	out, _, err := tick(q, a, now)
	return out, err
}

// tick is Tick that also returns the grading results when it finalized.
func tick(q *quiz.Quiz, a Attempt, now time.Time) (Attempt, []grading.Graded, error) {
	if a.State != InProgress {
		return a, nil, illegal("tick", a.State)
	}
	out := a.Clone()
	out.ElapsedSeconds++
	var results []grading.Graded
	if limit := int(q.Settings.TimeLimit() / time.Second); limit > 0 && out.ElapsedSeconds >= limit {
		out, results = finalize(q, out, ReasonExpired, now)
	}
	return out, results, nil
}

// Submit finalizes the attempt regardless of how many questions are answered.
func Submit(q *quiz.Quiz, a Attempt, reason FinishReason, now time.Time) (Attempt, error) {
	if a.State != InProgress {
		return a, illegal("submit", a.State)
	}
	out, _ := finalize(q, a.Clone(), reason, now)
	return out, nil
}

// finalize grades every slot as it stands and freezes the attempt. It expects
// an in-progress attempt it may mutate.
func finalize(q *quiz.Quiz, a Attempt, reason FinishReason, now time.Time) (Attempt, []grading.Graded) {
	if reason == ReasonExpired {
		a.State = Expired
	} else {
		a.State = Submitted
	}
	a.FinishReason = reason

	responses := make(map[string]quiz.Response, len(a.Answers))
	for _, ans := range a.Answers {
		responses[ans.QuestionID] = ans.Value
	}
	results, earned, possible := grading.GradeAll(q.Questions, responses)
	for _, r := range results {
		if i := a.Slot(r.QuestionID); i >= 0 {
			a.Answers[i].IsCorrect = r.Verdict.Bool()
			a.Answers[i].PointsEarned = r.PointsEarned
		}
	}

	score := Score(earned, possible)
	passed := score >= q.Settings.PassingScore
	finished := now.UTC()
	a.EarnedPoints = earned
	a.TotalPoints = possible
	a.Score = &score
	a.Passed = &passed
	a.FinishedAt = &finished
	a.State = Graded
	return a, results
}

// Score is round(100 * earned / possible), 0 when nothing is possible.
func Score(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(possible)))
}
