package attempt

import (
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	// Submitted and Expired are transient: finalize moves them to Graded
	// before the attempt is handed back to a caller.
	Submitted State = "submitted"
	Expired   State = "expired"
	Graded    State = "graded"
)

// FinishReason records which event finalized an attempt.
type FinishReason string

const (
	ReasonManual  FinishReason = "manual"
	ReasonExpired FinishReason = "expired"
)

// Answer is one question slot of an attempt. A nil Value means unanswered.
type Answer struct {
	QuestionID   string
	Value        quiz.Response
	IsCorrect    *bool
	PointsEarned int
}

type answerJSON struct {
	QuestionID   string          `json:"question_id"`
	Kind         quiz.Kind       `json:"kind,omitempty"`
	Value        json.RawMessage `json:"value"`
	IsCorrect    *bool           `json:"is_correct"`
	PointsEarned int             `json:"points_earned"`
}

// MarshalJSON tags the value with its shape so it can be decoded without the quiz.
func (a Answer) MarshalJSON() ([]byte, error) {
	out := answerJSON{QuestionID: a.QuestionID, IsCorrect: a.IsCorrect, PointsEarned: a.PointsEarned}
	if a.Value == nil {
		out.Value = json.RawMessage("null")
	} else {
		raw, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		out.Kind = a.Value.Shape()
		out.Value = raw
	}
	return json.Marshal(out)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	var in answerJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	a.QuestionID = in.QuestionID
	a.IsCorrect = in.IsCorrect
	a.PointsEarned = in.PointsEarned
	a.Value = nil
	if in.Kind == "" {
		return nil
	}
	v, err := quiz.DecodeShape(in.Kind, in.Value)
	if err != nil {
		return err
	}
	a.Value = v
	return nil
}

// Attempt is one user's sitting of a quiz. Answers holds one slot per
// question in authored order.
type Attempt struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quiz_id"`
	UserID         string       `json:"user_id"`
	StartedAt      time.Time    `json:"started_at"`
	Answers        []Answer     `json:"answers"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	State          State        `json:"state"`
	FinishReason   FinishReason `json:"finish_reason,omitempty"`
	Score          *int         `json:"score,omitempty"`
	Passed         *bool        `json:"passed,omitempty"`
	EarnedPoints   int          `json:"earned_points"`
	TotalPoints    int          `json:"total_points"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}

// Finalized reports whether the attempt reached its terminal state.
func (a Attempt) Finalized() bool { return a.State == Graded }

// Answered counts slots holding a value.
func (a Attempt) Answered() int {
	n := 0
	for _, ans := range a.Answers {
		if ans.Value != nil {
			n++
		}
	}
	return n
}

// Slot returns the index of the answer slot for questionID.
func (a Attempt) Slot(questionID string) int {
	for i, ans := range a.Answers {
		if ans.QuestionID == questionID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no mutable state with a.
func (a Attempt) Clone() Attempt {
	out := a
	out.Answers = make([]Answer, len(a.Answers))
	for i, ans := range a.Answers {
		out.Answers[i] = Answer{
			QuestionID:   ans.QuestionID,
			Value:        cloneResponse(ans.Value),
			IsCorrect:    cloneBool(ans.IsCorrect),
			PointsEarned: ans.PointsEarned,
		}
	}
	if a.Score != nil {
		v := *a.Score
		out.Score = &v
	}
	out.Passed = cloneBool(a.Passed)
	if a.FinishedAt != nil {
		t := *a.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneResponse(r quiz.Response) quiz.Response {
	switch v := r.(type) {
	case quiz.SelectResponse:
		return append(quiz.SelectResponse(nil), v...)
	case quiz.BlanksResponse:
		return append(quiz.BlanksResponse(nil), v...)
	}
	return r
}
