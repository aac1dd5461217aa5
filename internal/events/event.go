package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
)

const (
	AttemptStarted   = "attempt.started"
	AttemptFinalized = "attempt.finalized"
	AttemptAbandoned = "attempt.abandoned"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Key       string         `json:"key"` // attempt id
	QuizID    string         `json:"quiz_id"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Publisher delivers attempt lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// ForAttempt builds an event of typ describing a.
func ForAttempt(typ string, a attempt.Attempt) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Key:       a.ID,
		QuizID:    a.QuizID,
		UserID:    a.UserID,
		CreatedAt: time.Now().UTC(),
		Data:      map[string]any{"elapsed_seconds": a.ElapsedSeconds},
	}
	if a.Finalized() {
		e.Data["reason"] = string(a.FinishReason)
		e.Data["score"] = *a.Score
		e.Data["passed"] = *a.Passed
		e.Data["earned_points"] = a.EarnedPoints
		e.Data["total_points"] = a.TotalPoints
	}
	return e
}
