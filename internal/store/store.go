package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrFinalized is returned when a write would change a graded attempt.
	ErrFinalized = errors.New("attempt already finalized")
)

type QuizSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
	Questions int    `json:"questions"`
	CreatedAt int64  `json:"created_at"`
}

type AttemptFilter struct {
	QuizID string
	UserID string
	State  attempt.State
	Limit  int
	Offset int
}

func (f AttemptFilter) match(a attempt.Attempt) bool {
	return (f.QuizID == "" || a.QuizID == f.QuizID) &&
		(f.UserID == "" || a.UserID == f.UserID) &&
		(f.State == "" || a.State == f.State)
}

// Store persists quizzes and attempts. Quizzes returned by GetQuiz carry
// their answer keys; stripping them is the caller's job.
type Store interface {
	PutQuiz(ctx context.Context, q *quiz.Quiz) error
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
	ListQuizzes(ctx context.Context, publishedOnly bool) ([]QuizSummary, error)

	// PutAttempt inserts or replaces an attempt. A graded attempt is never
	// replaced; the write fails with ErrFinalized instead.
	PutAttempt(ctx context.Context, a attempt.Attempt) error
	GetAttempt(ctx context.Context, id string) (attempt.Attempt, error)
	// ListAttempts returns matches ordered by start time, oldest first.
	ListAttempts(ctx context.Context, f AttemptFilter) ([]attempt.Attempt, error)
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsFinalized reports whether err is a refused write to a graded attempt.
func IsFinalized(err error) bool { return errors.Is(err, ErrFinalized) }
