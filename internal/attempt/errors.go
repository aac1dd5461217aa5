package attempt

import (
	"errors"
	"fmt"
)

// Rejection reasons returned by Start.
const (
	ReasonNoAttemptsRemaining = "no_attempts_remaining"
	ReasonMaxAttemptsReached  = "max_attempts_reached"
	ReasonNotPublished        = "quiz_not_published"
	ReasonAttemptInProgress   = "attempt_in_progress"
)

// RejectionError is returned when policy refuses to start an attempt.
type RejectionError struct {
	Reason string
	// AttemptID names the open attempt for ReasonAttemptInProgress.
	AttemptID string
}

func (e *RejectionError) Error() string { return "attempt rejected: " + e.Reason }

var (
	// ErrIllegalTransition is returned for events delivered to an attempt
	// that can no longer accept them.
	ErrIllegalTransition = errors.New("illegal transition")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrInvalidResponse   = errors.New("invalid response")
	ErrNotFinalized      = errors.New("attempt not finalized")
)

func illegal(event string, s State) error {
	return fmt.Errorf("%w: %s in state %s", ErrIllegalTransition, event, s)
}

// IsRejection reports whether err is a start-policy rejection and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
