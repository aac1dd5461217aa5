package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ExpiryNotice is how long callers show the "time is up" notice before
// surfacing the result. The score is already fixed when it starts.
const ExpiryNotice = 2 * time.Second

type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Countdown is the remaining time of an attempt. LimitSeconds is 0 for
// untimed quizzes.
type Countdown struct {
	LimitSeconds   int `json:"limit_seconds"`
	ElapsedSeconds int `json:"elapsed_seconds"`
}

func CountdownOf(q *quiz.Quiz, a Attempt) Countdown {
	return Countdown{
		LimitSeconds:   int(q.Settings.TimeLimit() / time.Second),
		ElapsedSeconds: a.ElapsedSeconds,
	}
}

func (c Countdown) Limited() bool { return c.LimitSeconds > 0 }

// Remaining returns seconds left, never negative. Untimed countdowns
// report 0.
func (c Countdown) Remaining() int {
	if !c.Limited() {
		return 0
	}
	if r := c.LimitSeconds - c.ElapsedSeconds; r > 0 {
		return r
	}
	return 0
}

// Level classifies the remaining time: critical at one minute or less,
// warning at five minutes or less.
func (c Countdown) Level() Level {
	if !c.Limited() {
		return LevelNormal
	}
	switch r := c.Remaining(); {
	case r <= 60:
		return LevelCritical
	case r <= 300:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// TickSource delivers tick events until stopped.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a TickSource firing every d.
type TickerFactory func(d time.Duration) TickSource

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// NewWallTicker is the TickerFactory backed by time.Ticker.
func NewWallTicker(d time.Duration) TickSource { return wallTicker{t: time.NewTicker(d)} }

// Notice is delivered when a running timer expires an attempt.
type Notice struct {
	Attempt Attempt
	Display time.Duration
}

// Timer feeds ticks from a TickSource into a Machine until the attempt is
// finalized, the context ends, or Stop is called.
type Timer struct {
	m      *Machine
	src    TickSource
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartTimer begins ticking m. onExpire, if set, runs once when the timer
// itself finalized the attempt.
func StartTimer(ctx context.Context, m *Machine, src TickSource, onExpire func(Notice)) *Timer {
	ctx, cancel := context.WithCancel(ctx)
	t := &Timer{m: m, src: src, cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, onExpire)
	return t
}

func (t *Timer) run(ctx context.Context, onExpire func(Notice)) {
	defer close(t.done)
	defer t.src.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.src.C():
			if ctx.Err() != nil || t.m.Finalized() {
				return
			}
			a, err := t.m.Tick()
			if err != nil {
				return
			}
			if a.Finalized() {
				if a.FinishReason == ReasonExpired && onExpire != nil {
					onExpire(Notice{Attempt: a, Display: ExpiryNotice})
				}
				return
			}
		}
	}
}

// Cancel stops ticking without waiting. Safe from finalize hooks and onExpire.
func (t *Timer) Cancel() { t.once.Do(t.cancel) }

// Stop cancels the timer and waits for its goroutine to exit. It must not be
// called from code running on the timer goroutine.
func (t *Timer) Stop() {
	t.Cancel()
	<-t.done
}

// Done is closed once the timer stopped ticking.
func (t *Timer) Done() <-chan struct{} { return t.done }
