package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// SweepExpired finalizes stored in-progress attempts whose wall-clock
// deadline (startedAt + time limit) has passed and that have no live machine
// in this process. Elapsed time is clamped to the limit. It returns how many
// attempts were finalized.
func (s *Manager) SweepExpired(ctx context.Context) (int, error) {
	open, err := s.store.ListAttempts(ctx, store.AttemptFilter{State: attempt.InProgress})
	if err != nil {
		return 0, err
	}
	now := s.now()
	n := 0
	for _, a := range open {
		if s.sweepOne(ctx, a, now) {
			n++
		}
	}
	return n, nil
}

// sweepOne holds s.mu so the attempt cannot be resumed while it is expired.
func (s *Manager) sweepOne(ctx context.Context, a attempt.Attempt, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[a.ID]; ok {
		return false
	}
	a, err := s.store.GetAttempt(ctx, a.ID)
	if err != nil || a.State != attempt.InProgress {
		return false
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		s.log.WithField("attempt_id", a.ID).WithError(err).Warn("sweep: load quiz")
		return false
	}
	limit := q.Settings.TimeLimit()
	if limit <= 0 || now.Before(a.StartedAt.Add(limit)) {
		return false
	}
	a.ElapsedSeconds = int(limit / time.Second)
	done, err := attempt.Submit(q, a, attempt.ReasonExpired, now)
	if err != nil {
		return false
	}
	if err := s.store.PutAttempt(ctx, done); err != nil {
		s.log.WithField("attempt_id", a.ID).WithError(err).Error("sweep: persist")
		return false
	}
	s.publish(ctx, events.ForAttempt(events.AttemptFinalized, done))
	return true
}

// Sweeper runs SweepExpired on a cron schedule.
type Sweeper struct {
	c   *cron.Cron
	m   *Manager
	log logrus.FieldLogger
}

// NewSweeper schedules m.SweepExpired with spec, a standard five-field cron
// expression or a descriptor such as "@every 1m".
func NewSweeper(m *Manager, spec string) (*Sweeper, error) {
	sw := &Sweeper{c: cron.New(), m: m, log: m.log.WithField("component", "sweeper")}
	if _, err := sw.c.AddFunc(spec, sw.run); err != nil {
		return nil, err
	}
	return sw, nil
}

func (sw *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := sw.m.SweepExpired(ctx)
	if err != nil {
		sw.log.WithError(err).Error("sweep failed")
		return
	}
	if n > 0 {
		sw.log.WithField("finalized", n).Info("expired attempts finalized")
	}
}

func (sw *Sweeper) Start() { sw.c.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() { <-sw.c.Stop().Done() }
