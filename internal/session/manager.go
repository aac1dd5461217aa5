package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// Manager owns the live attempts of this process: one Machine, and a Timer
// for timed quizzes, per open attempt. Every transition is persisted.
type Manager struct {
	store    store.Store
	pub      events.Publisher
	log      logrus.FieldLogger
	ticker   attempt.TickerFactory
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*live
}

type live struct {
	m     *attempt.Machine
	timer *attempt.Timer
	pmu   sync.Mutex // orders writes so the newest snapshot lands last
}

// persist writes the machine's current snapshot. If storage already holds
// the attempt as graded, the machine is stale: it leaves the live set and
// the stored attempt is returned with ErrIllegalTransition.
func (s *Manager) persist(ctx context.Context, l *live, event string) (attempt.Attempt, error) {
	l.pmu.Lock()
	a := l.m.Snapshot()
	err := s.store.PutAttempt(ctx, a)
	l.pmu.Unlock()
	if err == nil || !store.IsFinalized(err) || a.Finalized() {
		return a, err
	}

	s.mu.Lock()
	if cur, ok := s.live[a.ID]; ok && cur == l {
		delete(s.live, a.ID)
	}
	t := l.timer
	s.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
	if stored, gerr := s.store.GetAttempt(ctx, a.ID); gerr == nil {
		a = stored
	}
	return a, s.rejectFinal(a, event)
}

type Option func(*Manager)

func WithLogger(l logrus.FieldLogger) Option { return func(m *Manager) { m.log = l } }

// WithTicker replaces the wall-clock tick source, mostly for tests.
func WithTicker(f attempt.TickerFactory) Option { return func(m *Manager) { m.ticker = f } }

func WithTickInterval(d time.Duration) Option { return func(m *Manager) { m.interval = d } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(st store.Store, pub events.Publisher, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		pub:      pub,
		log:      logrus.StandardLogger(),
		ticker:   attempt.NewWallTicker,
		interval: time.Second,
		now:      time.Now,
		live:     map[string]*live{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.pub == nil {
		m.pub = events.Multi{}
	}
	return m
}

// Start applies the attempt policy for (quizID, userID) and opens a live
// attempt. Rejections come back as *attempt.RejectionError.
func (s *Manager) Start(ctx context.Context, quizID, userID string) (attempt.Attempt, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	prior, err := s.store.ListAttempts(ctx, store.AttemptFilter{QuizID: quizID, UserID: userID})
	if err != nil {
		return attempt.Attempt{}, err
	}
	a, err := attempt.Start(q, userID, prior, s.now())
	if err != nil {
		s.log.WithFields(logrus.Fields{"quiz_id": quizID, "user_id": userID}).WithError(err).Info("attempt start rejected")
		return attempt.Attempt{}, err
	}
	if err := s.store.PutAttempt(ctx, a); err != nil {
		return attempt.Attempt{}, err
	}

	s.mu.Lock()
	s.open(q, a)
	s.mu.Unlock()
	s.publish(ctx, events.ForAttempt(events.AttemptStarted, a))
	return a, nil
}

// open registers a live machine for a. Callers hold s.mu.
func (s *Manager) open(q *quiz.Quiz, a attempt.Attempt) *live {
	l := &live{m: attempt.NewMachine(q, a, attempt.WithLogger(s.log), attempt.WithClock(s.now))}
	l.m.OnFinalize(func(done attempt.Attempt) { s.finalized(l, done) })
	s.live[a.ID] = l
	if q.Settings.TimeLimit() > 0 {
		l.timer = attempt.StartTimer(context.Background(), l.m, s.ticker(s.interval), func(n attempt.Notice) {
			s.log.WithFields(logrus.Fields{"attempt_id": n.Attempt.ID, "notice": n.Display}).Info("time limit reached")
		})
	}
	return l
}

// finalized runs once per attempt, on whichever goroutine finalized it. The
// attempt leaves the live set only after it is persisted, so the sweeper
// never sees a stale in-progress row for it.
func (s *Manager) finalized(l *live, a attempt.Attempt) {
	s.mu.Lock()
	t := l.timer
	s.mu.Unlock()
	if t != nil {
		t.Cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.persist(ctx, l, "finalize")

	s.mu.Lock()
	if cur, ok := s.live[a.ID]; ok && cur == l {
		delete(s.live, a.ID)
	}
	s.mu.Unlock()
	if err != nil {
		if store.IsFinalized(err) {
			s.log.WithField("attempt_id", a.ID).Warn("attempt was already graded elsewhere; keeping stored result")
			return
		}
		s.log.WithField("attempt_id", a.ID).WithError(err).Error("persist finalized attempt")
	}
	s.publish(ctx, events.ForAttempt(events.AttemptFinalized, a))
}

// lookup returns the live attempt, resuming it from storage if it is still
// in progress. A nil live with no error means the attempt is finalized.
func (s *Manager) lookup(ctx context.Context, attemptID string) (*live, attempt.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.live[attemptID]; ok {
		return l, l.m.Snapshot(), nil
	}
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, attempt.Attempt{}, err
	}
	if a.State != attempt.InProgress {
		return nil, a, nil
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return nil, attempt.Attempt{}, err
	}
	s.log.WithField("attempt_id", a.ID).Debug("resuming attempt")
	l := s.open(q, a)
	return l, l.m.Snapshot(), nil
}

// Get returns the current state of an attempt.
func (s *Manager) Get(ctx context.Context, attemptID string) (attempt.Attempt, error) {
	s.mu.Lock()
	l, ok := s.live[attemptID]
	s.mu.Unlock()
	if ok {
		return l.m.Snapshot(), nil
	}
	return s.store.GetAttempt(ctx, attemptID)
}

// Answer decodes raw against the question's expected shape and records it.
// JSON null clears the answer.
func (s *Manager) Answer(ctx context.Context, attemptID, questionID string, raw json.RawMessage) (attempt.Attempt, error) {
	l, a, err := s.lookup(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if l == nil {
		return a, s.rejectFinal(a, "answer")
	}
	qu, _, ok := l.m.Quiz().Question(questionID)
	if !ok {
		return a, fmt.Errorf("%w: %s", attempt.ErrUnknownQuestion, questionID)
	}
	v, err := quiz.DecodeResponse(qu, raw)
	if err != nil {
		return a, fmt.Errorf("%w: %v", attempt.ErrInvalidResponse, err)
	}
	if _, err := l.m.Answer(questionID, v); err != nil {
		return l.m.Snapshot(), err
	}
	return s.persist(ctx, l, "answer")
}

// Submit finalizes the attempt manually. Finalized attempts are persisted
// before Submit returns.
func (s *Manager) Submit(ctx context.Context, attemptID string) (attempt.Attempt, error) {
	l, a, err := s.lookup(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, err
	}
	if l == nil {
		return a, s.rejectFinal(a, "submit")
	}
	return l.m.Submit(attempt.ReasonManual)
}

// Abandon stops the attempt's timer, persists it and drops it from the live
// set. The attempt stays in progress in storage and can be resumed.
func (s *Manager) Abandon(ctx context.Context, attemptID string) error {
	s.mu.Lock()
	l, ok := s.live[attemptID]
	s.mu.Unlock()
	if !ok {
		a, err := s.store.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if a.Finalized() {
			return s.rejectFinal(a, "abandon")
		}
		return nil
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	// still live while persisting, so the sweeper leaves it alone
	a, err := s.persist(ctx, l, "abandon")
	s.mu.Lock()
	if cur, ok := s.live[attemptID]; ok && cur == l {
		delete(s.live, attemptID)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if a.Finalized() {
		// finalize won the race
		return nil
	}
	s.publish(ctx, events.ForAttempt(events.AttemptAbandoned, a))
	return nil
}

// Countdown reports the remaining time of an attempt.
func (s *Manager) Countdown(ctx context.Context, attemptID string) (attempt.Countdown, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return attempt.Countdown{}, err
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return attempt.Countdown{}, err
	}
	return attempt.CountdownOf(q, a), nil
}

func (s *Manager) Review(ctx context.Context, attemptID string) (attempt.Review, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return attempt.Review{}, err
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return attempt.Review{}, err
	}
	return attempt.BuildReview(q, a)
}

// Live reports whether the attempt has a running machine in this process.
func (s *Manager) Live(attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[attemptID]
	return ok
}

// Close stops every timer. Open attempts stay in progress in storage.
func (s *Manager) Close() {
	s.mu.Lock()
	all := s.live
	s.live = map[string]*live{}
	s.mu.Unlock()
	for _, l := range all {
		if l.timer != nil {
			l.timer.Stop()
		}
	}
}

func (s *Manager) rejectFinal(a attempt.Attempt, event string) error {
	err := fmt.Errorf("%w: %s in state %s", attempt.ErrIllegalTransition, event, a.State)
	s.log.WithFields(logrus.Fields{"attempt_id": a.ID, "event": event}).WithError(err).Warn("event rejected")
	return err
}

func (s *Manager) publish(ctx context.Context, e events.Event) {
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.WithFields(logrus.Fields{"event_type": e.Type, "attempt_id": e.Key}).WithError(err).Warn("publish event")
	}
}
