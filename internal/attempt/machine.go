package attempt

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// FinalizeFunc observes an attempt right after it was graded.
type FinalizeFunc func(Attempt)

// Machine serializes every event delivered to one attempt. Timer ticks and
// user actions go through the same lock, so finalize runs at most once.
type Machine struct {
	mu    sync.Mutex
	quiz  *quiz.Quiz
	cur   Attempt
	hooks []FinalizeFunc

	log logrus.FieldLogger
	now func() time.Time
}

type Option func(*Machine)

// WithClock overrides time.Now for finishedAt stamps.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

func WithLogger(l logrus.FieldLogger) Option { return func(m *Machine) { m.log = l } }

func NewMachine(q *quiz.Quiz, a Attempt, opts ...Option) *Machine {
	m := &Machine{
		quiz: q,
		cur:  a.Clone(),
		log:  logrus.StandardLogger(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.WithFields(logrus.Fields{"attempt_id": a.ID, "quiz_id": a.QuizID, "user_id": a.UserID})
	return m
}

// OnFinalize registers fn to run once the attempt is graded. Hooks run
// outside the lock, in registration order.
func (m *Machine) OnFinalize(fn FinalizeFunc) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

func (m *Machine) Quiz() *quiz.Quiz { return m.quiz }

// Snapshot returns a copy of the current attempt.
func (m *Machine) Snapshot() Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.Clone()
}

func (m *Machine) Finalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.Finalized()
}

// Answer records v for questionID while the attempt is in progress.
func (m *Machine) Answer(questionID string, v quiz.Response) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := RecordAnswer(m.quiz, m.cur, questionID, v)
	if err != nil {
		m.reject("answer", err)
		return m.cur.Clone(), err
	}
	m.cur = next
	return m.cur.Clone(), nil
}

// Tick advances elapsed time by one second, finalizing on expiry.
func (m *Machine) Tick() (Attempt, error) {
	m.mu.Lock()
	next, results, err := tick(m.quiz, m.cur, m.now())
	if err != nil {
		m.reject("tick", err)
		snap := m.cur.Clone()
		m.mu.Unlock()
		return snap, err
	}
	m.cur = next
	if !next.Finalized() {
		snap := m.cur.Clone()
		m.mu.Unlock()
		return snap, nil
	}
	return m.finishLocked(results)
}

// Submit finalizes the attempt for reason.
func (m *Machine) Submit(reason FinishReason) (Attempt, error) {
	m.mu.Lock()
	if m.cur.State != InProgress {
		err := illegal("submit", m.cur.State)
		m.reject("submit", err)
		snap := m.cur.Clone()
		m.mu.Unlock()
		return snap, err
	}
	var results []grading.Graded
	m.cur, results = finalize(m.quiz, m.cur, reason, m.now())
	return m.finishLocked(results)
}

// finishLocked runs after m.cur was finalized. It must be called with mu
// held and releases it before running hooks.
func (m *Machine) finishLocked(results []grading.Graded) (Attempt, error) {
	snap := m.cur.Clone()
	hooks := append([]FinalizeFunc(nil), m.hooks...)
	m.mu.Unlock()

	for _, r := range results {
		if r.Inconsistent {
			m.log.WithField("question_id", r.QuestionID).Warn("answer shape does not match question type; graded incorrect")
		}
	}
	m.log.WithFields(logrus.Fields{
		"reason": snap.FinishReason,
		"score":  *snap.Score,
		"passed": *snap.Passed,
	}).Info("attempt finalized")

	for _, h := range hooks {
		h(snap.Clone())
	}
	return snap, nil
}

func (m *Machine) reject(event string, err error) {
	l := m.log.WithField("event", event).WithError(err)
	if errors.Is(err, ErrIllegalTransition) {
		l.Warn("event rejected")
		return
	}
	l.Debug("event rejected")
}
