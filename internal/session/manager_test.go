package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

type fakeTick struct {
	c    chan time.Time
	once sync.Once
	done chan struct{}
}

func (f *fakeTick) C() <-chan time.Time { return f.c }
func (f *fakeTick) Stop()               { f.once.Do(func() { close(f.done) }) }

type tickers struct {
	mu   sync.Mutex
	made []*fakeTick
}

func (f *tickers) factory(time.Duration) attempt.TickSource {
	t := &fakeTick{c: make(chan time.Time), done: make(chan struct{})}
	f.mu.Lock()
	f.made = append(f.made, t)
	f.mu.Unlock()
	return t
}

func (f *tickers) last(t *testing.T) *fakeTick {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.made) == 0 {
		t.Fatal("no timer started")
	}
	return f.made[len(f.made)-1]
}

type fixture struct {
	mgr   *Manager
	store store.Store
	rec   *events.Recorder
	ticks *tickers
	now   time.Time
}

func newFixture(t *testing.T, q *quiz.Quiz) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemoryStore(), rec: events.NewRecorder(), ticks: &tickers{}, now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	if err := f.store.PutQuiz(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	logger, _ := test.NewNullLogger()
	f.mgr = NewManager(f.store, f.rec,
		WithLogger(logger),
		WithTicker(f.ticks.factory),
		WithClock(func() time.Time { return f.now }),
	)
	t.Cleanup(f.mgr.Close)
	return f
}

func geoQuiz(limitMinutes int) *quiz.Quiz {
	q := &quiz.Quiz{
		ID: "geo", Title: "Geography", Published: true,
		Questions: quiz.QuestionList{
			&quiz.MultipleChoice{Header: quiz.Header{ID: "q1", Prompt: "Largest ocean", Points: 1}, Options: []quiz.Option{
				{ID: "a", Text: "Atlantic"}, {ID: "b", Text: "Pacific", Correct: true},
			}},
			&quiz.ShortAnswer{Header: quiz.Header{ID: "q2", Prompt: "Capital of France", Points: 1}, Answer: "Paris"},
		},
		Settings: quiz.Settings{PassingScore: 50},
	}
	if limitMinutes > 0 {
		q.Settings.TimeLimitMinutes = quiz.IntPtr(limitMinutes)
	}
	return q
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerManualFlow(t *testing.T) {
	f := newFixture(t, geoQuiz(0))
	ctx := context.Background()

	a, err := f.mgr.Start(ctx, "geo", "stu")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"b"`)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.Answer(ctx, a.ID, "q2", json.RawMessage(`" paris "`)); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.store.GetAttempt(ctx, a.ID)
	if stored.Answered() != 2 {
		t.Fatalf("answers not persisted: %+v", stored.Answers)
	}

	done, err := f.mgr.Submit(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *done.Score != 100 || !*done.Passed || done.FinishReason != attempt.ReasonManual {
		t.Fatalf("result %+v", done)
	}
	stored, _ = f.store.GetAttempt(ctx, a.ID)
	if stored.State != attempt.Graded || *stored.Score != 100 {
		t.Fatalf("graded attempt not persisted: %+v", stored)
	}
	if f.mgr.Live(a.ID) {
		t.Fatal("finalized attempt still live")
	}

	if _, err := f.mgr.Submit(ctx, a.ID); !errors.Is(err, attempt.ErrIllegalTransition) {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"a"`)); !errors.Is(err, attempt.ErrIllegalTransition) {
		t.Fatalf("answer after submit: %v", err)
	}
	got := f.rec.Types()
	if len(got) != 2 || got[0] != events.AttemptStarted || got[1] != events.AttemptFinalized {
		t.Fatalf("events %v", got)
	}
}

func TestManagerAnswerValidation(t *testing.T) {
	f := newFixture(t, geoQuiz(0))
	ctx := context.Background()
	a, _ := f.mgr.Start(ctx, "geo", "stu")

	if _, err := f.mgr.Answer(ctx, a.ID, "zzz", json.RawMessage(`"a"`)); !errors.Is(err, attempt.ErrUnknownQuestion) {
		t.Fatalf("unknown question: %v", err)
	}
	if _, err := f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`["a"]`)); !errors.Is(err, attempt.ErrInvalidResponse) {
		t.Fatalf("wrong shape: %v", err)
	}
	if _, err := f.mgr.Answer(ctx, "missing", "q1", json.RawMessage(`"a"`)); !store.IsNotFound(err) {
		t.Fatalf("missing attempt: %v", err)
	}
	a, err := f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"a"`))
	if err != nil {
		t.Fatal(err)
	}
	a, err = f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`null`))
	if err != nil || a.Answers[0].Value != nil {
		t.Fatalf("null should clear: %+v %v", a.Answers[0], err)
	}
}

func TestManagerStartPolicy(t *testing.T) {
	f := newFixture(t, geoQuiz(0))
	ctx := context.Background()
	a, _ := f.mgr.Start(ctx, "geo", "stu")
	_, err := f.mgr.Start(ctx, "geo", "stu")
	if re, ok := attempt.IsRejection(err); !ok || re.Reason != attempt.ReasonAttemptInProgress || re.AttemptID != a.ID {
		t.Fatalf("want attempt_in_progress for %s, got %v", a.ID, err)
	}
	if _, err := f.mgr.Submit(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.mgr.Start(ctx, "geo", "stu")
	if re, ok := attempt.IsRejection(err); !ok || re.Reason != attempt.ReasonNoAttemptsRemaining {
		t.Fatalf("want no_attempts_remaining, got %v", err)
	}
	if _, err := f.mgr.Start(ctx, "geo", "someone-else"); err != nil {
		t.Fatalf("other users unaffected: %v", err)
	}
	if _, err := f.mgr.Start(ctx, "nope", "stu"); !store.IsNotFound(err) {
		t.Fatalf("unknown quiz: %v", err)
	}
}

func TestManagerTimerExpiresAttempt(t *testing.T) {
	f := newFixture(t, geoQuiz(1))
	ctx := context.Background()
	a, _ := f.mgr.Start(ctx, "geo", "stu")
	_, _ = f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"b"`))

	src := f.ticks.last(t)
	for i := 0; i < 60; i++ {
		src.c <- f.now
	}
	waitFor(t, "expired attempt to persist", func() bool {
		got, _ := f.store.GetAttempt(ctx, a.ID)
		return got.State == attempt.Graded
	})
	got, _ := f.store.GetAttempt(ctx, a.ID)
	if got.FinishReason != attempt.ReasonExpired || got.ElapsedSeconds != 60 || *got.Score != 50 || !*got.Passed {
		t.Fatalf("expired attempt %+v", got)
	}
	waitFor(t, "finalized event", func() bool {
		types := f.rec.Types()
		return len(types) == 2 && types[1] == events.AttemptFinalized
	})
	cd, err := f.mgr.Countdown(ctx, a.ID)
	if err != nil || cd.Remaining() != 0 || cd.Level() != attempt.LevelCritical {
		t.Fatalf("countdown %+v %v", cd, err)
	}
}

func TestManagerAbandonStopsTimerAndResumes(t *testing.T) {
	f := newFixture(t, geoQuiz(10))
	ctx := context.Background()
	a, _ := f.mgr.Start(ctx, "geo", "stu")
	src := f.ticks.last(t)
	src.c <- f.now
	src.c <- f.now

	if err := f.mgr.Abandon(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	select {
	case <-src.done:
	default:
		t.Fatal("tick source not stopped on abandon")
	}
	if f.mgr.Live(a.ID) {
		t.Fatal("abandoned attempt still live")
	}
	stored, _ := f.store.GetAttempt(ctx, a.ID)
	if stored.State != attempt.InProgress || stored.ElapsedSeconds < 1 {
		t.Fatalf("abandoned attempt %+v", stored)
	}
	if types := f.rec.Types(); types[len(types)-1] != events.AttemptAbandoned {
		t.Fatalf("events %v", types)
	}

	// answering again resumes with a fresh timer
	if _, err := f.mgr.Answer(ctx, a.ID, "q2", json.RawMessage(`"Paris"`)); err != nil {
		t.Fatal(err)
	}
	if !f.mgr.Live(a.ID) || f.ticks.last(t) == src {
		t.Fatal("attempt not resumed with a new timer")
	}
}

// sweepOnPut runs fn once, just before the next in-progress attempt write.
type sweepOnPut struct {
	store.Store
	mu sync.Mutex
	fn func()
}

func (s *sweepOnPut) arm(fn func()) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *sweepOnPut) PutAttempt(ctx context.Context, a attempt.Attempt) error {
	var fn func()
	s.mu.Lock()
	if a.State == attempt.InProgress {
		fn, s.fn = s.fn, nil
	}
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return s.Store.PutAttempt(ctx, a)
}

func TestAbandonDuringSweepKeepsStorageConsistent(t *testing.T) {
	ctx := context.Background()
	base := store.NewMemoryStore()
	if err := base.PutQuiz(ctx, geoQuiz(10)); err != nil {
		t.Fatal(err)
	}
	st := &sweepOnPut{Store: base}
	rec := events.NewRecorder()
	logger, _ := test.NewNullLogger()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(st, rec,
		WithLogger(logger),
		WithTicker((&tickers{}).factory),
		WithClock(func() time.Time { return now }),
	)
	t.Cleanup(mgr.Close)

	a, err := mgr.Start(ctx, "geo", "stu")
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(11 * time.Minute)
	swept := -1
	st.arm(func() { swept, _ = mgr.SweepExpired(ctx) })
	if err := mgr.Abandon(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if swept != 0 {
		t.Fatalf("sweep finalized %d attempts while abandon was persisting", swept)
	}
	stored, _ := base.GetAttempt(ctx, a.ID)
	if stored.State != attempt.InProgress {
		t.Fatalf("stored %+v", stored)
	}
	if got := strings.Join(rec.Types(), ","); got != events.AttemptStarted+","+events.AttemptAbandoned {
		t.Fatalf("events %s", got)
	}

	// once abandoned, the overdue attempt is swept and stays graded
	if n, _ := mgr.SweepExpired(ctx); n != 1 {
		t.Fatalf("swept %d", n)
	}
	if _, err := mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"b"`)); !errors.Is(err, attempt.ErrIllegalTransition) {
		t.Fatalf("answer after sweep: %v", err)
	}
	stored, _ = base.GetAttempt(ctx, a.ID)
	if stored.State != attempt.Graded || stored.FinishReason != attempt.ReasonExpired {
		t.Fatalf("stored %+v", stored)
	}
}

func TestStaleMachineCannotReopenGradedAttempt(t *testing.T) {
	f := newFixture(t, geoQuiz(0))
	ctx := context.Background()
	q, _ := f.store.GetQuiz(ctx, "geo")
	a, _ := f.mgr.Start(ctx, "geo", "stu")

	// graded by another writer while the machine is still live here
	done, _ := attempt.Submit(q, a, attempt.ReasonManual, f.now)
	if err := f.store.PutAttempt(ctx, done); err != nil {
		t.Fatal(err)
	}

	got, err := f.mgr.Answer(ctx, a.ID, "q1", json.RawMessage(`"b"`))
	if !errors.Is(err, attempt.ErrIllegalTransition) || got.State != attempt.Graded {
		t.Fatalf("answer on stale machine: %+v %v", got, err)
	}
	if f.mgr.Live(a.ID) {
		t.Fatal("stale machine still live")
	}
	stored, _ := f.store.GetAttempt(ctx, a.ID)
	if stored.State != attempt.Graded || stored.Answers[0].Value != nil {
		t.Fatalf("stored %+v", stored)
	}
}

func TestSweepFinalizesOverdueAttempts(t *testing.T) {
	f := newFixture(t, geoQuiz(10))
	ctx := context.Background()
	q, _ := f.store.GetQuiz(ctx, "geo")

	overdue, _ := attempt.Start(q, "late", nil, f.now.Add(-20*time.Minute))
	overdue, _ = attempt.RecordAnswer(q, overdue, "q1", quiz.ChoiceResponse("b"))
	recent, _ := attempt.Start(q, "early", nil, f.now.Add(-5*time.Minute))
	for _, a := range []attempt.Attempt{overdue, recent} {
		if err := f.store.PutAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	live, _ := f.mgr.Start(ctx, "geo", "online")
	// even past its deadline, a live attempt belongs to its timer
	f.now = f.now.Add(30 * time.Minute)
	overdueAt := f.now

	n, err := f.mgr.SweepExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	got, _ := f.store.GetAttempt(ctx, overdue.ID)
	if got.State != attempt.Graded || got.FinishReason != attempt.ReasonExpired || got.ElapsedSeconds != 600 || *got.Score != 50 {
		t.Fatalf("overdue attempt %+v", got)
	}
	if !got.FinishedAt.Equal(overdueAt) {
		t.Fatalf("finished at %v", got.FinishedAt)
	}
	still, _ := f.store.GetAttempt(ctx, live.ID)
	if still.State != attempt.InProgress {
		t.Fatal("live attempt was swept")
	}
}

func TestSweepLeavesAttemptsWithinDeadline(t *testing.T) {
	f := newFixture(t, geoQuiz(10))
	ctx := context.Background()
	q, _ := f.store.GetQuiz(ctx, "geo")
	a, _ := attempt.Start(q, "stu", nil, f.now.Add(-9*time.Minute))
	_ = f.store.PutAttempt(ctx, a)

	if n, _ := f.mgr.SweepExpired(ctx); n != 0 {
		t.Fatalf("swept %d", n)
	}
}

func TestNewSweeperValidatesSchedule(t *testing.T) {
	f := newFixture(t, geoQuiz(0))
	if _, err := NewSweeper(f.mgr, "not a cron spec"); err == nil {
		t.Fatal("expected schedule parse error")
	}
	sw, err := NewSweeper(f.mgr, "@every 1m")
	if err != nil {
		t.Fatal(err)
	}
	sw.Start()
	sw.Stop()
}
