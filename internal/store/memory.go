package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string][]byte // JSON, so callers never share question pointers
	summary  map[string]QuizSummary
	attempts map[string]attempt.Attempt
}

func NewMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[string][]byte{},
		summary:  map[string]QuizSummary{},
		attempts: map[string]attempt.Attempt{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q *quiz.Quiz) error {
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	b, err := json.Marshal(q)
	if err != nil {
		return errors.Wrap(err, "encode quiz")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = b
	m.summary[q.ID] = QuizSummary{ID: q.ID, Title: q.Title, Published: q.Published, Questions: len(q.Questions), CreatedAt: q.CreatedAt}
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (*quiz.Quiz, error) {
	m.mu.RLock()
	b, ok := m.quizzes[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "quiz %s", id)
	}
	q, err := quiz.DecodeJSON(b)
	if err != nil {
		return nil, errors.Wrapf(err, "decode quiz %s", id)
	}
	return q, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, publishedOnly bool) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QuizSummary, 0, len(m.summary))
	for _, s := range m.summary {
		if publishedOnly && !s.Published {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) PutAttempt(_ context.Context, a attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.summary[a.QuizID]; !ok {
		return errors.Wrapf(ErrNotFound, "quiz %s", a.QuizID)
	}
	if cur, ok := m.attempts[a.ID]; ok && cur.Finalized() {
		return errors.Wrapf(ErrFinalized, "attempt %s", a.ID)
	}
	m.attempts[a.ID] = a.Clone()
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (attempt.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return attempt.Attempt{}, errors.Wrapf(ErrNotFound, "attempt %s", id)
	}
	return a.Clone(), nil
}

func (m *memoryStore) ListAttempts(_ context.Context, f AttemptFilter) ([]attempt.Attempt, error) {
	m.mu.RLock()
	var out []attempt.Attempt
	for _, a := range m.attempts {
		if f.match(a) {
			out = append(out, a.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
