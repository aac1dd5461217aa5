package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

// POST /quizzes/{quizID}/attempts
// The attempt belongs to the caller. Policy refusals come back as 409 with
// the rejection reason.
func StartAttemptHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		a, err := sm.Start(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, a)
	}
}

type answerRequest struct {
	// null clears the answer
	Value json.RawMessage `json:"value" validate:"required"`
}

// PUT /attempts/{attemptID}/answers/{questionID}  { "value": ... }
func SaveAnswerHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, false) {
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			badRequest(w, err)
			return
		}
		a, err := sm.Answer(r.Context(), id, chi.URLParam(r, "questionID"), req.Value)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, false) {
			return
		}
		a, err := sm.Submit(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/abandon
// Stops the timer. The attempt stays in progress and can be resumed.
func AbandonAttemptHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, false) {
			return
		}
		if err := sm.Abandon(r.Context(), id); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, true) {
			return
		}
		a, err := sm.Get(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

type timerResponse struct {
	LimitSeconds     int           `json:"limit_seconds"`
	ElapsedSeconds   int           `json:"elapsed_seconds"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Limited          bool          `json:"limited"`
	Level            attempt.Level `json:"level"`
}

// GET /attempts/{attemptID}/timer
func AttemptTimerHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, true) {
			return
		}
		c, err := sm.Countdown(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, timerResponse{
			LimitSeconds:     c.LimitSeconds,
			ElapsedSeconds:   c.ElapsedSeconds,
			RemainingSeconds: c.Remaining(),
			Limited:          c.Limited(),
			Level:            c.Level(),
		})
	}
}

// GET /attempts/{attemptID}/review
func AttemptReviewHandler(sm *session.Manager, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(w, r, sm, log, id, true) {
			return
		}
		rv, err := sm.Review(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, rv)
	}
}

type listAttemptsQuery struct {
	QuizID string        `validate:"omitempty,max=128"`
	UserID string        `validate:"omitempty,max=128"`
	State  attempt.State `validate:"omitempty,oneof=not_started in_progress submitted expired graded"`
	Limit  int           `validate:"gte=1,lte=500"`
	Offset int           `validate:"gte=0"`
}

// GET /attempts?quiz_id=...&user_id=...&state=...&limit=50&offset=0
// Callers without attempt:view-all only see their own attempts.
func ListAttemptsHandler(st store.Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		q := listAttemptsQuery{
			QuizID: qs.Get("quiz_id"),
			UserID: qs.Get("user_id"),
			State:  attempt.State(qs.Get("state")),
			Limit:  parseIntDefault(qs.Get("limit"), 50),
			Offset: parseIntDefault(qs.Get("offset"), 0),
		}
		if err := validate.Struct(q); err != nil {
			badRequest(w, err)
			return
		}
		if !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			q.UserID = authmw.SubjectFromContext(r.Context())
		}
		list, err := st.ListAttempts(r.Context(), store.AttemptFilter{
			QuizID: q.QuizID,
			UserID: q.UserID,
			State:  q.State,
			Limit:  q.Limit,
			Offset: q.Offset,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		if list == nil {
			list = []attempt.Attempt{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// ownAttempt writes an error and returns false unless the caller owns the
// attempt. With readOnly, attempt:view-all also grants access.
func ownAttempt(w http.ResponseWriter, r *http.Request, sm *session.Manager, log logrus.FieldLogger, id string, readOnly bool) bool {
	a, err := sm.Get(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return false
	}
	if a.UserID == authmw.SubjectFromContext(r.Context()) {
		return true
	}
	if readOnly && rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
		return true
	}
	http.Error(w, "forbidden", http.StatusForbidden)
	return false
}
