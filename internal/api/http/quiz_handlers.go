package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

const maxQuizBytes = 1 << 20

// readQuiz decodes a quiz document from the body. YAML is accepted when the
// content type says so; anything else is read as JSON.
func readQuiz(r *http.Request) (*quiz.Quiz, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxQuizBytes))
	if err != nil {
		return nil, err
	}
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		return quiz.DecodeYAML(b)
	}
	return quiz.DecodeJSON(b)
}

// POST /quizzes/validate
func ValidateQuizHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := readQuiz(r)
		if err != nil {
			respondJSON(w, http.StatusOK, map[string][]string{"errors": {err.Error()}})
			return
		}
		errs := quiz.Validate(q)
		if errs == nil {
			errs = []string{}
		}
		respondJSON(w, http.StatusOK, map[string][]string{"errors": errs})
	}
}

// POST /quizzes
// Drafts that fail validation are refused with 422 and the full error list.
func CreateQuizHandler(st store.Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := readQuiz(r)
		if err != nil {
			respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid quiz", Errors: []string{err.Error()}})
			return
		}
		if errs := quiz.Validate(q); len(errs) > 0 {
			respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid quiz", Errors: errs})
			return
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if err := st.PutQuiz(r.Context(), q); err != nil {
			writeError(w, log, err)
			return
		}
		log.WithFields(logrus.Fields{"quiz_id": q.ID, "by": authmw.SubjectFromContext(r.Context())}).Info("quiz saved")
		respondJSON(w, http.StatusCreated, q)
	}
}

// GET /quizzes
// Roles without quiz:view-key only see published quizzes.
func ListQuizzesHandler(st store.Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publishedOnly := !rbac.Can(r.Context(), rbac.PermQuizViewKey)
		list, err := st.ListQuizzes(r.Context(), publishedOnly)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if list == nil {
			list = []store.QuizSummary{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}?attempt_id=...
// Authors get the full record. Everyone else gets the stripped view of a
// published quiz, ordered for the given attempt when randomization is on.
func GetQuizHandler(st store.Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := st.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if rbac.Can(r.Context(), rbac.PermQuizViewKey) {
			respondJSON(w, http.StatusOK, q)
			return
		}
		if !q.Published {
			writeError(w, log, store.ErrNotFound)
			return
		}
		seed := r.URL.Query().Get("attempt_id")
		if seed == "" {
			seed = q.ID + "/" + authmw.SubjectFromContext(r.Context())
		}
		respondJSON(w, http.StatusOK, quiz.StudentView(q, seed))
	}
}

// GET /quizzes/{quizID}/statistics
func QuizStatisticsHandler(st store.Store, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if _, err := st.GetQuiz(r.Context(), quizID); err != nil {
			writeError(w, log, err)
			return
		}
		attempts, err := st.ListAttempts(r.Context(), store.AttemptFilter{QuizID: quizID})
		if err != nil {
			writeError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, stats.Compute(quizID, attempts))
	}
}
