package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error  string   `json:"error"`
	Reason string   `json:"reason,omitempty"`
	// AttemptID points at the open attempt to resume.
	AttemptID string `json:"attempt_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// writeError maps domain errors onto status codes. Anything unrecognized is
// logged and reported as 500.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	if re, ok := attempt.IsRejection(err); ok {
		respondJSON(w, http.StatusConflict, errorBody{Error: "attempt rejected", Reason: re.Reason, AttemptID: re.AttemptID})
		return
	}
	switch {
	case store.IsNotFound(err):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, attempt.ErrIllegalTransition), errors.Is(err, attempt.ErrNotFinalized):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, attempt.ErrUnknownQuestion), errors.Is(err, attempt.ErrInvalidResponse):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		log.WithError(err).Error("request failed")
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// badRequest reports a malformed body or a DTO that failed validation.
func badRequest(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fe.Field()+": failed "+fe.Tag())
		}
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request", Errors: msgs})
		return
	}
	respondJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
