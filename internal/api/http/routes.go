package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

type Deps struct {
	Store    store.Store
	Sessions *session.Manager
	Auth     *authmw.AuthService
	// Login is mounted at /auth/login when set.
	Login *authmw.Credentials
	Log   logrus.FieldLogger
}

// Mount registers the quiz API on r. Everything except login requires a
// bearer token.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if d.Login != nil {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, *d.Login))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.Route("/quizzes", func(qr chi.Router) {
			qr.With(rbac.Require(rbac.PermQuizView)).Get("/", ListQuizzesHandler(d.Store, log))
			qr.With(rbac.Require(rbac.PermQuizCreate)).Post("/", CreateQuizHandler(d.Store, log))
			qr.With(rbac.Require(rbac.PermQuizCreate)).Post("/validate", ValidateQuizHandler())
			qr.With(rbac.RequireAny(rbac.PermQuizView, rbac.PermQuizViewKey)).Get("/{quizID}", GetQuizHandler(d.Store, log))
			qr.With(rbac.Require(rbac.PermAttemptCreate)).Post("/{quizID}/attempts", StartAttemptHandler(d.Sessions, log))
			qr.With(rbac.Require(rbac.PermStatisticsView)).Get("/{quizID}/statistics", QuizStatisticsHandler(d.Store, log))
		})

		pr.Route("/attempts", func(ar chi.Router) {
			view := rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)
			ar.With(view).Get("/", ListAttemptsHandler(d.Store, log))
			ar.With(view).Get("/{attemptID}", GetAttemptHandler(d.Sessions, log))
			ar.With(view).Get("/{attemptID}/timer", AttemptTimerHandler(d.Sessions, log))
			ar.With(view).Get("/{attemptID}/review", AttemptReviewHandler(d.Sessions, log))
			ar.With(rbac.Require(rbac.PermAttemptSave)).Put("/{attemptID}/answers/{questionID}", SaveAnswerHandler(d.Sessions, log))
			ar.With(rbac.Require(rbac.PermAttemptSave)).Post("/{attemptID}/abandon", AbandonAttemptHandler(d.Sessions, log))
			ar.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/{attemptID}/submit", SubmitAttemptHandler(d.Sessions, log))
		})
	})
}
