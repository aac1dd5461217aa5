package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/store"
)

func main() {
	cfg := config.Load()
	log := cfg.Logger()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, dbh, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	if dbh != nil {
		defer dbh.Close()
	}

	// --- Events ---
	var pubs events.Multi
	if dbh != nil {
		pubs = append(pubs, events.NewSQLLog(dbh, "local"))
	}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, events stay local")
		} else {
			pubs = append(pubs, p)
		}
	}
	defer pubs.Close()

	sessions := session.NewManager(st, pubs,
		session.WithLogger(log),
		session.WithTickInterval(cfg.TickInterval),
	)
	defer sessions.Close()

	if cfg.SweepSchedule != "" {
		sw, err := session.NewSweeper(sessions, cfg.SweepSchedule)
		if err != nil {
			log.WithError(err).Fatal("bad SWEEP_SCHEDULE")
		}
		sw.Start()
		defer sw.Stop()
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	deps := api.Deps{
		Store:    st,
		Sessions: sessions,
		Auth:     auth.NewAuthService(cfg.AuthSecret),
		Log:      log,
	}
	// Local login: admin only with ADMIN_PASS_HASH set, dev users only outside online mode
	if cfg.EnableLocalAuth {
		deps.Login = &auth.Credentials{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevUsers:      cfg.Mode != config.ModeOnline,
		}
	}
	api.Mount(r, deps)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			if err := dbh.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serve(srv, log.WithFields(logrus.Fields{"mode": cfg.Mode, "db": cfg.DBDriver}))
}

// serve runs srv until SIGINT or SIGTERM, then drains in-flight requests.
func serve(srv *http.Server, log logrus.FieldLogger) {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
		return
	case <-shutdown:
	}
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
