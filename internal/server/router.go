// Package server assembles the HTTP router and server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayush/exercise-tracker/internal/logger"
	"github.com/ayush/exercise-tracker/internal/middleware"
	"github.com/ayush/exercise-tracker/internal/tracker"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	PublicDir   string
	CORSOrigins []string
}

func NewRouter(opts Options, h *tracker.Handler, db Pinger, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.TraceID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: log.Std(), NoColor: true}))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.TraceIDHeader},
		ExposedHeaders: []string{middleware.TraceIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Assets are reachable both under /public/ and from the site root.
	if opts.PublicDir != "" {
		files := http.FileServer(http.Dir(opts.PublicDir))
		r.Handle("/public/*", http.StripPrefix("/public/", files))
		r.NotFound(files.ServeHTTP)
	}
	r.Get("/", h.Index)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Post("/{id}/exercises", h.CreateExercise)
		r.Get("/{id}/logs", h.Logs)
	})

	return r
}

// Config contains tunables for the HTTP server.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func New(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
