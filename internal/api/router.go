package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/imadial/internal/api/handlers"
	mw "github.com/Harshitk-cp/imadial/internal/api/middleware"
	"github.com/Harshitk-cp/imadial/internal/buildconfig"
	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/manager"
	"github.com/Harshitk-cp/imadial/internal/service"
	"github.com/Harshitk-cp/imadial/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports database health. A nil Pinger means the in-memory store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewApp.
type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	PolicyName     string
}

// App holds the router and the counters served on /metrics.
type App struct {
	Router    *chi.Mux
	Sessions  *service.SessionService
	metrics   *mw.MetricsCollector
	startTime time.Time
}

func NewApp(db Pinger, sessions *service.SessionService, opts Options, logger *zap.Logger) *App {
	sessionHandler := handlers.NewSessionHandler(sessions)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Sessions:  sessions,
		metrics:   mw.NewMetricsCollector(),
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler(opts.PolicyName))

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetByID)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/observe", sessionHandler.Observe)
				r.Post("/act", sessionHandler.Act)
				r.Post("/turns", sessionHandler.Turn)
				r.Get("/turns", sessionHandler.ListTurns)
				r.Post("/reset", sessionHandler.Reset)
				r.Get("/reward", sessionHandler.Reward)
			})
		})
	})

	return app
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": "memory"})
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": "postgres"})
	}
}

func versionHandler(policyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(buildconfig.VersionInfo(policyName))
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		m := app.metrics.Snapshot()

		response := map[string]any{
			"uptime_seconds":    uptime.Seconds(),
			"uptime_human":      uptime.Round(time.Second).String(),
			"request_count":     m.RequestCount,
			"error_count":       m.ErrorCount,
			"turn_count":        m.TurnCount,
			"failed_turn_count": m.FailedTurns,
			"goroutines":        runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and builders satisfy interfaces at compile time.
var (
	_ domain.SessionStore    = (*store.SessionStore)(nil)
	_ domain.TurnStore       = (*store.TurnStore)(nil)
	_ domain.SessionStore    = (*store.MemorySessionStore)(nil)
	_ domain.TurnStore       = (*store.MemorySessionStore)(nil)
	_ service.ManagerFactory = (*manager.Portal)(nil)
)
