package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mnemora/mnemora/internal/api/handlers"
	mw "github.com/mnemora/mnemora/internal/api/middleware"
	"github.com/mnemora/mnemora/internal/service"
)

// App holds the router and request metrics for lifecycle management.
type App struct {
	Router *chi.Mux

	startTime time.Time
	metrics   *mw.MetricsCollector
}

// Options tunes router-level behavior.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewApp wires the HTTP surface over an already-constructed memory system
// and its maintenance worker.
func NewApp(system *service.MemorySystem, worker *service.MaintenanceWorker, opts Options, logger *zap.Logger) *App {
	memoryHandler := handlers.NewMemoryHandler(system)
	impressionHandler := handlers.NewImpressionHandler(system)
	systemHandler := handlers.NewSystemHandler(system, worker)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
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

	r.Get("/health", healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.Ingest)
			r.Get("/recall", memoryHandler.Recall)
			r.Post("/inject", memoryHandler.Inject)
			r.Get("/simple", memoryHandler.SimpleRecall)
			r.Get("/{id}", memoryHandler.GetByID)
			r.Delete("/{id}", memoryHandler.Delete)
		})

		r.Route("/impressions", func(r chi.Router) {
			r.Post("/", impressionHandler.Record)
			r.Post("/adjust", impressionHandler.Adjust)
			r.Route("/{person}", func(r chi.Router) {
				r.Get("/", impressionHandler.Get)
				r.Get("/memories", impressionHandler.Memories)
			})
		})

		r.Get("/stats", systemHandler.Stats)
		r.Post("/maintenance", systemHandler.TriggerMaintenance)
	})

	return app
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.metrics.Requests(),
			"error_count":    app.metrics.Errors(),
			"goroutines":     runtime.NumGoroutine(),
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
