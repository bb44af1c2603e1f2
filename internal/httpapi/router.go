package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/auth"
	"github.com/erauner12/toolbridge-resources/internal/collection"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Repo            collection.Repository
	Storage         string // backend name reported by /v1/info
	RateLimitConfig RateLimitInfo

	// Registry receives the HTTP metrics and backs /metrics.
	// Nil uses the prometheus default registry.
	Registry *prometheus.Registry
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// parseLimit parses a limit query param with default and max
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Routes creates the HTTP router with all collection endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if s.Registry != nil {
		reg, gatherer = s.Registry, s.Registry
	}
	metrics := newHTTPMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.middleware)

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})
	r.Get("/v1/info", s.Info)
	r.Method("GET", "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// All collection endpoints require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))
		if s.RateLimitConfig.MaxRequests > 0 {
			r.Use(RateLimitMiddleware(s.RateLimitConfig))
		}

		r.Get("/v1/{collection}", s.ListItems)
		r.Post("/v1/{collection}", s.CreateItem)
		r.Get("/v1/{collection}/{id}", s.GetItem)
		r.Put("/v1/{collection}/{id}", s.ReplaceItem)
		r.Patch("/v1/{collection}/{id}", s.PatchItem)
		r.Delete("/v1/{collection}/{id}", s.DeleteItem)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
