package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/config"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/usecase"
)

// HealthCheck probes one dependency for /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// CityNamer names the locality around a coordinate. It never fails.
type CityNamer interface {
	CityName(ctx context.Context, loc model.Location) string
}

type Deps struct {
	Prayers  usecase.PrayerUseCase
	Users    usecase.UserUseCase
	Checks   []HealthCheck
	Geocoder CityNamer // optional; fills the city of /prayer-times
	Location *time.Location
	Clock    func() time.Time
}

// Server serves health, metrics and the prayer-times REST API.
type Server struct {
	cfg    config.HTTPConfig
	deps   Deps
	apiKey string
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(cfg config.HTTPConfig, deps Deps, logger *zerolog.Logger) *Server {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Server{
		cfg:    cfg,
		deps:   deps,
		apiKey: cfg.APIKey,
		log:    logging.Component(logger, "web"),
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/prayer-times", s.handlePrayerTimes)

		// All admin routes will be behind the auth middleware
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", s.handleStats)
			r.Get("/users/{id}/schedule", s.handleUserSchedule)
		})
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			writeError(w, http.StatusForbidden, "Forbidden", "")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			writeError(w, http.StatusUnauthorized, "Unauthorized: Malformed token", "")
			return
		}

		if tokenParts[1] != s.apiKey {
			writeError(w, http.StatusForbidden, "Forbidden", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		l := logging.With(ctx, s.log)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
