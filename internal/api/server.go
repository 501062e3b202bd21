package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/config"
	"github.com/snarg/clinic-engine/internal/metrics"
)

// Service is everything the HTTP surface needs from the clinic service.
type Service interface {
	DoctorService
	PatientService
	AppointmentService
	TranscriptionService
	Authenticator
}

// ServerOptions carries the collaborators NewServer wires into routes.
type ServerOptions struct {
	Service     Service
	DB          HealthChecker
	MQTT        ConnectionStatus
	StorageType string
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, opts ServerOptions) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(cfg, opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(cfg *config.Config, opts ServerOptions) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORSWithOrigins(cfg.CORSOrigins))

	health := NewHealthHandler(opts.DB, opts.MQTT, opts.StorageType, opts.Version, opts.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	NewDoctorsHandler(opts.Service).Routes(r)
	NewPatientsHandler(opts.Service).Routes(r)
	NewAppointmentsHandler(opts.Service).Routes(r)

	transcriptions := NewTranscriptionsHandler(opts.Service, cfg.MaxUploadMB<<20, opts.Log)
	transcriptions.Routes(r)

	// Credential checks and uploads (which call paid remote services) are
	// limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
		NewAuthHandler(opts.Service).Routes(r)
		r.Post("/upload", transcriptions.Upload)
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
