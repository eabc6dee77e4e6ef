// Package server exposes the extraction backend and the session API over
// HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/docextract/internal/config"
	"github.com/sells-group/docextract/internal/monitoring"
	"github.com/sells-group/docextract/internal/pipeline"
	"github.com/sells-group/docextract/internal/present"
	"github.com/sells-group/docextract/internal/session"
)

// Version is reported by the health and info endpoints.
const Version = "1.0.0"

// Server holds the HTTP handlers' dependencies.
type Server struct {
	cfg       *config.Config
	gateway   pipeline.Extractor
	pipeline  *pipeline.Pipeline
	presenter *present.Presenter
	sessions  *session.Store
	metrics   *monitoring.Metrics
	limiter   *rate.Limiter
	now       func() time.Time
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Gateway   pipeline.Extractor
	Pipeline  *pipeline.Pipeline
	Presenter *present.Presenter
	Sessions  *session.Store
	Metrics   *monitoring.Metrics
}

// New creates a Server. The extraction rate limit is server.rate_limit
// requests per minute; zero disables it.
func New(cfg *config.Config, d Deps) *Server {
	s := &Server{
		cfg:       cfg,
		gateway:   d.Gateway,
		pipeline:  d.Pipeline,
		presenter: d.Presenter,
		sessions:  d.Sessions,
		metrics:   d.Metrics,
		now:       time.Now,
	}
	if s.sessions == nil {
		s.sessions = session.NewStore()
	}
	if s.presenter == nil {
		s.presenter = present.New(d.Pipeline.Builder(), present.WithOrganization(cfg.Export.Organization))
	}
	if n := cfg.Server.RateLimit; n > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	return s
}

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Process-Time", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(accessLog)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/info", s.handleInfo)

		r.Route("/extract", func(r chi.Router) {
			r.With(s.rateLimit).Post("/", s.handleExtract)
			r.Get("/test", s.handleExtractTest)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/events", s.handleSessionEvent)
				r.Post("/document", s.handleUploadDocument)
				r.With(s.rateLimit).Post("/extract", s.handleSessionExtract)
				r.Get("/view", s.handleView)
				r.Put("/fields", s.handleEditFields)
				r.Get("/summary", s.handleSummary)
				r.Get("/export", s.handleExport)
				r.Get("/print", s.handlePrint)
			})
		})
	})

	return r
}
