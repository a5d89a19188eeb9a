// Package api serves gaskets over HTTP and WebSocket.
//
// Routes:
//
//	POST   /api/gaskets               generate or fetch a gasket
//	GET    /api/gaskets               list stored gaskets
//	GET    /api/gaskets/{id}          load a stored gasket
//	DELETE /api/gaskets/{id}          delete a stored gasket
//	GET    /api/seeds/integral        enumerate integral root quintets
//	GET    /ws/gasket/generate        stream a generation over WebSocket
//	GET    /health                    liveness and build info
//	GET    /metrics                   Prometheus metrics, when enabled
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/gasket/pkg/pipeline"
)

// Options configures a Server.
type Options struct {
	Logger *log.Logger

	// AllowedOrigins lists the origins allowed by CORS and the WebSocket
	// handshake. Empty or "*" allows any origin.
	AllowedOrigins []string

	// DepthLimit caps max_depth. Zero uses pipeline.MaxDepthLimit.
	DepthLimit int

	// Tolerance overrides the generator's duplicate tolerance.
	Tolerance float64

	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer

	// RequestTimeout bounds non-streaming requests. Zero disables it.
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	runner   *pipeline.Runner
	opts     Options
	validate *validator.Validate
	router   chi.Router
}

// New builds a server around runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.DepthLimit == 0 {
		opts.DepthLimit = pipeline.MaxDepthLimit
	}

	s := &Server{
		runner:   runner,
		opts:     opts,
		validate: newValidator(),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}
		r.Route("/gaskets", func(r chi.Router) {
			r.Post("/", s.handleCreateGasket)
			r.Get("/", s.handleListGaskets)
			r.Get("/{id}", s.handleGetGasket)
			r.Delete("/{id}", s.handleDeleteGasket)
		})
		r.Get("/seeds/integral", s.handleIntegralSeeds)
	})

	r.Get("/ws/gasket/generate", s.handleGenerateStream)
	return r
}
