package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/yexiyue/actions/auth"
	"github.com/yexiyue/actions/internal/config"
	"github.com/yexiyue/actions/internal/metrics"
	"github.com/yexiyue/actions/internal/securecookie"
	"github.com/yexiyue/actions/users"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	handler  http.HandlerFunc
	routes   []string
	config   config.Config
	auth     *auth.Service
	users    users.Repo
	cookies  *securecookie.Codec
	limiter  *RateLimiter
	metrics  metrics.Recorder
	gatherer prometheus.Gatherer
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithMetrics records HTTP statuses on recorder and serves gatherer on /metrics
func WithMetrics(recorder metrics.Recorder, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = recorder
		s.gatherer = gatherer
	}
}

func New(config config.Config, authService *auth.Service, userRepo users.Repo, options ...Option) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if userRepo == nil {
		return nil, errors.New("[Server New] users repo is required")
	}

	cookies, err := securecookie.New(config.GetCookieSecret())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie codec: %w", err)
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		auth:    authService,
		users:   userRepo,
		cookies: cookies,
		limiter: NewRateLimiter(config.GetLoginRatePerMinute()),
		metrics: metrics.Nop{},
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	s.handler = ChainMiddleware(s.mux.ServeHTTP,
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
	)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler(w, r)
}

// Close stops background work owned by the server
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDev {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Msgf("route %s%-6s%s %s", methodColor(parts[0]), parts[0], ResetColor, parts[1])
		} else {
			log.Debug().Msgf("route %s", parts[0])
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
