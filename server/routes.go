package server

import (
	"net/http"

	"github.com/yexiyue/actions/internal/metrics"
)

func (s *Server) initRoutes() {
	// Operational routes never look at the session token
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteAuthLogin, s.sessionRoute(s.LoginHandler(), s.limiter.Middleware))
	s.RegisterRouteFunc("GET "+RouteAuthCallback, s.sessionRoute(s.CallbackHandler(), s.limiter.Middleware))
	s.RegisterRouteFunc("POST "+RouteAuthCallback, s.sessionRoute(s.CallbackHandler(), s.limiter.Middleware)) // For form_post response mode
	s.RegisterRouteFunc("GET "+RouteAuthAuthorized, s.sessionRoute(s.CallbackHandler(), s.limiter.Middleware))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, s.sessionRoute(s.LogoutHandler()))

	// Session
	s.RegisterRouteFunc("GET "+RouteAuthRefresh, s.sessionRoute(s.RefreshHandler(), s.RequireClaims))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, s.sessionRoute(s.RefreshHandler(), s.RequireClaims))
	s.RegisterRouteFunc("GET "+RouteMe, s.sessionRoute(s.MeHandler(), s.RequireClaims))

	if s.gatherer != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler(s.gatherer))
	}
}

// sessionRoute runs the session token interceptor ahead of mw and handler
func (s *Server) sessionRoute(handler http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return ChainMiddleware(handler, append([]func(http.HandlerFunc) http.HandlerFunc{s.SessionTokenMiddleware}, mw...)...)
}
