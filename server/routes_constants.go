package server

// Route path constants
const (
	// Auth Routes
	RouteAuthLogin      = "/api/auth/login"
	RouteAuthCallback   = "/api/auth/callback"
	RouteAuthAuthorized = "/api/auth/authorized"
	RouteAuthRefresh    = "/api/auth/refresh"
	RouteAuthLogout     = "/api/auth/logout"

	// API Routes
	RouteMe = "/api/me"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Headers
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderSessionToken = "X-Session-Token"
)
