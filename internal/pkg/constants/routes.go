package constants

// Static route constants
const (
	UploadsRoute = "/uploads"
	APIPrefix    = "/api"
	DocsRoute    = "/docs/api"
	MetricsRoute = "/metrics"
	HealthRoute  = "/healthz"
	WSRoute      = "/ws"
)
