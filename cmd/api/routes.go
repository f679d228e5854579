package main

import (
	"log"
	"net/http"

	httphandlers "financefly/internal/interfaces/http"
	"financefly/internal/shared/config"
	"financefly/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Connection page with the embedded widget
	mux.HandleFunc("/", httphandlers.HandleConnectPage)

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Connection flow API
	mux.HandleFunc("/api/connect/token", deps.ConnectHandler.HandleToken)
	mux.HandleFunc("/api/connect/callback", deps.ConnectHandler.HandleCallback)
	mux.HandleFunc("/api/connect/session", deps.ConnectHandler.HandleSession)

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Tracing(handler)
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
