// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// WebSocket clients may connect on any path; metrics is optional.
func SetupRoutes(h *Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.RootHandler)
	mux.HandleFunc("/healthz", h.HealthzHandler)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
