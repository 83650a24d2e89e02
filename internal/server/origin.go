// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

func normalizeOrigins(origins []string, logger *slog.Logger) ([]string, bool) {
	if len(origins) == 0 {
		return nil, true
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("Ignoring invalid origin in configuration", "origin", origin)
			continue
		}

		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

// newOriginChecker returns a CheckOrigin function for the upgrader. An empty
// list or "*" accepts every origin. Requests without an Origin header come
// from non-browser clients and are always accepted.
func newOriginChecker(origins []string, logger *slog.Logger) func(r *http.Request) bool {
	normalized, allowAll := normalizeOrigins(origins, logger)
	allowed := make(map[string]struct{}, len(normalized))
	for _, origin := range normalized {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}

		originHeader := r.Header.Get("Origin")
		if originHeader == "" {
			return true
		}

		if normalizedOrigin, ok := normalizeOrigin(originHeader); ok {
			if _, exists := allowed[normalizedOrigin]; exists {
				return true
			}
		}

		logger.Warn("Blocked WebSocket connection from disallowed origin",
			"origin", originHeader, "remote_addr", r.RemoteAddr)
		return false
	}
}
