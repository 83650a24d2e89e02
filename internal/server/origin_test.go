package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOriginChecker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "http://anything.example", true},
		{"wildcard allows all", []string{"*"}, "http://anything.example", true},
		{"exact match", []string{"http://localhost:8765"}, "http://localhost:8765", true},
		{"case insensitive", []string{"http://LOCALHOST:8765"}, "http://localhost:8765", true},
		{"path ignored", []string{"http://localhost:8765/app"}, "http://localhost:8765", true},
		{"port mismatch", []string{"http://localhost:8765"}, "http://localhost:9999", false},
		{"scheme mismatch", []string{"http://localhost:8765"}, "https://localhost:8765", false},
		{"missing origin header", []string{"http://localhost:8765"}, "", true},
		{"malformed origin header", []string{"http://localhost:8765"}, "not a url", false},
		{"only invalid entries", []string{"not-an-origin"}, "http://localhost:8765", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := newOriginChecker(tt.allowed, logger)

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, check(req))
		})
	}
}
