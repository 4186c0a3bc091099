package server

import (
	"time"

	"github.com/watchher/monitoring-server/internal/heatmap"
)

// Config defines the runtime configuration for the HTTP server.
type Config struct {
	Addr           string
	ExportDir      string
	StatusInterval time.Duration
	Viewport       heatmap.Viewport
	SessionsLimit  int
}

// DefaultConfig returns a config aligned with the desktop dashboard behavior.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8090",
		ExportDir:      "./exports",
		StatusInterval: 2 * time.Second,
		Viewport:       heatmap.DefaultViewport,
		SessionsLimit:  50,
	}
}
