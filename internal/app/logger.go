package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the application logger. Production always logs JSON;
// elsewhere LOG_FORMAT decides. Every record carries the service name so the
// api and worker processes can share one log stream.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "lumina"))
}
