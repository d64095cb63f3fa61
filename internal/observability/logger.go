package observability

import (
	"io"
	"log/slog"

	"github.com/tickerql/tickerql/internal/config"
)

// NewLogger builds the process logger. Records carry the service name and
// profile.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(newHandler(w, cfg.Observability)).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func newHandler(w io.Writer, cfg config.ObservabilityConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
