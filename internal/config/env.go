package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "TICKERQL_"

// envReader overlays environment values onto config fields. Unset
// variables leave the destination untouched; parse failures accumulate in
// errs.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) raw(name string) (string, bool) {
	value, ok := e.lookup(envPrefix + name)
	return strings.TrimSpace(value), ok
}

func (e *envReader) str(name string, dst *string) {
	if value, ok := e.raw(name); ok {
		*dst = value
	}
}

func (e *envReader) duration(name string, dst *time.Duration) { parseInto(e, name, dst, time.ParseDuration) }
func (e *envReader) boolean(name string, dst *bool) { parseInto(e, name, dst, strconv.ParseBool) }
func (e *envReader) integer(name string, dst *int) { parseInto(e, name, dst, strconv.Atoi) }

func (e *envReader) float(name string, dst *float64) {
	parseInto(e, name, dst, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (e *envReader) logLevel(name string, dst *slog.Level) {
	parseInto(e, name, dst, func(s string) (slog.Level, error) {
		switch strings.ToLower(s) {
		case "debug":
			return slog.LevelDebug, nil
		case "info":
			return slog.LevelInfo, nil
		case "warn", "warning":
			return slog.LevelWarn, nil
		case "error":
			return slog.LevelError, nil
		}
		return 0, fmt.Errorf("unknown level %q", s)
	})
}

func parseInto[T any](e *envReader, name string, dst *T, parse func(string) (T, error)) {
	value, ok := e.raw(name)
	if !ok {
		return
	}
	parsed, err := parse(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
		return
	}
	*dst = parsed
}
