package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/config"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/observability"
)

type ReadinessCheck func(ctx context.Context) error

type QuestionAnswerer interface {
	Process(ctx context.Context, question string) (nl2sql.Answer, error)
}

type IngestRunner interface {
	Run(ctx context.Context, trigger string, tickers []string) (ingest.Summary, error)
	RunTickersFile(ctx context.Context, trigger string) (ingest.Summary, error)
	PruneOrphans(ctx context.Context) (int, error)
}

type CatalogReader interface {
	GetIngestRun(ctx context.Context, runID string) (catalog.IngestRun, error)
	ListIngestRuns(ctx context.Context, limit int) ([]catalog.IngestRun, error)
	ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Answerer          QuestionAnswerer
	Descriptor        nl2sql.Descriptor
	Ingest            IngestRunner
	Catalog           CatalogReader
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if len(deps.Descriptor.Fields) == 0 {
		deps.Descriptor = nl2sql.DefaultDescriptor()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query/nl", func(w http.ResponseWriter, r *http.Request) {
		handleNaturalLanguageQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		handleIngestRun(deps, w, r)
	})
	protected.HandleFunc("GET /v1/ingest/runs", func(w http.ResponseWriter, r *http.Request) {
		handleListIngestRuns(deps, w, r)
	})
	protected.HandleFunc("GET /v1/ingest/runs/{run_id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetIngestRun(deps, w, r)
	})
	protected.HandleFunc("GET /v1/ingest/files", func(w http.ResponseWriter, r *http.Request) {
		handleStatementFiles(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ingest/prune", func(w http.ResponseWriter, r *http.Request) {
		handlePrune(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/query/nl", protectedHandler)
	mux.Handle("POST /v1/ingest/run", protectedHandler)
	mux.Handle("GET /v1/ingest/runs", protectedHandler)
	mux.Handle("GET /v1/ingest/runs/{run_id}", protectedHandler)
	mux.Handle("GET /v1/ingest/files", protectedHandler)
	mux.Handle("POST /v1/ingest/prune", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func CheckHealth(name string, checker HealthChecker) ReadinessCheck {
	return func(ctx context.Context) error {
		if checker == nil {
			return errors.New(name + " is not configured")
		}
		if err := checker.HealthCheck(ctx); err != nil {
			return errors.New(name + ": " + err.Error())
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
