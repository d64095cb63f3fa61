package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tickerql/tickerql/internal/auth"
	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/ingest"
)

const maxIngestTickers = 1000

type ingestRunRequest struct {
	Tickers []string `json:"tickers"`
}

type ingestRunResponse struct {
	RunID      string                  `json:"run_id"`
	Trigger    string                  `json:"trigger"`
	Status     catalog.IngestRunStatus `json:"status"`
	Tickers    int                     `json:"tickers"`
	Succeeded  int                     `json:"succeeded"`
	Failed     int                     `json:"failed"`
	Skipped    int                     `json:"skipped"`
	Statements int64                   `json:"statements"`
	DurationMs int64                   `json:"duration_ms"`
	Results    []ingest.TickerResult   `json:"results"`
}

// handleIngestRun ingests the posted tickers, or the configured tickers file
// when the body is empty or lists none. The run is synchronous.
func handleIngestRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingest == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INGEST_NOT_CONFIGURED", "ingestion is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleIngestAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request ingestRunRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ingest request body", false, map[string]any{"details": err.Error()})
		return
	}
	if len(request.Tickers) > maxIngestTickers {
		writeError(r.Context(), w, http.StatusBadRequest, "TOO_MANY_TICKERS", "too many tickers in one run", false, map[string]any{"max_tickers": maxIngestTickers})
		return
	}
	for i, ticker := range request.Tickers {
		if strings.TrimSpace(ticker) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TICKER", "ticker must not be blank", false, map[string]any{"ticker_index": i})
			return
		}
	}

	var (
		summary ingest.Summary
		err     error
	)
	if len(request.Tickers) == 0 {
		summary, err = deps.Ingest.RunTickersFile(r.Context(), ingest.TriggerManual)
	} else {
		summary, err = deps.Ingest.Run(r.Context(), ingest.TriggerManual, request.Tickers)
	}
	if summary.RunID == "" {
		message := "ingest run could not start"
		if err != nil {
			message = err.Error()
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INGEST_FAILED", message, true, nil)
		return
	}

	response := ingestRunResponse{
		RunID:      summary.RunID,
		Trigger:    summary.Trigger,
		Status:     summary.Status,
		Tickers:    summary.Tickers,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Statements: summary.Statements,
		DurationMs: summary.Duration.Milliseconds(),
		Results:    summary.Results,
	}
	if summary.Status == catalog.IngestRunFailed {
		writeError(r.Context(), w, http.StatusBadGateway, "INGEST_FAILED", "every ticker failed", true, map[string]any{"summary": response})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func handleListIngestRuns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleIngestAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 500", false, nil)
			return
		}
		limit = parsed
	}

	runs, err := deps.Catalog.ListIngestRuns(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to list ingest runs", true, map[string]any{"details": err.Error()})
		return
	}
	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, ingestRunPayload(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func handleGetIngestRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleIngestAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	runID := strings.TrimSpace(r.PathValue("run_id"))
	run, err := deps.Catalog.GetIngestRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "RUN_NOT_FOUND", "ingest run was not found", false, map[string]any{"run_id": runID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to load ingest run", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ingestRunPayload(run))
}

func ingestRunPayload(run catalog.IngestRun) map[string]any {
	return map[string]any{
		"run_id":             run.RunID,
		"trigger":            run.Trigger,
		"status":             run.Status,
		"tickers_total":      run.TickersTotal,
		"tickers_succeeded":  run.TickersSucceeded,
		"tickers_failed":     run.TickersFailed,
		"tickers_skipped":    run.TickersSkipped,
		"statements_written": run.StatementsWritten,
		"error_text":         run.ErrorText,
		"started_at":         run.StartedAt,
		"finished_at":        run.FinishedAt,
	}
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
