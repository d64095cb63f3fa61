package api

import (
	"net/http"
	"time"

	"github.com/tickerql/tickerql/internal/auth"
	"github.com/tickerql/tickerql/internal/catalog"
)

type statementFilePayload struct {
	Ticker        string     `json:"ticker"`
	Path          string     `json:"path"`
	RunID         string     `json:"run_id"`
	RecordCount   int64      `json:"record_count"`
	FileSizeBytes int64      `json:"file_size_bytes"`
	SchemaVersion int        `json:"schema_version"`
	MinDate       *time.Time `json:"min_date"`
	MaxDate       *time.Time `json:"max_date"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AgeMs         int64      `json:"age_ms"`
}

func newStatementFilePayload(file catalog.StatementFile, now time.Time) statementFilePayload {
	return statementFilePayload{
		Ticker:        file.Ticker,
		Path:          file.Path,
		RunID:         file.RunID,
		RecordCount:   file.RecordCount,
		FileSizeBytes: file.FileSizeBytes,
		SchemaVersion: file.SchemaVersion,
		MinDate:       file.MinDate,
		MaxDate:       file.MaxDate,
		UpdatedAt:     file.UpdatedAt,
		AgeMs:         max(now.Sub(file.UpdatedAt).Milliseconds(), 0),
	}
}

type statementFilesResponse struct {
	Tickers     int                    `json:"tickers"`
	OldestAgeMs int64                  `json:"oldest_age_ms"`
	Files       []statementFilePayload `json:"files"`
}

// handleStatementFiles lists the current statement file per ticker and how
// long ago each was published.
func handleStatementFiles(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	files, err := deps.Catalog.ListStatementFiles(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to list statement files", true, map[string]any{"details": err.Error()})
		return
	}

	now := time.Now()
	resp := statementFilesResponse{Tickers: len(files), Files: make([]statementFilePayload, len(files))}
	for i, file := range files {
		resp.Files[i] = newStatementFilePayload(file, now)
		resp.OldestAgeMs = max(resp.OldestAgeMs, resp.Files[i].AgeMs)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePrune deletes stored objects that no catalog row points at.
func handlePrune(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingest == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INGEST_NOT_CONFIGURED", "ingestion is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleIngestAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	start := time.Now()
	deleted, err := deps.Ingest.PruneOrphans(r.Context())
	if err != nil {
		// deleted can be non-zero when the failure came part way through.
		writeError(r.Context(), w, http.StatusInternalServerError, "PRUNE_FAILED", "prune run failed", true, map[string]any{
			"details": err.Error(),
			"deleted": deleted,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "completed",
		"deleted":     deleted,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
