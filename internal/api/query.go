package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tickerql/tickerql/internal/auth"
	"github.com/tickerql/tickerql/internal/nl2sql"
)

const maxQuestionLength = 2000

type nlQueryRequest struct {
	Question string `json:"question"`
}

type nlQueryResponse struct {
	SQL     string         `json:"sql"`
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleNaturalLanguageQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "natural language query is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request nlQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if len(request.Question) > maxQuestionLength {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_TOO_LONG", "question is too long", false, map[string]any{"max_length": maxQuestionLength})
		return
	}

	ctx := r.Context()
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		ctx = nl2sql.WithCallerID(ctx, identity.CallerID)
	}
	answer, err := deps.Answerer.Process(ctx, request.Question)
	if err != nil {
		writeProcessError(w, r, err)
		return
	}

	rows := answer.Result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, nlQueryResponse{
		SQL:     answer.SQL,
		Columns: answer.Result.Columns,
		Rows:    rows,
		Stats: map[string]any{
			"duration_ms":   answer.Result.Duration.Milliseconds(),
			"scanned_files": answer.Result.ScannedFiles,
			"scanned_bytes": answer.Result.ScannedBytes,
		},
	})
}

func writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{"details": err.Error()}
	switch {
	case errors.Is(err, nl2sql.ErrServiceUnavailable):
		writeError(r.Context(), w, http.StatusBadGateway, "COMPLETION_UNAVAILABLE", "completion service is unavailable", true, details)
	case errors.Is(err, nl2sql.ErrEmptyCompletion):
		writeError(r.Context(), w, http.StatusBadGateway, "EMPTY_COMPLETION", "completion service returned no choices", true, details)
	case errors.Is(err, nl2sql.ErrNoQueryGenerated):
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "NO_QUERY_GENERATED", "no SQL query was generated for the question", false, nil)
	case errors.Is(err, nl2sql.ErrQueryExecutionFailed):
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "failed to answer question", true, details)
	}
}
