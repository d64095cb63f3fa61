package mcpserver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/schema"
)

type answerPayload struct {
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("ask_financials",
		mcp.WithDescription("Answer a question about quarterly financial statements of the tracked companies. The question is translated to SQL and run against "+s.descriptor.Table.Qualified()+"."),
		mcp.WithString("question", mcp.Description("Question in plain language, e.g. 'Which companies had the highest revenue last quarter?'"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleAskFinancials)

	s.mcp.AddTool(mcp.NewTool("describe_schema",
		mcp.WithDescription("Describe the quarterly statements table: its name, SQL dialect and columns"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleDescribeSchema)

	if s.files != nil {
		s.mcp.AddTool(mcp.NewTool("list_statement_files",
			mcp.WithDescription("List the current statements file for each ingested ticker"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
		), s.handleListStatementFiles)
	}
}

func (s *Server) handleAskFinancials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := req.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	if s.callerID != "" {
		ctx = nl2sql.WithCallerID(ctx, s.callerID)
	}

	answer, err := s.answerer.Process(ctx, question)
	if err != nil {
		s.logger.WarnContext(ctx, "ask_financials failed", slog.String("reason", nl2sql.KindOf(err)), slog.String("error", err.Error()))
		return mcp.NewToolResultError(nl2sql.KindOf(err) + ": " + err.Error()), nil
	}

	records := answer.Result.Records()
	payload := answerPayload{
		SQL:      answer.SQL,
		Columns:  answer.Result.Columns,
		RowCount: len(records),
	}
	if s.maxRows > 0 && len(records) > s.maxRows {
		records = records[:s.maxRows]
		payload.Truncated = true
	}
	payload.Rows = records
	return jsonResult(payload)
}

func (s *Server) handleDescribeSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"table":          s.descriptor.Table.Qualified(),
		"dialect":        s.descriptor.Dialect,
		"schema_version": schema.Version,
		"fields":         s.descriptor.Fields,
	})
}

func (s *Server) handleListStatementFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.files.ListStatementFiles(ctx)
	if err != nil {
		return mcp.NewToolResultError("list statement files: " + err.Error()), nil
	}
	out := make([]map[string]any, 0, len(files))
	for _, file := range files {
		out = append(out, map[string]any{
			"ticker":       file.Ticker,
			"path":         file.Path,
			"run_id":       file.RunID,
			"record_count": file.RecordCount,
			"updated_at":   file.UpdatedAt,
		})
	}
	return jsonResult(out)
}
