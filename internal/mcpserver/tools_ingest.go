package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tickerql/tickerql/internal/ingest"
)

const triggerMCP = "mcp"

func (s *Server) registerIngestTools() {
	s.mcp.AddTool(mcp.NewTool("ingest_financials",
		mcp.WithDescription("Download quarterly statements and refresh the stored table. Without tickers the configured tickers file is used."),
		mcp.WithString("tickers", mcp.Description("Comma separated tickers, e.g. 'NVDA,MSFT' (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{IdempotentHint: boolPtr(true), DestructiveHint: boolPtr(false)}),
	), s.handleIngestFinancials)
}

func (s *Server) handleIngestFinancials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tickers := splitTickers(req.GetString("tickers", ""))

	var (
		summary ingest.Summary
		err     error
	)
	if len(tickers) == 0 {
		summary, err = s.ingester.RunTickersFile(ctx, triggerMCP)
	} else {
		summary, err = s.ingester.Run(ctx, triggerMCP, tickers)
	}
	if summary.RunID == "" && err != nil {
		return mcp.NewToolResultError("ingest financials: " + err.Error()), nil
	}

	result, marshalErr := jsonResult(summary)
	if marshalErr != nil {
		return nil, marshalErr
	}
	if err != nil {
		result.IsError = summary.Succeeded == 0
	}
	return result, nil
}

func splitTickers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if ticker := strings.TrimSpace(part); ticker != "" {
			out = append(out, ticker)
		}
	}
	return out
}
