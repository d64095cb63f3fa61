// Package mcpserver exposes the financial statements question pipeline as
// Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/observability"
)

const (
	serverName    = "tickerql"
	serverVersion = "1.0.0"
)

type Answerer interface {
	Process(ctx context.Context, question string) (nl2sql.Answer, error)
}

type Ingester interface {
	Run(ctx context.Context, trigger string, tickers []string) (ingest.Summary, error)
	RunTickersFile(ctx context.Context, trigger string) (ingest.Summary, error)
}

type FileLister interface {
	ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error)
}

// Server is the MCP server. Ingest and file tools are only registered when
// their dependencies are present.
type Server struct {
	mcp        *server.MCPServer
	logger     *slog.Logger
	answerer   Answerer
	descriptor nl2sql.Descriptor
	ingester   Ingester
	files      FileLister
	callerID   string
	maxRows    int
}

type Deps struct {
	Logger     *slog.Logger
	Answerer   Answerer
	Descriptor nl2sql.Descriptor
	Ingester   Ingester
	Files      FileLister
	// CallerID is attached to every completion request made by the tools.
	CallerID string
	// MaxRows caps the rows returned to the client; zero means no cap.
	MaxRows int
}

func New(deps Deps) (*Server, error) {
	if deps.Answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.DiscardLogger()
	}
	if len(deps.Descriptor.Fields) == 0 {
		deps.Descriptor = nl2sql.DefaultDescriptor()
	}
	s := &Server{
		logger:     deps.Logger,
		answerer:   deps.Answerer,
		descriptor: deps.Descriptor,
		ingester:   deps.Ingester,
		files:      deps.Files,
		callerID:   deps.CallerID,
		maxRows:    deps.MaxRows,
	}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.registerQueryTools()
	if s.ingester != nil {
		s.registerIngestTools()
	}
	return s, nil
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp stdio server", slog.String("name", serverName))
	return server.ServeStdio(s.mcp)
}

func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
