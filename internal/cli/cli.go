// Package cli implements the tickerql command line: ingesting statements,
// asking questions, and serving MCP over stdio.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickerql/tickerql/internal/app"
	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/config"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/observability"
)

const serviceName = "tickerql"

type Answerer interface {
	Process(ctx context.Context, question string) (nl2sql.Answer, error)
}

type Ingester interface {
	Run(ctx context.Context, trigger string, tickers []string) (ingest.Summary, error)
	RunTickersFile(ctx context.Context, trigger string) (ingest.Summary, error)
	WatchTickersFile(ctx context.Context) error
	PruneOrphans(ctx context.Context) (int, error)
}

type FileLister interface {
	ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error)
}

// Backend is what the commands run against. Nil fields are components the
// current configuration leaves disabled.
type Backend struct {
	Answerer Answerer
	Ingester Ingester
	Files    FileLister
	Close    func() error
}

type Opener func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.LookupFunc
	Open   Opener
}

// OpenApp opens the catalog, object store and pipeline from configuration.
func OpenApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	backend := &Backend{Files: a.Catalog, Close: a.Close}
	if a.Processor != nil {
		backend.Answerer = a.Processor
	}
	if a.Ingest != nil {
		backend.Ingester = a.Ingest
	}
	return backend, nil
}

type runtime struct {
	opts   Options
	cfg    config.Config
	logger *slog.Logger
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.Open == nil {
		opts.Open = OpenApp
	}
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:           "tickerql",
		Short:         "Ask questions about quarterly financial statements in plain language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(serviceName, opts.Lookup)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = observability.NewLogger(cfg, opts.Stderr)
			return nil
		},
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.AddCommand(
		newSmokeCommand(rt),
		newIngestCommand(rt),
		newAskCommand(rt),
		newSchemaCommand(rt),
		newMCPCommand(rt),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(root.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return 0
}

func (rt *runtime) open(ctx context.Context) (*Backend, error) {
	backend, err := rt.opts.Open(ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	if backend.Close == nil {
		backend.Close = func() error { return nil }
	}
	return backend, nil
}

func (b *Backend) requireAnswerer() (Answerer, error) {
	if b.Answerer == nil {
		return nil, fmt.Errorf("questions are not configured: set TICKERQL_AI_API_KEY")
	}
	return b.Answerer, nil
}

func (b *Backend) requireIngester() (Ingester, error) {
	if b.Ingester == nil {
		return nil, fmt.Errorf("ingestion is not configured: set TICKERQL_INGEST_FUNDAMENTALS_KEY")
	}
	return b.Ingester, nil
}
