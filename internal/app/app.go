// Package app assembles the catalog, object store, ingestion service and
// question pipeline from configuration. Binaries share it so the API, the
// CLI and the MCP server run the same wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tickerql/tickerql/internal/api"
	catalogpostgres "github.com/tickerql/tickerql/internal/catalog/postgres"
	"github.com/tickerql/tickerql/internal/config"
	"github.com/tickerql/tickerql/internal/financials"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/observability"
	"github.com/tickerql/tickerql/internal/query"
	duckdbengine "github.com/tickerql/tickerql/internal/query/duckdb"
	"github.com/tickerql/tickerql/internal/storage"
	s3store "github.com/tickerql/tickerql/internal/storage/s3"
)

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Catalog   *catalogpostgres.Repository
	Store     *s3store.Store
	Ingest    *ingest.Service
	Processor *nl2sql.Processor
}

func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = observability.DiscardLogger()
	}

	db, err := catalogpostgres.Open(ctx, catalogpostgres.DBConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	repo := catalogpostgres.NewRepository(db)

	store, err := s3store.New(ctx, ObjectStoreConfig(cfg))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize object store: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Catalog: repo, Store: store}

	if cfg.Ingest.FundamentalsKey != "" {
		a.Ingest, err = NewIngestService(cfg, repo, store, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		logger.WarnContext(ctx, "ingestion disabled: TICKERQL_INGEST_FUNDAMENTALS_KEY is not set")
	}

	if cfg.AI.APIKey != "" {
		executor := query.NewExecutor(repo, duckdbengine.NewEngine(store), cfg.Query.RowLimit)
		a.Processor, err = NewProcessor(cfg, executor, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		logger.WarnContext(ctx, "questions disabled: TICKERQL_AI_API_KEY is not set")
	}

	return a, nil
}

// RequireIngest returns the ingestion service or explains why it is missing.
func (a *App) RequireIngest() (*ingest.Service, error) {
	if a.Ingest == nil {
		return nil, fmt.Errorf("ingestion is not configured: set TICKERQL_INGEST_FUNDAMENTALS_KEY")
	}
	return a.Ingest, nil
}

// RequireProcessor returns the question pipeline or explains why it is
// missing.
func (a *App) RequireProcessor() (*nl2sql.Processor, error) {
	if a.Processor == nil {
		return nil, fmt.Errorf("questions are not configured: set TICKERQL_AI_API_KEY")
	}
	return a.Processor, nil
}

// APIDependencies leaves disabled components as nil interfaces so the
// handler reports them as not configured.
func (a *App) APIDependencies() api.Dependencies {
	deps := api.Dependencies{
		Logger:    a.Logger,
		Readiness: a.Readiness(),
		Catalog:   a.Catalog,
	}
	if a.Ingest != nil {
		deps.Ingest = a.Ingest
	}
	if a.Processor != nil {
		deps.Answerer = a.Processor
	}
	return deps
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Readiness checks the catalog and the object store bucket.
func (a *App) Readiness() api.ReadinessCheck {
	return api.CombineReadinessChecks(
		api.CheckHealth("catalog", a.Catalog),
		api.CheckObjectStoreConfig(a.Config),
		api.CheckHealth("object store", a.Store),
	)
}

func ObjectStoreConfig(cfg config.Config) s3store.Config {
	return s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	}
}

func NewIngestService(cfg config.Config, repo ingest.Catalog, store storage.ObjectStore, logger *slog.Logger) (*ingest.Service, error) {
	source, err := financials.NewHTTPSource(financials.HTTPSourceConfig{
		BaseURL:  cfg.Ingest.FundamentalsURL,
		APIToken: cfg.Ingest.FundamentalsKey,
		Timeout:  cfg.Ingest.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize fundamentals source: %w", err)
	}
	return ingest.NewService(source, store, repo, ingest.Config{
		TickersFile:    cfg.Ingest.TickersFile,
		Concurrency:    cfg.Ingest.Concurrency,
		PruneSafetyAge: cfg.Ingest.PruneSafetyAge,
	}, logger)
}

// NewProcessor builds the question pipeline against an OpenAI-compatible
// completion endpoint.
func NewProcessor(cfg config.Config, executor nl2sql.QueryExecutor, logger *slog.Logger) (*nl2sql.Processor, error) {
	client, err := nl2sql.NewOpenAIClient(nl2sql.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize completion client: %w", err)
	}
	return nl2sql.NewProcessor(client, executor,
		nl2sql.WithModel(nl2sql.ModelID(cfg.AI.Model)),
		nl2sql.WithTemperature(cfg.AI.Temperature),
		nl2sql.WithDefaultCallerID(cfg.AI.CallerID),
		nl2sql.WithExtractOptions(nl2sql.ExtractOptions{StripFences: cfg.AI.StripFences}),
		nl2sql.WithRetry(nl2sql.RetryPolicy{MaxAttempts: cfg.AI.MaxAttempts, Backoff: cfg.AI.RetryBackoff}),
		nl2sql.WithReadOnly(cfg.Query.ReadOnly),
		nl2sql.WithTimeout(cfg.Query.Timeout),
		nl2sql.WithLogger(logger),
	)
}
