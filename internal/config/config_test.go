package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("tickerql-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.Service.Name != "tickerql-api" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Ingest.TickersFile != "tickers.csv" {
		t.Fatalf("Ingest.TickersFile = %q", cfg.Ingest.TickersFile)
	}
	if cfg.Ingest.Concurrency != 4 {
		t.Fatalf("Ingest.Concurrency = %d", cfg.Ingest.Concurrency)
	}
	if cfg.Ingest.PruneSafetyAge != 15*time.Minute {
		t.Fatalf("Ingest.PruneSafetyAge = %s", cfg.Ingest.PruneSafetyAge)
	}
	if cfg.AI.Model != "google/gemini-2.0-flash-001" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 1 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.CallerID != "system" {
		t.Fatalf("AI.CallerID = %q", cfg.AI.CallerID)
	}
	if !cfg.AI.StripFences {
		t.Fatal("AI.StripFences should default to true")
	}
	if cfg.AI.MaxAttempts != 1 {
		t.Fatalf("AI.MaxAttempts = %d", cfg.AI.MaxAttempts)
	}
	if !cfg.Query.ReadOnly {
		t.Fatal("Query.ReadOnly should default to true")
	}
	if cfg.Query.Timeout != time.Minute {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("tickerql-api", mapLookup(map[string]string{"TICKERQL_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Fatalf("AI.MaxAttempts = %d", cfg.AI.MaxAttempts)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	cfg, err := Load("tickerql-api", mapLookup(map[string]string{
		"TICKERQL_PROFILE":                 "test",
		"TICKERQL_HTTP_ADDR":               ":9999",
		"TICKERQL_LOG_LEVEL":               "error",
		"TICKERQL_AUTH_REQUIRED":           "true",
		"TICKERQL_AUTH_STATIC_KEYS":        "k1:analyst:query_reader",
		"TICKERQL_CATALOG_DSN":             "postgres://example",
		"TICKERQL_OBJECTSTORE_BUCKET":      "financials-prod",
		"TICKERQL_INGEST_TICKERS_FILE":     "/data/ai.csv",
		"TICKERQL_INGEST_FUNDAMENTALS_URL": "https://fundamentals.example.com",
		"TICKERQL_INGEST_FUNDAMENTALS_KEY": "tok",
		"TICKERQL_INGEST_CONCURRENCY":      "8",
		"TICKERQL_INGEST_SCHEDULE":         "0 6 * * 1-5",
		"TICKERQL_INGEST_SCHEDULE_ENABLED": "true",
		"TICKERQL_INGEST_WATCH_TICKERS":    "true",
		"TICKERQL_INGEST_PRUNE_SAFETY_AGE": "1h",
		"TICKERQL_AI_BASE_URL":             "https://api.example.com",
		"TICKERQL_AI_API_KEY":              "secret-key",
		"TICKERQL_AI_MODEL":                "gpt-5",
		"TICKERQL_AI_TEMPERATURE":          "0.2",
		"TICKERQL_AI_TIMEOUT":              "21s",
		"TICKERQL_AI_CALLER_ID":            "batch",
		"TICKERQL_AI_STRIP_FENCES":         "false",
		"TICKERQL_AI_MAX_ATTEMPTS":         "4",
		"TICKERQL_AI_RETRY_BACKOFF":        "2s",
		"TICKERQL_QUERY_TIMEOUT":           "15s",
		"TICKERQL_QUERY_ROW_LIMIT":         "0",
		"TICKERQL_QUERY_READ_ONLY":         "false",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:analyst:query_reader" {
		t.Fatalf("Auth = %+v", cfg.Auth)
	}
	if cfg.Catalog.DSN != "postgres://example" {
		t.Fatalf("Catalog.DSN = %q", cfg.Catalog.DSN)
	}
	if cfg.ObjectStore.Bucket != "financials-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	want := IngestConfig{
		TickersFile:     "/data/ai.csv",
		FundamentalsURL: "https://fundamentals.example.com",
		FundamentalsKey: "tok",
		HTTPTimeout:     30 * time.Second,
		Concurrency:     8,
		Schedule:        "0 6 * * 1-5",
		ScheduleEnabled: true,
		WatchTickers:    true,
		PruneSafetyAge:  time.Hour,
	}
	if cfg.Ingest != want {
		t.Fatalf("Ingest = %+v, want %+v", cfg.Ingest, want)
	}
	if cfg.AI.BaseURL != "https://api.example.com" || cfg.AI.APIKey != "secret-key" || cfg.AI.Model != "gpt-5" {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.2 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.CallerID != "batch" || cfg.AI.StripFences || cfg.AI.MaxAttempts != 4 || cfg.AI.RetryBackoff != 2*time.Second {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.Query.Timeout != 15*time.Second || cfg.Query.RowLimit != 0 || cfg.Query.ReadOnly {
		t.Fatalf("Query = %+v", cfg.Query)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"TICKERQL_PROFILE": "oops"},
		{"TICKERQL_HTTP_READ_TIMEOUT": "NaN"},
		{"TICKERQL_CATALOG_MAX_OPEN_CONNS": "oops"},
		{"TICKERQL_INGEST_CONCURRENCY": "0"},
		{"TICKERQL_INGEST_PRUNE_SAFETY_AGE": "-1m"},
		{"TICKERQL_AI_TEMPERATURE": "bad"},
		{"TICKERQL_AI_MAX_ATTEMPTS": "0"},
		{"TICKERQL_QUERY_ROW_LIMIT": "-1"},
		{"TICKERQL_QUERY_READ_ONLY": "maybe"},
		{"TICKERQL_AUTH_REQUIRED": "not-bool"},
		{"TICKERQL_LOG_LEVEL": "verbose"},
		{"TICKERQL_HTTP_ADDR": ""},
	}
	for _, env := range tests {
		if _, err := Load("tickerql-api", mapLookup(env)); err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadReportsEveryInvalidVariable(t *testing.T) {
	_, err := Load("tickerql-api", mapLookup(map[string]string{
		"TICKERQL_HTTP_READ_TIMEOUT":  "soon",
		"TICKERQL_AI_MAX_ATTEMPTS":    "many",
		"TICKERQL_INGEST_CONCURRENCY": "0",
	}))
	if err == nil {
		t.Fatal("Load() expected error")
	}
	for _, want := range []string{"TICKERQL_HTTP_READ_TIMEOUT", "TICKERQL_AI_MAX_ATTEMPTS", "TICKERQL_INGEST_CONCURRENCY must be > 0"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("Load() error = %v, missing %s", err, want)
		}
	}
}
