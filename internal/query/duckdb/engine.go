package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"math/big"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/tickerql/tickerql/internal/query"
	"github.com/tickerql/tickerql/internal/schema"
	"github.com/tickerql/tickerql/internal/storage"
)

// Engine answers one query per call on a fresh in-memory DuckDB database.
// Statement files are staged into a temp dir and exposed as views named
// after their table reference, so generated SQL can address
// financials.quarterly directly.
type Engine struct {
	Store storage.Reader
}

func NewEngine(store storage.Reader) *Engine {
	return &Engine{Store: store}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := trimStatement(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if len(request.Files) == 0 {
		return query.Result{}, fmt.Errorf("no statement files have been ingested")
	}
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}

	start := time.Now()
	workDir, err := os.MkdirTemp("", "tickerql-query-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	files, err := stageFiles(ctx, e.Store, workDir, request.Files)
	if err != nil {
		return query.Result{}, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, qualified := range slices.Sorted(maps.Keys(files.tables)) {
		if err := registerView(ctx, db, files.tables[qualified], files.paths[qualified]); err != nil {
			return query.Result{}, err
		}
	}

	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s\n) AS q LIMIT %d", sqlText, request.RowLimit)
	}
	columns, rows, err := collect(ctx, db, sqlText)
	if err != nil {
		return query.Result{}, err
	}

	return query.Result{
		Columns:      columns,
		Rows:         rows,
		ScannedFiles: len(request.Files),
		ScannedBytes: files.bytes,
		Duration:     time.Since(start),
	}, nil
}

func registerView(ctx context.Context, db *sql.DB, table schema.TableRef, localPaths []string) error {
	name := quoteIdent(table.Table)
	if table.Schema != "" {
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(table.Schema)); err != nil {
			return fmt.Errorf("create schema %q: %w", table.Schema, err)
		}
		name = quoteIdent(table.Schema) + "." + name
	}
	viewSQL := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s, union_by_name = true)", name, quoteStringList(localPaths))
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return fmt.Errorf("create view for table %q: %w", table.Qualified(), err)
	}
	return nil
}

// collect runs sqlText and returns every row. Errors from DuckDB are
// returned with their message intact so callers can surface them.
func collect(ctx context.Context, db *sql.DB, sqlText string) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}

	out := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}

// normalizeValue maps driver types onto values that encode cleanly as JSON.
// Aggregates over BIGINT come back as HUGEINT and averages over integers as
// DECIMAL.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC()
	case *big.Int:
		if v.IsInt64() {
			return v.Int64()
		}
		return v.String()
	case duckdb.Decimal:
		return v.Float64()
	default:
		return v
	}
}

// trimStatement drops trailing semicolons together with any line or block
// comments that follow them.
func trimStatement(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for {
		next := strings.TrimSpace(strings.TrimSuffix(dropTrailingComment(trimmed), ";"))
		if next == trimmed {
			return trimmed
		}
		trimmed = next
	}
}

// dropTrailingComment removes a final "--" line comment or "/* */" block
// comment. Quoted strings and identifiers are skipped while scanning.
func dropTrailingComment(sqlText string) string {
	for i := 0; i < len(sqlText); i++ {
		switch {
		case sqlText[i] == '\'' || sqlText[i] == '"':
			quote := sqlText[i]
			for i++; i < len(sqlText) && sqlText[i] != quote; i++ {
			}
		case strings.HasPrefix(sqlText[i:], "--"):
			end := strings.IndexByte(sqlText[i:], '\n')
			if end < 0 {
				return strings.TrimSpace(sqlText[:i])
			}
			i += end
		case strings.HasPrefix(sqlText[i:], "/*"):
			end := strings.Index(sqlText[i+2:], "*/")
			if end < 0 {
				return sqlText
			}
			if strings.TrimSpace(sqlText[i+end+4:]) == "" {
				return strings.TrimSpace(sqlText[:i])
			}
			i += end + 3
		}
	}
	return sqlText
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
