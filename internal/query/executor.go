package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/schema"
)

type FileLister interface {
	ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error)
}

// Executor runs SQL against the current statement files of the quarterly
// table.
type Executor struct {
	Files    FileLister
	Engine   Engine
	Table    schema.TableRef
	RowLimit int
}

func NewExecutor(files FileLister, engine Engine, rowLimit int) *Executor {
	return &Executor{
		Files:    files,
		Engine:   engine,
		Table:    schema.QuarterlyTable,
		RowLimit: rowLimit,
	}
}

func (e *Executor) Execute(ctx context.Context, sql string) (Result, error) {
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	if e.Files == nil || e.Engine == nil {
		return Result{}, fmt.Errorf("executor is not configured")
	}
	statementFiles, err := e.Files.ListStatementFiles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list statement files: %w", err)
	}
	files := make([]TableFile, 0, len(statementFiles))
	for _, file := range statementFiles {
		files = append(files, TableFile{
			Table:         e.Table,
			ObjectPath:    file.Path,
			FileSizeBytes: file.FileSizeBytes,
		})
	}
	return e.Engine.Execute(ctx, Request{SQL: sql, RowLimit: e.RowLimit, Files: files})
}
