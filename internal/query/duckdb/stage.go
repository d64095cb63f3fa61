package duckdb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tickerql/tickerql/internal/query"
	"github.com/tickerql/tickerql/internal/schema"
	"github.com/tickerql/tickerql/internal/storage"
)

const stageConcurrency = 8

// staged groups downloaded parquet files by the table they back.
type staged struct {
	tables map[string]schema.TableRef
	paths  map[string][]string
	bytes  int64
}

// stageFiles copies every object into dir. Local names keep the request
// order so views list files deterministically.
func stageFiles(ctx context.Context, store storage.Reader, dir string, files []query.TableFile) (staged, error) {
	local := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for i, file := range files {
		local[i] = filepath.Join(dir, fmt.Sprintf("%s_%04d.parquet", fileComponent(file.Table.Qualified()), i))
		g.Go(func() error {
			return download(gctx, store, file.ObjectPath, local[i])
		})
	}
	if err := g.Wait(); err != nil {
		return staged{}, err
	}

	out := staged{tables: map[string]schema.TableRef{}, paths: map[string][]string{}}
	for i, file := range files {
		qualified := file.Table.Qualified()
		out.tables[qualified] = file.Table
		out.paths[qualified] = append(out.paths[qualified], local[i])
		out.bytes += file.FileSizeBytes
	}
	return out, nil
}

func download(ctx context.Context, store storage.Reader, objectPath, localPath string) error {
	reader, err := store.Get(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("get object %q: %w", objectPath, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("stage object %q: %w", objectPath, err)
	}
	return file.Close()
}

func fileComponent(value string) string {
	value = strings.NewReplacer("/", "_", "..", "_", ".", "_").Replace(value)
	if value == "" {
		return "table"
	}
	return value
}
