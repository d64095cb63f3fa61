//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tickerql/tickerql/internal/storage"
)

func integrationStore(ctx context.Context, t *testing.T) *Store {
	t.Helper()
	endpoint := os.Getenv("TICKERQL_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TICKERQL_TEST_S3_ENDPOINT is not set")
	}
	env := func(key, fallback string) string {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
		return fallback
	}
	store, err := New(ctx, Config{
		Endpoint:         endpoint,
		Region:           env("TICKERQL_TEST_S3_REGION", "us-east-1"),
		Bucket:           env("TICKERQL_TEST_S3_BUCKET", "tickerql-it"),
		AccessKeyID:      env("TICKERQL_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  env("TICKERQL_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "it-" + uuid.NewString(),
		AutoCreateBucket: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestStatementObjectLifecycleAgainstMinIO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store := integrationStore(ctx, t)

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	runID := uuid.NewString()
	key, err := storage.BuildStatementFilePath("TEST", runID)
	if err != nil {
		t.Fatalf("BuildStatementFilePath() error = %v", err)
	}
	body := []byte("PAR1-not-really-parquet")
	put, err := store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{
		ContentType: storage.ParquetContentType,
		Metadata:    map[string]string{storage.MetaTicker: "TEST", storage.MetaRunID: runID},
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if put.Key != key {
		t.Fatalf("Put().Key = %q, want %q", put.Key, key)
	}

	info, err := store.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != int64(len(body)) || info.ContentType != storage.ParquetContentType {
		t.Fatalf("Stat() = %+v", info)
	}
	if got := metadataValue(info.Metadata, storage.MetaRunID); got != runID {
		t.Fatalf("run id metadata = %q, want %q (all: %v)", got, runID, info.Metadata)
	}

	listed, err := store.List(ctx, storage.TickerPrefix("TEST"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 1 || listed[0].Key != key {
		t.Fatalf("List() = %+v", listed)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || !bytes.Equal(got, body) {
		t.Fatalf("Get() body = %q, %v", got, err)
	}

	for range 2 {
		if err := store.Delete(ctx, key); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	}
	if _, err := store.Stat(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() after delete error = %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
}

// metadataValue looks a key up the way S3 returns it, canonicalised.
func metadataValue(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
