package s3

import (
	"fmt"
	"path"
	"strings"

	"github.com/tickerql/tickerql/internal/storage"
)

// keyspace maps store-relative keys onto bucket keys below an optional
// prefix, so several deployments can share one bucket.
type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return keyspace{}
	}
	if prefix = path.Clean(prefix); prefix == "." {
		return keyspace{}
	}
	return keyspace{prefix: prefix}
}

func (k keyspace) object(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("%w: empty", storage.ErrInvalidKey)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
	}
	if k.prefix == "" {
		return cleaned, nil
	}
	return k.prefix + "/" + cleaned, nil
}

// listing returns the bucket prefix to list for a store-relative prefix.
// The result always ends in a slash unless it lists the whole bucket.
func (k keyspace) listing(prefix string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		if k.prefix == "" {
			return "", nil
		}
		return k.prefix + "/", nil
	}
	key, err := k.object(trimmed)
	if err != nil {
		return "", err
	}
	return key + "/", nil
}

func (k keyspace) relative(key string) string {
	if k.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, k.prefix+"/")
}
