package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists raw evidence bytes and returns a location that can be served back.
type Store interface {
	Put(ctx context.Context, fileName string, data []byte) (string, error)
}

// LocalStore writes uploads under Dir, sharded by day.
type LocalStore struct {
	Dir     string
	BaseURL string
	Now     func() time.Time
}

func (s LocalStore) Put(ctx context.Context, fileName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	key := path.Join(now().UTC().Format("2006/01/02"), uuid.NewString()+strings.ToLower(filepath.Ext(fileName)))

	full := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage mkdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage write: %w", err)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + key, nil
}
