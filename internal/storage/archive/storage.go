// Package archive stores report artifacts of backtest runs on a local
// directory or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/config"
)

// Storage is a flat key/blob store. Keys use forward slashes.
type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the storage selected by cfg. An empty type disables archiving
// and returns nil.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.ArchiveLocalFS:
		return NewLocalFS(cfg.Path)
	case config.ArchiveS3:
		return NewS3(cfg.S3)
	default:
		return nil, bterrors.ConfigInvalid("archive", "unknown archive type %q", cfg.Type)
	}
}

// Archiver copies report files of a run under <runID>/<file name>
type Archiver struct {
	store  Storage
	logger *zap.Logger
}

// NewArchiver wraps store
func NewArchiver(store Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, logger: logger}
}

// RunKey is the archive key of file name for runID
func RunKey(runID, name string) string {
	return path.Join(runID, name)
}

// Archive uploads files and returns their keys. It stops at the first
// failure; keys archived so far are returned with the error.
func (a *Archiver) Archive(ctx context.Context, runID string, files []string) ([]string, error) {
	if runID == "" {
		return nil, fmt.Errorf("archive: empty run id")
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}

		data, err := os.ReadFile(f)
		if err != nil {
			return keys, fmt.Errorf("reading %s: %w", f, err)
		}

		key := RunKey(runID, filepath.Base(f))
		if err := a.store.Write(ctx, key, data); err != nil {
			return keys, fmt.Errorf("archiving %s: %w", key, err)
		}
		keys = append(keys, key)

		a.logger.Debug("artifact archived",
			zap.String("run_id", runID),
			zap.String("key", key),
			zap.Int("bytes", len(data)))
	}

	a.logger.Info("run archived", zap.String("run_id", runID), zap.Int("artifacts", len(keys)))
	return keys, nil
}
