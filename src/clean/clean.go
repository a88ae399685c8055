package clean

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

var ErrNotDir = errors.New("provided path is not a directory")

// OldFiles deletes the regular files directly under dir whose creation time
// is more than maxAge ago. Subdirectories are not descended into.
func OldFiles(ctx context.Context, dir string, maxAge time.Duration) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		created, err := createdAt(path)
		if err != nil {
			logger.Warn(ctx, "Clean skipped file", zap.String("path", path), zap.Error(err))
			continue
		}
		if now.Sub(created) <= maxAge {
			continue
		}
		logger.Info(ctx, "Deleting timeout file", zap.String("path", path))
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Func removes expired files from one directory. OldFiles is one.
type Func func(ctx context.Context, dir string, maxAge time.Duration) error

// Paths sweeps every dir with fn, OldFiles when fn is nil. One failing path
// does not stop the others.
func Paths(ctx context.Context, dirs []string, maxAge time.Duration, fn Func) {
	if fn == nil {
		fn = OldFiles
	}
	for _, dir := range dirs {
		if err := fn(ctx, dir, maxAge); err != nil {
			logger.Error(ctx, "Clean expired files failed", zap.String("path", dir), zap.Error(err))
		}
	}
}
