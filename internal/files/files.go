// Package files holds the small file-system helpers shared by the dataset writers.
package files

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultDirCreationPerm is used for output directories.
const DefaultDirCreationPerm = 0o755

// lockRetryDelay is how often a busy lock is polled.
const lockRetryDelay = 200 * time.Millisecond

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteAtomic writes the file at path through write.
//
// The content goes to path+".tmp" first and is renamed into place only when write
// succeeds, so readers never observe a half-written dataset. A path+".lock" file
// serializes concurrent writers of the same path across processes; it is left in
// place, since removing it would let a waiting writer lock a stale inode.
func WriteAtomic(ctx context.Context, path string, write func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirCreationPerm); err != nil {
		return fmt.Errorf("creating directory for %q: %w", path, err)
	}

	lockPath := path + ".lock"
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking %q: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("locking %q: lock not acquired", lockPath)
	}
	// Unlock even if write panics.
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = fmt.Errorf("unlocking %q: %w", lockPath, unlockErr)
			} else {
				slog.Warn("unlocking file failed", "path", lockPath, "err", unlockErr)
			}
		}
	}()

	tmpPath := path + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temporary file %q: %w", tmpPath, err)
	}
	var tmpClosed bool
	defer func() {
		// On failure, close and remove the unfinished temporary file.
		if !tmpClosed {
			_ = tmpFile.Close()
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	buf := bufio.NewWriter(tmpFile)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing %q: %w", tmpPath, err)
	}

	tmpClosed = true
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("moving %q to %q: %w", tmpPath, path, err)
	}
	return nil
}
