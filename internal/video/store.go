// Package video manages generated sign-language videos on local disk.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const extension = ".mp4"

var (
	ErrInvalidName = errors.New("invalid video name")
	ErrNotFound    = errors.New("video not found")
)

// Store keeps videos in a single flat directory.
type Store struct {
	dir    string
	keep   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates dir when missing. keep names a file that Cleanup never
// removes (the sample video).
func NewStore(dir, keep string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create video dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, keep: filepath.Base(keep), logger: logger, now: time.Now}, nil
}

// NewRequestID returns a time ordered id suitable as a file stem.
func NewRequestID() string {
	return strings.ToLower(ulid.Make().String())
}

// ValidName reports whether name is a bare mp4 file name.
func ValidName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), extension)
}

// Save writes r to name atomically.
func (s *Store) Save(name string, r io.Reader) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp video: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close video: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("publish video: %w", err)
	}
	return nil
}

// Path resolves name to an existing file.
func (s *Store) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	full := filepath.Join(s.dir, name)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat video: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return full, nil
}

// Cleanup removes videos last modified before now-olderThan and returns how
// many were deleted.
func (s *Store) Cleanup(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read video dir: %w", err)
	}
	cutoff := s.now().Add(-olderThan)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == s.keep || !strings.EqualFold(filepath.Ext(name), extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove expired video", zap.String("file", name), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper calls Cleanup every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(retention)
			if err != nil {
				s.logger.Error("video cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired videos removed", zap.Int("count", n))
			}
		}
	}
}
