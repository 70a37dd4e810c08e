package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrRemoteNotConfigured is returned when artifact publication is attempted
// without a remote backend.
var ErrRemoteNotConfigured = errors.New("remote artifact storage is not configured")

// Local implements Storage on the local disk. It owns a temporary workspace
// directory and does not support publication.
type Local struct {
	tempDir string
}

// NewLocal creates a Local storage rooted at tempDir, creating the directory
// if needed. An empty tempDir defaults to a "mediacrop" directory under the
// system temp dir.
func NewLocal(tempDir string) (*Local, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "mediacrop")
	}
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	return &Local{tempDir: tempDir}, nil
}

// TempDir implements Storage.
func (s *Local) TempDir() string {
	return s.tempDir
}

// SaveTemp implements Storage.
func (s *Local) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	path := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// CleanupTemp implements Storage.
func (s *Local) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish implements Storage; Local has no remote backend.
func (s *Local) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrRemoteNotConfigured
}
