// Package storage manages the temporary workspace trim outputs are written
// to and, optionally, publication of finished artifacts to a remote bucket.
// The core itself persists nothing beyond transient temporary files.
package storage

import (
	"context"
	"io"
)

// Storage is the port for workspace and artifact handling. The local backend
// covers temporary files only; the S3 backend adds remote publication.
type Storage interface {
	// TempDir returns the directory temporary outputs are written to.
	TempDir() string

	// SaveTemp writes data to a uniquely named temporary file and returns
	// its path. The name is used as a filename hint.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the given temporary files. Missing files are not
	// an error; cleanup continues past individual failures.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads an artifact under the given key and returns its URL.
	// Returns ErrRemoteNotConfigured when no remote backend is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
