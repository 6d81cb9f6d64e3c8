package gitstore

import (
	"context"

	"github.com/rotisserie/eris"
)

// File is the unit of storage: raw content plus the opaque revision token the
// backend requires to accept a conditioned write of the same path.
type File struct {
	Content  []byte
	Revision string
}

// Store abstracts a file-hosting backend with revision-conditioned writes.
// Write with an empty revision creates the path and fails if it already
// exists; Write with a revision atomically replaces the content only while
// that revision is still current.
type Store interface {
	Read(ctx context.Context, path string) (*File, error)
	Write(ctx context.Context, path string, content []byte, message, revision string) error
	Delete(ctx context.Context, path, message, revision string) error
	Ping(ctx context.Context) error
}

var (
	// ErrNotFound indicates the requested path does not exist in the store.
	ErrNotFound = eris.New("file not found")
	// ErrConflict indicates a conditioned write was rejected because the
	// supplied revision token is no longer current.
	ErrConflict = eris.New("revision conflict")
	// ErrUnavailable indicates the store could not be reached or refused the
	// request for reasons unrelated to the revision token (network, auth).
	ErrUnavailable = eris.New("content store unavailable")
)
