// Package storage defines the object-store abstraction shared by all
// pipeline stages. Every write is a whole-object "put, replace-if-exists";
// stages depend only on this capability, never on a concrete storage
// product, so a local-filesystem or in-memory backend can stand in for the
// production lake.
package storage

import (
	"context"
	"io"
)

// Connection represents a connection to one object store.
type Connection interface {
	// Upload stores data under container/objectName, replacing any existing
	// object. contentType is the MIME type of the data.
	Upload(ctx context.Context, container, objectName string, data io.Reader, contentType string) error
	// Download opens the object stored under container/objectName.
	// The returned ReadCloser must be closed by the caller.
	Download(ctx context.Context, container, objectName string) (io.ReadCloser, error)
	// Close releases resources held by the connection.
	Close() error
	// Type returns the adapter type (e.g. "gcs", "local", "memory").
	Type() string
	// Name returns the configured connection name.
	Name() string
}
