// Package memory provides an in-memory storage Connection used as the
// object-store test double. It additionally records the order of writes so
// tests can assert ordering contracts such as "silver before gold".
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
)

// ProviderType defines the type identifier for this adapter.
const ProviderType = "memory"

// Adapter implements storage.Connection over an in-process map.
// The zero value is not usable; construct with NewAdapter.
type Adapter struct {
	name    string
	mu      sync.Mutex
	objects map[string][]byte
	// writeLog records "container/object" keys in upload order.
	writeLog []string
}

var _ storageAdapter.Connection = (*Adapter)(nil)

// NewAdapter creates an empty in-memory store.
func NewAdapter(name string) *Adapter {
	return &Adapter{
		name:    name,
		objects: make(map[string][]byte),
	}
}

// Close does nothing.
func (a *Adapter) Close() error { return nil }

// Type returns "memory".
func (a *Adapter) Type() string { return ProviderType }

// Name returns the connection name.
func (a *Adapter) Name() string { return a.name }

// Upload stores data, replacing any previous object under the same key.
func (a *Adapter) Upload(ctx context.Context, container, objectName string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read upload data for '%s': %w", objectName, err)
	}
	key := a.key(container, objectName)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = b
	a.writeLog = append(a.writeLog, key)
	return nil
}

// Download returns the stored object or an error when it does not exist.
func (a *Adapter) Download(ctx context.Context, container, objectName string) (io.ReadCloser, error) {
	key := a.key(container, objectName)

	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("object '%s' not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Object returns the stored bytes and whether the object exists.
func (a *Adapter) Object(container, objectName string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.objects[a.key(container, objectName)]
	return b, ok
}

// WriteLog returns the "container/object" keys in upload order.
func (a *Adapter) WriteLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.writeLog))
	copy(out, a.writeLog)
	return out
}

func (a *Adapter) key(container, objectName string) string {
	return path.Join(container, objectName)
}
