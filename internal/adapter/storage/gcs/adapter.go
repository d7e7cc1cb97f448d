// Package gcs provides a Google Cloud Storage implementation of the storage
// Connection. The lake account name maps to the bucket; the medallion
// containers become object-name prefixes inside it.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	storageConfig "github.com/tigerroll/ridelake/internal/adapter/storage/config"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// ProviderType defines the type identifier for this adapter.
const ProviderType = "gcs"

// gcsAdapter implements storage.Connection backed by one GCS bucket.
type gcsAdapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client *gcstorage.Client
}

var _ storageAdapter.Connection = (*gcsAdapter)(nil)

// NewAdapter creates a GCS-backed storage connection. When a credentials
// file is configured it is used explicitly; otherwise application default
// credentials apply.
func NewAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.Connection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified in configuration", name)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}

	return &gcsAdapter{cfg: cfg, name: name, client: client}, nil
}

// Close releases the underlying client.
func (a *gcsAdapter) Close() error {
	logger.Debugf("GCS storage adapter '%s' closed.", a.name)
	return a.client.Close()
}

// Type returns "gcs".
func (a *gcsAdapter) Type() string { return ProviderType }

// Name returns the connection name.
func (a *gcsAdapter) Name() string { return a.name }

// Upload writes data to bucket/container/objectName. GCS object writes are
// atomic replacements, which is the replace-if-exists semantics the pipeline
// relies on.
func (a *gcsAdapter) Upload(ctx context.Context, container, objectName string, data io.Reader, contentType string) error {
	obj := a.client.Bucket(a.cfg.BucketName).Object(a.objectPath(container, objectName))
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object '%s': %w", obj.ObjectName(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object '%s': %w", obj.ObjectName(), err)
	}
	logger.Debugf("Uploaded object '%s' to bucket '%s' (gcs adapter '%s').", obj.ObjectName(), a.cfg.BucketName, a.name)
	return nil
}

// Download opens bucket/container/objectName for reading.
func (a *gcsAdapter) Download(ctx context.Context, container, objectName string) (io.ReadCloser, error) {
	obj := a.client.Bucket(a.cfg.BucketName).Object(a.objectPath(container, objectName))
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s': %w", obj.ObjectName(), err)
	}
	logger.Debugf("Downloaded object '%s' from bucket '%s' (gcs adapter '%s').", obj.ObjectName(), a.cfg.BucketName, a.name)
	return r, nil
}

func (a *gcsAdapter) objectPath(container, objectName string) string {
	return path.Join(container, objectName)
}
