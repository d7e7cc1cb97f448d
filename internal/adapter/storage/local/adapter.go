// Package local provides a local file system implementation of the storage
// Connection, primarily for development runs and tests.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	storageConfig "github.com/tigerroll/ridelake/internal/adapter/storage/config"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// ProviderType defines the type identifier for this adapter.
const ProviderType = "local"

// localAdapter implements storage.Connection on top of a base directory.
// Containers map to sub-directories, objects to files.
type localAdapter struct {
	cfg  storageConfig.StorageConfig
	name string
}

var _ storageAdapter.Connection = (*localAdapter)(nil)

// NewAdapter creates a local storage connection rooted at cfg.BaseDir,
// creating the directory when it does not exist.
func NewAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.Connection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': base_dir must be specified in configuration", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
				return nil, fmt.Errorf("local storage adapter '%s': failed to create base_dir '%s': %w", name, cfg.BaseDir, err)
			}
		} else {
			return nil, fmt.Errorf("local storage adapter '%s': failed to stat base_dir '%s': %w", name, cfg.BaseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': base_dir '%s' is not a directory", name, cfg.BaseDir)
	}

	return &localAdapter{cfg: cfg, name: name}, nil
}

// Close does nothing for the local file system adapter.
func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

// Type returns "local".
func (a *localAdapter) Type() string { return ProviderType }

// Name returns the connection name.
func (a *localAdapter) Name() string { return a.name }

// Upload writes data to the file backing container/objectName, replacing any
// previous content.
func (a *localAdapter) Upload(ctx context.Context, container, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(container, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", filepath.Dir(fullPath), err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded data to '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// Download opens the file backing container/objectName.
func (a *localAdapter) Download(ctx context.Context, container, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(container, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path for download: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	logger.Debugf("Downloaded data from '%s' (local adapter '%s').", fullPath, a.name)
	return file, nil
}

// resolvePath resolves container/objectName under BaseDir/BucketName and
// rejects paths escaping the base directory.
func (a *localAdapter) resolvePath(container, objectName string) (string, error) {
	root := a.cfg.BaseDir
	if a.cfg.BucketName != "" {
		root = filepath.Join(root, a.cfg.BucketName)
	}
	fullPath := filepath.Join(root, container, objectName)

	absBase, err := filepath.Abs(a.cfg.BaseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for base_dir '%s': %w", a.cfg.BaseDir, err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", fullPath, err)
	}
	if !strings.HasPrefix(absFull, absBase) {
		return "", fmt.Errorf("resolved path '%s' is outside of base_dir '%s'", fullPath, a.cfg.BaseDir)
	}
	return fullPath, nil
}
