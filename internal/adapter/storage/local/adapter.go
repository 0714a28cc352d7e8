// Package local stores objects as files under a base directory.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const ProviderType = "local"

// Adapter treats a bucket as a sub-directory of BaseDir.
type Adapter struct {
	cfg  storage.Config
	name string
}

// NewAdapter validates BaseDir, creating it when missing.
func NewAdapter(cfg storage.Config, name string) (*Adapter, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage '%s': base_dir must be set", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("local storage '%s': failed to create base_dir '%s': %w", name, cfg.BaseDir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("local storage '%s': failed to stat base_dir '%s': %w", name, cfg.BaseDir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("local storage '%s': base_dir '%s' is not a directory", name, cfg.BaseDir)
	}
	return &Adapter{cfg: cfg, name: name}, nil
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return ProviderType }
func (a *Adapter) Close() error { return nil }

func (a *Adapter) Upload(_ context.Context, bucket, objectName string, data io.Reader, _ string) error {
	full, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", full, err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", full, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file '%s': %w", full, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file '%s': %w", full, err)
	}
	logger.Debugf("Wrote '%s' (local storage '%s').", full, a.name)
	return nil
}

func (a *Adapter) Download(_ context.Context, bucket, objectName string) (io.ReadCloser, error) {
	full, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", full, err)
	}
	return f, nil
}

func (a *Adapter) ListObjects(_ context.Context, bucket, prefix string, fn func(objectName string) error) error {
	root, err := a.resolvePath(bucket, "")
	if err != nil {
		return err
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		return fn(rel)
	})
	if err != nil {
		return fmt.Errorf("failed to list '%s' with prefix '%s': %w", root, prefix, err)
	}
	return nil
}

func (a *Adapter) DeleteObject(_ context.Context, bucket, objectName string) error {
	full, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Object '%s' does not exist (local storage '%s').", full, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", full, err)
	}
	return nil
}

// resolvePath joins BaseDir, bucket and objectName and refuses paths that leave BaseDir.
func (a *Adapter) resolvePath(bucket, objectName string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	full := filepath.Join(a.cfg.BaseDir, bucket, objectName)
	absBase, err := filepath.Abs(a.cfg.BaseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base_dir '%s': %w", a.cfg.BaseDir, err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", full, err)
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' is outside of base_dir '%s'", full, a.cfg.BaseDir)
	}
	return full, nil
}

var _ storage.Connection = (*Adapter)(nil)

// Provider opens local adapters.
type Provider struct{}

func NewProvider() storage.Provider { return Provider{} }

func (Provider) Type() string { return ProviderType }

func (Provider) Open(_ context.Context, name string, cfg storage.Config) (storage.Connection, error) {
	return NewAdapter(cfg, name)
}

// Module contributes the local provider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+storage.ProviderGroup+`"`),
	)),
)
