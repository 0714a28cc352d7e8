// Package storage defines the object storage abstraction used for exports.
// Backends (local, gcs) contribute a Provider to the storage_providers fx group.
package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/configbinder"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// ProviderGroup is the fx value group collecting storage providers.
const ProviderGroup = "storage_providers"

// Config holds one named entry of recordhub.storage.connections.
type Config struct {
	Type            string `yaml:"type"` // "local" or "gcs".
	BucketName      string `yaml:"bucket_name"`
	CredentialsFile string `yaml:"credentials_file"`
	BaseDir         string `yaml:"base_dir"`
}

// Connection is an open object store.
type Connection interface {
	Name() string
	Type() string
	Close() error
	// Upload writes data to objectName. An empty bucket selects the configured default.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object whose name starts with prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes objectName. A missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// Provider opens connections of one storage type.
type Provider interface {
	Type() string
	Open(ctx context.Context, name string, cfg Config) (Connection, error)
}

// DecodeConfig decodes the named storage connection.
func DecodeConfig(cfg *config.Config, name string) (Config, error) {
	var sc Config
	raw, ok := cfg.RecordHub.Storage.Connections[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration '%s' not found in storage.connections", name)
	}
	if err := configbinder.BindProperties(raw, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}

// Resolver opens named connections on first use and keeps them until CloseAll.
type Resolver struct {
	cfg       *config.Config
	providers map[string]Provider
	mu        sync.Mutex
	conns     map[string]Connection
}

type ResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Providers []Provider `group:"storage_providers"`
}

// NewResolver builds the resolver from the providers in the group and closes its connections on stop.
func NewResolver(p ResolverParams) *Resolver {
	r := NewResolverFor(p.Cfg, p.Providers...)
	p.Lifecycle.Append(fx.Hook{OnStop: func(context.Context) error { return r.CloseAll() }})
	return r
}

func NewResolverFor(cfg *config.Config, providers ...Provider) *Resolver {
	r := &Resolver{cfg: cfg, providers: make(map[string]Provider), conns: make(map[string]Connection)}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

// Resolve returns the connection named name, or storage.default_ref when name is empty.
func (r *Resolver) Resolve(ctx context.Context, name string) (Connection, error) {
	if name == "" {
		name = r.cfg.RecordHub.Storage.DefaultRef
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[name]; ok {
		return c, nil
	}
	sc, err := DecodeConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	p, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}
	c, err := p.Open(ctx, name, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage connection '%s': %w", name, err)
	}
	r.conns[name] = c
	logger.Debugf("Opened %s storage connection '%s'.", sc.Type, name)
	return c, nil
}

func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs error
	for name, c := range r.conns {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(r.conns, name)
	}
	return errs
}

// Module provides the Resolver. Backend modules contribute the providers.
var Module = fx.Options(
	fx.Provide(NewResolver),
)
