// Package gcs stores objects in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/fx"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const ProviderType = "gcs"

type Adapter struct {
	client *gcstorage.Client
	bucket string
	name   string
}

// NewAdapter creates a client. Without credentials_file the application default credentials apply.
func NewAdapter(ctx context.Context, cfg storage.Config, name string, opts ...option.ClientOption) (*Adapter, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage '%s': failed to create client: %w", name, err)
	}
	return &Adapter{client: client, bucket: cfg.BucketName, name: name}, nil
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return ProviderType }
func (a *Adapter) Close() error { return a.client.Close() }

func (a *Adapter) bucketName(bucket string) (string, error) {
	if bucket == "" {
		bucket = a.bucket
	}
	if bucket == "" {
		return "", fmt.Errorf("gcs storage '%s': no bucket given and bucket_name not set", a.name)
	}
	return bucket, nil
}

func (a *Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	w := a.client.Bucket(b).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload gs://%s/%s: %w", b, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish upload of gs://%s/%s: %w", b, objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s.", b, objectName)
	return nil
}

func (a *Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := a.bucketName(bucket)
	if err != nil {
		return nil, err
	}
	r, err := a.client.Bucket(b).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", b, objectName, err)
	}
	return r, nil
}

func (a *Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	it := a.client.Bucket(b).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", b, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (a *Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	err = a.client.Bucket(b).Object(objectName).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		logger.Warnf("Object gs://%s/%s does not exist.", b, objectName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", b, objectName, err)
	}
	return nil
}

var _ storage.Connection = (*Adapter)(nil)

// Provider opens GCS adapters. Opts are passed to every client, which lets tests point at an emulator.
type Provider struct {
	opts []option.ClientOption
}

func NewProvider() storage.Provider { return &Provider{} }

func NewProviderWithOptions(opts ...option.ClientOption) *Provider { return &Provider{opts: opts} }

func (p *Provider) Type() string { return ProviderType }

func (p *Provider) Open(ctx context.Context, name string, cfg storage.Config) (storage.Connection, error) {
	return NewAdapter(ctx, cfg, name, p.opts...)
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+storage.ProviderGroup+`"`),
	)),
)
