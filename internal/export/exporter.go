// Package export writes tasks to object storage as JSON, YAML or flat parquet files.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts json, yaml/yml and parquet.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unsupported export format '%s'", s)
}

func (f Format) contentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatParquet:
		return "application/octet-stream"
	}
	return "application/json"
}

// Source is the part of the store an export reads.
type Source interface {
	GetTask(ctx context.Context, id uint) (*model.Task, error)
	ListRecords(ctx context.Context, taskID uint) ([]model.Record, error)
	Export(ctx context.Context, taskID uint) (tree.Map, error)
}

// Resolver opens named storage connections.
type Resolver interface {
	Resolve(ctx context.Context, name string) (storage.Connection, error)
}

type Exporter struct {
	source   Source
	resolver Resolver
	cfg      config.ExportConfig
	now      func() time.Time
	newID    func() string
}

func NewExporter(source Source, resolver Resolver, cfg config.ExportConfig) *Exporter {
	if cfg.Compression == "" {
		cfg.Compression = "SNAPPY"
	}
	return &Exporter{
		source:   source,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Write renders the task in format to w.
func (e *Exporter) Write(ctx context.Context, taskID uint, format Format, w io.Writer) error {
	switch format {
	case FormatJSON, FormatYAML:
		doc, err := e.source.Export(ctx, taskID)
		if err != nil {
			return err
		}
		return encodeDocument(doc, format, w)
	case FormatParquet:
		recs, err := e.source.ListRecords(ctx, taskID)
		if err != nil {
			return err
		}
		var rows []Row
		for _, r := range recs {
			rows = append(rows, Flatten(r)...)
		}
		return writeParquet(rows, e.cfg.Compression, w)
	}
	return exception.NewBatchErrorf("export", "unsupported export format '%s'", format)
}

// Upload writes the task to the configured storage and returns the object name.
// Objects are named <prefix>/<kind>/task-<id>/<timestamp>_<uuid>.<format>.
func (e *Exporter) Upload(ctx context.Context, taskID uint, format Format) (string, error) {
	task, err := e.source.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	conn, err := e.resolver.Resolve(ctx, e.cfg.StorageRef)
	if err != nil {
		return "", exception.NewBatchError("export", "failed to resolve export storage", err, false)
	}

	var buf bytes.Buffer
	if err := e.Write(ctx, taskID, format, &buf); err != nil {
		return "", err
	}
	name := path.Join(
		e.cfg.Prefix,
		string(task.Kind),
		fmt.Sprintf("task-%d", task.ID),
		fmt.Sprintf("%s_%s.%s", e.now().UTC().Format("20060102150405"), e.newID(), format),
	)
	size := buf.Len()
	if err := conn.Upload(ctx, "", name, &buf, format.contentType()); err != nil {
		return "", exception.NewBatchError("export", fmt.Sprintf("failed to upload '%s'", name), err, true)
	}
	logger.Infof("Exported task %d as %s to '%s' (%d bytes, storage '%s').", taskID, format, name, size, conn.Name())
	return name, nil
}

func encodeDocument(doc tree.Map, format Format, w io.Writer) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return exception.NewBatchError("export", "failed to encode YAML", err, false)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return exception.NewBatchError("export", "failed to encode JSON", err, false)
	}
	return nil
}

func writeParquet(rows []Row, compression string, w io.Writer) (errs error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return exception.NewBatchError("export", "invalid parquet compression", err, false)
	}
	pw, err := writer.NewParquetWriterFromWriter(w, new(Row), 4)
	if err != nil {
		return exception.NewBatchError("export", "failed to create parquet writer", err, false)
	}
	pw.CompressionType = codec
	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("row %d: %w", i, err))
		}
	}
	defer func() {
		if r := recover(); r != nil {
			errs = multierror.Append(errs, fmt.Errorf("parquet writer panicked during WriteStop: %v", r))
		}
	}()
	if err := pw.WriteStop(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to finalize parquet file: %w", err))
	}
	return errs
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return parquet.CompressionCodec_UNCOMPRESSED, fmt.Errorf("unsupported compression type: %s", name)
}

var Module = fx.Options(
	fx.Provide(func(s store.Store, r *storage.Resolver, cfg config.ExportConfig) *Exporter {
		return NewExporter(s, r, cfg)
	}),
)
