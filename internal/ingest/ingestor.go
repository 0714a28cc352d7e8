// Package ingest turns an uploaded payload into a persisted task.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/loader"
	"github.com/tigerroll/recordhub/internal/metrics"
	"github.com/tigerroll/recordhub/internal/processor"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const moduleName = "ingest"

// Resolver opens the storage connection payloads are archived to.
type Resolver interface {
	Resolve(ctx context.Context, name string) (storage.Connection, error)
}

// Dispatcher hands a task with active records to the work queue. *processor.Activator satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskID uint, active int64) error
}

// Ingestor loads, validates and stores payloads for an organisation.
type Ingestor struct {
	loader     *loader.Loader
	store      store.Store
	recorder   metrics.Recorder
	publisher  events.Publisher
	resolver   Resolver
	dispatcher Dispatcher
	cfg        config.ExportConfig
}

type Params struct {
	fx.In
	Store     store.Store
	Recorder  metrics.Recorder
	Publisher events.Publisher
	Activator *processor.Activator `optional:"true"`
	Resolver  *storage.Resolver    `optional:"true"`
	Cfg       config.ExportConfig
}

func NewIngestor(p Params) *Ingestor {
	iv := &Ingestor{
		loader:    loader.NewLoader(),
		store:     p.Store,
		recorder:  p.Recorder,
		publisher: p.Publisher,
		cfg:       p.Cfg,
	}
	if p.Resolver != nil {
		iv.resolver = p.Resolver
	}
	if p.Activator != nil {
		iv.dispatcher = p.Activator
	}
	return iv
}

// Ingest loads the payload and saves it as a task of orgID in one transaction.
// With override set, a task with the same organisation, kind and filename is replaced.
// Rows flagged active by the payload make the task active, and it is handed to the work queue.
// Nothing is stored when any record fails to load or validate.
func (i *Ingestor) Ingest(ctx context.Context, actor model.Actor, orgID uint, in loader.Input, override bool) (*model.Task, error) {
	if _, err := i.store.FindOrganisation(ctx, orgID); err != nil {
		return nil, err
	}

	res, err := i.loader.Load(ctx, in)
	if err != nil {
		i.recorder.RecordLoad(ctx, string(in.Kind), 0, err)
		return nil, err
	}
	task := res.Task
	task.OrgID = orgID
	if err := i.store.SaveTask(ctx, actor, task, res.Records, override); err != nil {
		i.recorder.RecordLoad(ctx, string(task.Kind), 0, err)
		return nil, err
	}
	i.recorder.RecordLoad(ctx, string(task.Kind), len(res.Records), nil)

	if err := i.publisher.Publish(ctx, events.Event{
		Type:   events.TaskLoaded,
		TaskID: task.ID,
		OrgID:  orgID,
		Kind:   string(task.Kind),
		Data:   map[string]interface{}{"filename": task.Filename, "record_count": task.RecordCount},
	}); err != nil {
		logger.Warnf("Failed to publish %s for task %d: %v", events.TaskLoaded, task.ID, err)
	}

	if active := store.ActiveCount(res.Records); active > 0 {
		if i.dispatcher == nil {
			logger.Warnf("Task %d has %d active record(s) but no work queue; the scheduler will pick them up.", task.ID, active)
		} else if err := i.dispatcher.Dispatch(ctx, task.ID, int64(active)); err != nil {
			logger.Warnf("Task %d was saved but could not be queued for processing: %v", task.ID, err)
		}
	}

	if i.cfg.ArchivePayloads {
		if err := i.archive(ctx, task, in.Data); err != nil {
			logger.Warnf("Task %d was saved but its payload could not be archived: %v", task.ID, err)
		}
	}
	return task, nil
}

func (i *Ingestor) archive(ctx context.Context, task *model.Task, data []byte) error {
	if i.resolver == nil {
		return exception.NewBatchErrorf(moduleName, "no storage configured for payload archive")
	}
	conn, err := i.resolver.Resolve(ctx, i.cfg.StorageRef)
	if err != nil {
		return err
	}
	name := task.Filename
	if name == "" {
		name = "payload"
	}
	object := path.Join(i.cfg.Prefix, "payloads", string(task.Kind), fmt.Sprintf("task-%d", task.ID), name)
	return conn.Upload(ctx, "", object, bytes.NewReader(data), "application/octet-stream")
}

var Module = fx.Options(
	fx.Provide(NewIngestor),
)
