package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	_ "github.com/tigerroll/recordhub/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/recordhub/internal/adapter/storage"
	"github.com/tigerroll/recordhub/internal/adapter/storage/local"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/loader"
	"github.com/tigerroll/recordhub/internal/metrics"
	"github.com/tigerroll/recordhub/internal/migration"
	"github.com/tigerroll/recordhub/internal/processor"
	"github.com/tigerroll/recordhub/internal/queue"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/tx"
)

const staffCSV = "email,organisation,country,affiliation type\n" +
	"a@example.com,Uni,NZ,staff\n" +
	"b@example.com,Uni,NZ,student\n"

type loadCall struct {
	kind    string
	records int
	failed  bool
}

type recorderStub struct {
	metrics.NoopRecorder
	loads []loadCall
}

func (r *recorderStub) RecordLoad(_ context.Context, kind string, records int, err error) {
	r.loads = append(r.loads, loadCall{kind: kind, records: records, failed: err != nil})
}

type publisherStub struct{ events []events.Event }

func (p *publisherStub) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *publisherStub) Close() error { return nil }

type fixture struct {
	db    *gorm.DB
	store *store.GormStore
	org   *model.Organisation
	rec   *recorderStub
	pub   *publisherStub
}

func newFixture(t *testing.T) *fixture {
	dbCfg := database.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "hub.db")}
	db, err := gormadapter.Open(dbCfg)
	require.NoError(t, err)
	conn := gormadapter.NewGormDBAdapter(db, dbCfg, "test")
	t.Cleanup(func() { _ = conn.Close() })
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.NewMigrator(conn).Up(context.Background()))

	f := &fixture{
		db:    db,
		store: store.NewStore(conn, tx.NewGormTransactionManager(conn)),
		rec:   &recorderStub{},
		pub:   &publisherStub{},
	}
	f.org = &model.Organisation{Name: "Uni", ClientID: "APP-1"}
	require.NoError(t, db.Create(f.org).Error)
	return f
}

func (f *fixture) ingestor(cfg config.ExportConfig, resolver *storage.Resolver) *Ingestor {
	return NewIngestor(Params{Store: f.store, Recorder: f.rec, Publisher: f.pub, Resolver: resolver, Cfg: cfg})
}

func TestIngestSavesTask(t *testing.T) {
	f := newFixture(t)
	actor := model.Actor{UserID: 1, Name: "admin"}

	task, err := f.ingestor(config.ExportConfig{}, nil).Ingest(context.Background(), actor, f.org.ID,
		loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}, false)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Equal(t, f.org.ID, task.OrgID)
	assert.Equal(t, 2, task.RecordCount)
	assert.Equal(t, uint(1), task.CreatedBy)

	recs, err := f.store.ListRecords(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	assert.Equal(t, []loadCall{{kind: "affiliation", records: 2}}, f.rec.loads)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.TaskLoaded, f.pub.events[0].Type)
}

func TestIngestOverrideReplacesTask(t *testing.T) {
	f := newFixture(t)
	iv := f.ingestor(config.ExportConfig{}, nil)
	in := loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}

	first, err := iv.Ingest(context.Background(), model.SystemActor, f.org.ID, in, false)
	require.NoError(t, err)

	in.Data = []byte("email,organisation,country,affiliation type\nc@example.com,Uni,NZ,staff\n")
	second, err := iv.Ingest(context.Background(), model.SystemActor, f.org.ID, in, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	recs, err := f.store.ListRecords(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "c@example.com", recs[0].(*model.AffiliationRecord).Email)
}

func TestIngestRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingestor(config.ExportConfig{}, nil).Ingest(context.Background(), model.SystemActor, f.org.ID,
		loader.Input{Filename: "bad.csv", Data: []byte(staffCSV + "c@example.com,Uni,Narnia,staff\n"), Kind: model.KindAffiliation}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrCountry)

	var n int64
	require.NoError(t, f.db.Model(&model.Task{}).Count(&n).Error)
	assert.Zero(t, n)
	require.Len(t, f.rec.loads, 1)
	assert.True(t, f.rec.loads[0].failed)
	assert.Empty(t, f.pub.events)
}

func TestIngestUnknownOrganisation(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingestor(config.ExportConfig{}, nil).Ingest(context.Background(), model.SystemActor, 999,
		loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}, false)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestIngestArchivesPayload(t *testing.T) {
	f := newFixture(t)
	cfg := config.NewConfig()
	cfg.RecordHub.Storage.Connections = map[string]interface{}{
		"default": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
	}
	resolver := storage.NewResolverFor(cfg, local.NewProvider())
	iv := f.ingestor(config.ExportConfig{Prefix: "archive", ArchivePayloads: true}, resolver)

	task, err := iv.Ingest(context.Background(), model.SystemActor, f.org.ID,
		loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}, false)
	require.NoError(t, err)

	conn, err := resolver.Resolve(context.Background(), "")
	require.NoError(t, err)
	r, err := conn.Download(context.Background(), "", fmt.Sprintf("archive/payloads/affiliation/task-%d/staff.csv", task.ID))
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, staffCSV, string(body))
}

func TestExportReingestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.ingestor(config.ExportConfig{}, nil)

	task, err := iv.Ingest(ctx, model.SystemActor, f.org.ID,
		loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}, false)
	require.NoError(t, err)

	doc, err := f.store.Export(ctx, task.ID)
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	again, err := iv.Ingest(ctx, model.SystemActor, f.org.ID, loader.Input{Data: data, Format: loader.FormatJSON}, true)
	require.NoError(t, err)
	assert.Equal(t, task.ID, again.ID)

	recs, err := f.store.ListRecords(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	var emails []string
	for _, r := range recs {
		a := r.(*model.AffiliationRecord)
		emails = append(emails, a.Email)
		assert.Equal(t, "NZ", a.Country)
		assert.Equal(t, "Uni", a.OrgName)
	}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, emails)
}

func TestIngestQueuesActiveRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := queue.NewMemoryQueue(4, 20*time.Millisecond)
	iv := NewIngestor(Params{
		Store:     f.store,
		Recorder:  f.rec,
		Publisher: f.pub,
		Activator: processor.NewActivator(f.store, q, f.pub),
	})
	csv := "email,organisation,country,affiliation type,active\n" +
		"a@example.com,Uni,NZ,staff,yes\n" +
		"b@example.com,Uni,NZ,student,\n"

	task, err := iv.Ingest(ctx, model.SystemActor, f.org.ID,
		loader.Input{Filename: "active.csv", Data: []byte(csv), Kind: model.KindAffiliation}, false)
	require.NoError(t, err)

	got, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusActive, got.Status)
	assert.NotNil(t, got.ActivatedAt)

	active := 0
	recs, err := f.store.ListRecords(ctx, task.ID)
	require.NoError(t, err)
	for _, r := range recs {
		if r.Base().IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	msg, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, task.ID, msg.TaskID)

	var types []string
	for _, e := range f.pub.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.TaskLoaded, events.TaskActivated}, types)
}

func TestIngestWithoutActiveRowsStaysIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := queue.NewMemoryQueue(4, 20*time.Millisecond)
	iv := NewIngestor(Params{
		Store:     f.store,
		Recorder:  f.rec,
		Publisher: f.pub,
		Activator: processor.NewActivator(f.store, q, f.pub),
	})

	task, err := iv.Ingest(ctx, model.SystemActor, f.org.ID,
		loader.Input{Filename: "staff.csv", Data: []byte(staffCSV), Kind: model.KindAffiliation}, false)
	require.NoError(t, err)
	assert.Empty(t, task.Status)
	assert.Nil(t, task.ActivatedAt)

	msg, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)
}
