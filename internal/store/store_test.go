package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
	_ "github.com/tigerroll/recordhub/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/migration"
	"github.com/tigerroll/recordhub/internal/tx"
)

var admin = model.Actor{UserID: 7, Name: "admin@example.com"}

func newTestStore(t *testing.T) (*GormStore, database.DBConnection) {
	cfg := database.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "hub.db")}
	db, err := gormadapter.Open(cfg)
	require.NoError(t, err)
	conn := gormadapter.NewGormDBAdapter(db, cfg, "test")
	t.Cleanup(func() { _ = conn.Close() })
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.NewMigrator(conn).Up(context.Background()))
	return NewStore(conn, tx.NewGormTransactionManager(conn)), conn
}

func fundingRecords() []model.Record {
	return []model.Record{
		&model.FundingRecord{
			RecordBase:  model.RecordBase{Row: 2},
			OrgRef:      model.OrgRef{OrgName: "Royal Society", Country: "NZ"},
			Title:       "Marsden Grant",
			Type:        "grant",
			ExternalIDs: []model.ExternalID{{Type: "grant_number", Value: "17-UOA-001", Relationship: "self"}},
			Invitees: []model.Invitee{
				{Person: model.Person{Email: "a@example.com"}},
				{Person: model.Person{Email: "b@example.com"}, PutCode: "9"},
			},
		},
		&model.FundingRecord{
			RecordBase: model.RecordBase{Row: 3},
			Title:      "Second Grant",
			Type:       "award",
			Invitees:   []model.Invitee{{Person: model.Person{ORCID: "0000-0002-1825-0097"}}},
		},
	}
}

func affiliationRecords() []model.Record {
	return []model.Record{
		&model.AffiliationRecord{
			RecordBase:  model.RecordBase{Row: 2},
			Person:      model.Person{Email: "staff@example.com"},
			OrgRef:      model.OrgRef{OrgName: "University"},
			SectionName: "employment",
		},
		&model.AffiliationRecord{
			RecordBase:  model.RecordBase{Row: 3},
			Person:      model.Person{Email: "student@example.com"},
			OrgRef:      model.OrgRef{OrgName: "University"},
			SectionName: "education",
		},
	}
}

func saveTask(t *testing.T, s *GormStore, kind model.Kind, records []model.Record) *model.Task {
	task := &model.Task{OrgID: 1, Kind: kind, Filename: string(kind) + ".csv"}
	require.NoError(t, s.SaveTask(context.Background(), admin, task, records, false))
	require.NotZero(t, task.ID)
	return task
}

func TestSaveTask_CreatesRecordsAndChildren(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	task := saveTask(t, s, model.KindFunding, fundingRecords())

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RecordCount)
	assert.Equal(t, admin.UserID, got.CreatedBy)

	recs, err := s.ListRecords(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	f := recs[0].(*model.FundingRecord)
	assert.Equal(t, "Marsden Grant", f.Title)
	assert.Equal(t, task.ID, f.TaskID)
	require.Len(t, f.Invitees, 2)
	assert.Equal(t, "a@example.com", f.Invitees[0].Email)
	assert.Equal(t, "9", f.Invitees[1].PutCode)
	require.Len(t, f.ExternalIDs, 1)
	assert.Equal(t, "funding", f.ExternalIDs[0].RecordType)
}

func TestGetTask_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetTask(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveTask_Override(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	first := saveTask(t, s, model.KindFunding, fundingRecords())
	_, err := s.ActivateTask(ctx, admin, first.ID)
	require.NoError(t, err)

	replacement := &model.Task{OrgID: 1, Kind: model.KindFunding, Filename: first.Filename}
	require.NoError(t, s.SaveTask(ctx, admin, replacement, fundingRecords()[:1], true))
	assert.Equal(t, first.ID, replacement.ID)
	assert.Equal(t, 1, replacement.RecordCount)
	assert.Nil(t, replacement.ActivatedAt)

	recs, err := s.ListRecords(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Base().IsActive)

	var invitees int64
	require.NoError(t, conn.GormDB().Model(&model.Invitee{}).Count(&invitees).Error)
	assert.Equal(t, int64(2), invitees)

	// Without override a second task is created.
	other := &model.Task{OrgID: 1, Kind: model.KindFunding, Filename: first.Filename}
	require.NoError(t, s.SaveTask(ctx, admin, other, fundingRecords(), false))
	assert.NotEqual(t, first.ID, other.ID)
}

func TestLifecycle_ActivateProcessComplete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	task := saveTask(t, s, model.KindAffiliation, affiliationRecords())

	pending, err := s.PendingRecords(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "inactive records are not pending")

	n, err := s.ActivateTask(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pending, err = s.PendingRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Base().Row)

	now := time.Now()
	for _, rec := range pending {
		rec.Base().PutCode = "100"
		rec.Base().ProcessedAt = &now
		rec.Base().AppendStatus("created")
		require.NoError(t, s.SaveOutcome(ctx, model.SystemActor, rec))
	}
	done, err := s.MarkCompletedIfDone(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, done)

	frac, err := s.CompletedFraction(ctx, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, frac, 1e-9)

	rest, err := s.UnprocessedRecords(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	rest[0].Base().ProcessedAt = &now
	rest[0].Base().AppendStatus(model.StatusError + ": registry unavailable")
	require.NoError(t, s.SaveOutcome(ctx, model.SystemActor, rest[0]))

	done, err = s.MarkCompletedIfDone(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, done)
	done, err = s.MarkCompletedIfDone(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, done, "completion fires once")

	errFrac, err := s.ErrorFraction(ctx, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, errFrac, 1e-9)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())

	recs, err := s.ListRecords(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", recs[0].Base().PutCode)
	assert.Equal(t, "created", recs[0].Base().Status)
}

func TestSaveOutcome_Invitees(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	task := saveTask(t, s, model.KindFunding, fundingRecords())
	_, err := s.ActivateTask(ctx, admin, task.ID)
	require.NoError(t, err)

	recs, err := s.UnprocessedRecords(ctx, task.ID)
	require.NoError(t, err)
	f := recs[0].(*model.FundingRecord)
	units := model.Units(f)
	require.Len(t, units, 2)
	now := time.Now()
	units[0].SetPutCode("55")
	units[0].SetORCID("0000-0002-1825-0097")
	units[0].AppendStatus("created")
	units[0].MarkProcessed(now)
	require.NoError(t, s.SaveOutcome(ctx, model.SystemActor, f))

	recs, err = s.UnprocessedRecords(ctx, task.ID)
	require.NoError(t, err)
	f = recs[0].(*model.FundingRecord)
	assert.Nil(t, f.ProcessedAt, "one invitee is still pending")
	assert.Equal(t, "55", f.Invitees[0].PutCode)
	assert.Equal(t, "0000-0002-1825-0097", f.Invitees[0].ORCID)
	assert.NotNil(t, f.Invitees[0].ProcessedAt)
	assert.Contains(t, f.Status, "a@example.com: created")
	assert.Len(t, model.Units(f), 1)
}

func TestResetAndReactivate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	task := saveTask(t, s, model.KindFunding, fundingRecords())
	_, err := s.ActivateTask(ctx, admin, task.ID)
	require.NoError(t, err)

	require.NoError(t, s.ResetTask(ctx, admin, task.ID))
	pending, err := s.PendingRecords(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "records of a reset task wait for reactivation")

	recs, err := s.ListRecords(ctx, task.ID)
	require.NoError(t, err)
	now := time.Now()
	for _, rec := range recs {
		for _, u := range model.Units(rec) {
			u.MarkProcessed(now)
		}
		require.NoError(t, s.SaveOutcome(ctx, model.SystemActor, rec))
	}
	done, err := s.MarkCompletedIfDone(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, done)

	n, err := s.ReactivateRecords(ctx, admin, task.ID, recs[1].Base().ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted())
	assert.Equal(t, model.TaskStatusActive, got.Status)

	pending, err = s.PendingRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	f := pending[0].(*model.FundingRecord)
	assert.Equal(t, recs[1].Base().ID, f.ID)
	assert.Nil(t, f.Invitees[0].ProcessedAt)
}

func TestDeleteTask(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	task := saveTask(t, s, model.KindFunding, fundingRecords())
	keep := saveTask(t, s, model.KindAffiliation, affiliationRecords())

	require.NoError(t, s.DeleteTask(ctx, admin, task.ID))
	_, err := s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	db := conn.GormDB()
	var count int64
	require.NoError(t, db.Model(&model.Invitee{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.ExternalID{}).Where("record_type = ?", "funding").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.FundingRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	recs, err := s.ListRecords(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	assert.ErrorIs(t, s.DeleteTask(ctx, admin, task.ID), ErrNotFound)
}

func TestExport(t *testing.T) {
	s, _ := newTestStore(t)
	task := saveTask(t, s, model.KindFunding, fundingRecords())

	doc, err := s.Export(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "funding.csv", doc["filename"])
	assert.Equal(t, "funding", doc["type"])
	list, ok := doc["records"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestDirectoryLookups(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	db := conn.GormDB()

	org := model.Organisation{Name: "University", ClientID: "APP-1"}
	require.NoError(t, db.Create(&org).Error)
	user := model.User{Email: "Jane@Example.com", ORCID: "0000-0002-1825-0097", OrgID: org.ID}
	require.NoError(t, db.Create(&user).Error)

	u, err := s.FindUser(ctx, model.Person{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, u.ID)
	u, err = s.FindUser(ctx, model.Person{ORCID: "0000-0002-1825-0097"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, u.ID)
	_, err = s.FindUser(ctx, model.Person{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindUser(ctx, model.Person{})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane@Example.com", got.Email)

	o, err := s.FindOrganisation(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "APP-1", o.ClientID)

	older := model.Credential{UserID: user.ID, OrgID: org.ID, AccessToken: "old", CreatedAt: time.Now().Add(-time.Hour)}
	newer := model.Credential{UserID: user.ID, OrgID: org.ID, AccessToken: "new", CreatedAt: time.Now()}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)
	c, err := s.FindCredential(ctx, user.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", c.AccessToken)
	_, err = s.FindCredential(ctx, user.ID, org.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.LastInvitation(ctx, 1, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveInvitation(ctx, &model.Invitation{OrgID: 1, Email: "a@example.com", TokenID: "t1", SentAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, s.SaveInvitation(ctx, &model.Invitation{OrgID: 1, Email: "a@example.com", TokenID: "t2"}))

	inv, err := s.LastInvitation(ctx, 1, "A@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "t2", inv.TokenID)
	assert.False(t, inv.SentAt.IsZero())
}

func TestResolvePutCodeOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	saveTask(t, s, model.KindFunding, fundingRecords())

	recs := affiliationRecords()
	recs[0].Base().PutCode = "321"
	saveTask(t, s, model.KindAffiliation, recs)

	p, err := s.ResolvePutCodeOwner(ctx, 1, model.KindFunding, "9")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", p.Email)

	p, err = s.ResolvePutCodeOwner(ctx, 1, model.KindAffiliation, "321")
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", p.Email)

	_, err = s.ResolvePutCodeOwner(ctx, 2, model.KindFunding, "9")
	assert.ErrorIs(t, err, ErrNotFound)
}
