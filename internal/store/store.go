// Package store persists tasks, records and the directory entities they reference.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/tree"
	"github.com/tigerroll/recordhub/internal/tx"
)

// ErrNotFound is returned when a looked up entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the ingestion and processing pipeline.
// Every mutating operation takes the acting user explicitly.
type Store interface {
	// SaveTask persists a loaded task in one transaction. With override set, an
	// existing task of the same organisation, kind and filename is replaced.
	SaveTask(ctx context.Context, actor model.Actor, task *model.Task, records []model.Record, override bool) error
	CreateTask(ctx context.Context, actor model.Actor, task *model.Task, records []model.Record) error
	ReplaceTask(ctx context.Context, actor model.Actor, existing *model.Task, task *model.Task, records []model.Record) error
	FindTaskByFilename(ctx context.Context, orgID uint, kind model.Kind, filename string) (*model.Task, error)
	GetTask(ctx context.Context, id uint) (*model.Task, error)
	ListRecords(ctx context.Context, taskID uint) ([]model.Record, error)
	UnprocessedRecords(ctx context.Context, taskID uint) ([]model.Record, error)
	// PendingRecords returns up to budget active, unprocessed records across all tasks, oldest first.
	PendingRecords(ctx context.Context, budget int) ([]model.Record, error)
	CompletedFraction(ctx context.Context, taskID uint) (float64, error)
	ErrorFraction(ctx context.Context, taskID uint) (float64, error)
	// SaveOutcome commits the processing outcome of one record and its invitees.
	SaveOutcome(ctx context.Context, actor model.Actor, rec model.Record) error
	ActivateTask(ctx context.Context, actor model.Actor, taskID uint) (int64, error)
	ReactivateRecords(ctx context.Context, actor model.Actor, taskID uint, recordIDs ...uint) (int64, error)
	ResetTask(ctx context.Context, actor model.Actor, taskID uint) error
	// MarkCompletedIfDone sets completed_at once no record is pending. It reports
	// true only for the call that set it.
	MarkCompletedIfDone(ctx context.Context, taskID uint) (bool, error)
	DeleteTask(ctx context.Context, actor model.Actor, taskID uint) error
	Export(ctx context.Context, taskID uint) (tree.Map, error)

	FindUser(ctx context.Context, p model.Person) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	FindOrganisation(ctx context.Context, id uint) (*model.Organisation, error)
	FindCredential(ctx context.Context, userID, orgID uint) (*model.Credential, error)
	LastInvitation(ctx context.Context, orgID uint, email string) (*model.Invitation, error)
	SaveInvitation(ctx context.Context, inv *model.Invitation) error
	// ResolvePutCodeOwner finds the person an earlier record of the organisation wrote put-code for.
	ResolvePutCodeOwner(ctx context.Context, orgID uint, kind model.Kind, putCode string) (*model.Person, error)
}

// GormStore implements Store with gorm.
type GormStore struct {
	conn database.DBConnection
	tm   tx.TransactionManager
	now  func() time.Time
}

// NewStore creates a Store over the connection.
func NewStore(conn database.DBConnection, tm tx.TransactionManager) *GormStore {
	return &GormStore{conn: conn, tm: tm, now: time.Now}
}

var _ Store = (*GormStore)(nil)
