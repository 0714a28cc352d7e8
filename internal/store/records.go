package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/tx"
)

const moduleName = "store"

// find loads rows of one record type into the Record interface.
func find[T any, P interface {
	*T
	model.Record
}](db *gorm.DB) ([]model.Record, error) {
	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Record, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

// preload adds the child collections of kind, each ordered by id.
func preload(db *gorm.DB, kind model.Kind) *gorm.DB {
	byID := func(q *gorm.DB) *gorm.DB { return q.Order("id") }
	ch := kind.NewRecord().Children()
	if ch.ExternalIDs != nil {
		db = db.Preload("ExternalIDs", byID)
	}
	if ch.Invitees != nil {
		db = db.Preload("Invitees", byID)
	}
	if ch.Contributors != nil {
		db = db.Preload("Contributors", byID)
	}
	return db
}

func findRecords(db *gorm.DB, kind model.Kind) ([]model.Record, error) {
	db = preload(db, kind)
	switch kind {
	case model.KindAffiliation:
		return find[model.AffiliationRecord](db)
	case model.KindFunding:
		return find[model.FundingRecord](db)
	case model.KindWork:
		return find[model.WorkRecord](db)
	case model.KindPeerReview:
		return find[model.PeerReviewRecord](db)
	case model.KindProperty:
		return find[model.PropertyRecord](db)
	case model.KindOtherID:
		return find[model.OtherIDRecord](db)
	case model.KindResource:
		return find[model.ResourceRecord](db)
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return tx.DB(ctx, s.conn.GormDB())
}

func (s *GormStore) taskKind(ctx context.Context, taskID uint) (model.Kind, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	return t.Kind, nil
}

func (s *GormStore) ListRecords(ctx context.Context, taskID uint) ([]model.Record, error) {
	const op = "GormStore.ListRecords"
	kind, err := s.taskKind(ctx, taskID)
	if err != nil {
		return nil, err
	}
	recs, err := findRecords(s.db(ctx).Where("task_id = ?", taskID).Order("id"), kind)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to list records of task %d", taskID), err, true)
	}
	return recs, nil
}

func (s *GormStore) UnprocessedRecords(ctx context.Context, taskID uint) ([]model.Record, error) {
	const op = "GormStore.UnprocessedRecords"
	kind, err := s.taskKind(ctx, taskID)
	if err != nil {
		return nil, err
	}
	q := s.db(ctx).Where("task_id = ? AND is_active = ? AND processed_at IS NULL", taskID, true).Order("id")
	recs, err := findRecords(q, kind)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to load unprocessed records of task %d", taskID), err, true)
	}
	return recs, nil
}

// PendingRecords scans every record table. Records of tasks in RESET status wait for
// re-activation and are skipped. Ordering is by updated_at, so a record whose outcome
// was saved without being processed moves to the back of the queue.
func (s *GormStore) PendingRecords(ctx context.Context, budget int) ([]model.Record, error) {
	const op = "GormStore.PendingRecords"
	if budget <= 0 {
		return nil, nil
	}
	db := s.db(ctx)
	eligible := db.Session(&gorm.Session{NewDB: true}).Model(&model.Task{}).Select("id").
		Where("status IS NULL OR status <> ?", model.TaskStatusReset)
	var all []model.Record
	for _, kind := range model.Kinds {
		q := db.Session(&gorm.Session{NewDB: true}).
			Where("is_active = ? AND processed_at IS NULL AND task_id IN (?)", true, eligible).
			Order("updated_at, id").Limit(budget)
		recs, err := findRecords(q, kind)
		if err != nil {
			return nil, exception.NewBatchError(op, fmt.Sprintf("failed to scan pending %s records", kind), err, true)
		}
		all = append(all, recs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].Base(), all[j].Base()
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	if len(all) > budget {
		all = all[:budget]
	}
	return all, nil
}

func (s *GormStore) fraction(ctx context.Context, op string, taskID uint, where string, args ...interface{}) (float64, error) {
	kind, err := s.taskKind(ctx, taskID)
	if err != nil {
		return 0, err
	}
	db := s.db(ctx)
	var total, matched int64
	if err := db.Table(kind.Table()).Where("task_id = ?", taskID).Count(&total).Error; err != nil {
		return 0, exception.NewBatchError(op, "failed to count records", err, true)
	}
	if total == 0 {
		return 0, nil
	}
	q := db.Session(&gorm.Session{NewDB: true}).Table(kind.Table()).Where("task_id = ?", taskID).Where(where, args...)
	if err := q.Count(&matched).Error; err != nil {
		return 0, exception.NewBatchError(op, "failed to count records", err, true)
	}
	return float64(matched) / float64(total), nil
}

func (s *GormStore) CompletedFraction(ctx context.Context, taskID uint) (float64, error) {
	return s.fraction(ctx, "GormStore.CompletedFraction", taskID, "processed_at IS NOT NULL")
}

func (s *GormStore) ErrorFraction(ctx context.Context, taskID uint) (float64, error) {
	return s.fraction(ctx, "GormStore.ErrorFraction", taskID, "status LIKE ?", "%"+model.StatusError+"%")
}

// SaveOutcome writes the processing columns of the record and each of its invitees.
func (s *GormStore) SaveOutcome(ctx context.Context, actor model.Actor, rec model.Record) error {
	const op = "GormStore.SaveOutcome"
	base := rec.Base()
	base.UpdatedBy = actor.UserID
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		db := s.db(ctx)
		cols := []string{"put_code", "status", "processed_at", "is_active", "updated_by", "updated_at"}
		if _, ok := rec.(model.PersonRecord); ok {
			cols = append(cols, "orcid")
		}
		if err := db.Model(rec).Select(cols).Updates(rec).Error; err != nil {
			return err
		}
		if ch := rec.Children(); ch.Invitees != nil {
			for i := range *ch.Invitees {
				inv := &(*ch.Invitees)[i]
				if inv.ID == 0 {
					continue
				}
				err := db.Session(&gorm.Session{NewDB: true}).Model(inv).
					Select("put_code", "status", "processed_at", "orcid", "updated_at").Updates(inv).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save outcome of %s record %d", rec.Kind(), base.ID), err, true)
	}
	return nil
}
