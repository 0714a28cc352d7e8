package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
	"github.com/tigerroll/recordhub/internal/support/tree"
	"github.com/tigerroll/recordhub/internal/tx"
)

func (s *GormStore) SaveTask(ctx context.Context, actor model.Actor, task *model.Task, records []model.Record, override bool) error {
	return tx.Run(ctx, s.tm, func(ctx context.Context) error {
		if override {
			existing, err := s.FindTaskByFilename(ctx, task.OrgID, task.Kind, task.Filename)
			switch {
			case err == nil:
				return s.ReplaceTask(ctx, actor, existing, task, records)
			case !errors.Is(err, ErrNotFound):
				return err
			}
		}
		return s.CreateTask(ctx, actor, task, records)
	})
}

func (s *GormStore) CreateTask(ctx context.Context, actor model.Actor, task *model.Task, records []model.Record) error {
	const op = "GormStore.CreateTask"
	task.CreatedBy = actor.UserID
	task.UpdatedBy = actor.UserID
	task.RecordCount = len(records)
	if ActiveCount(records) > 0 {
		now := s.now()
		task.Status = model.TaskStatusActive
		task.ActivatedAt = &now
	}
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		if err := s.db(ctx).Create(task).Error; err != nil {
			return err
		}
		return s.insertRecords(ctx, actor, task.ID, records)
	})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to create task '%s'", task.Filename), err, false)
	}
	logger.Infof("Created %s task %d '%s' with %d record(s) by %s.", task.Kind, task.ID, task.Filename, len(records), actor)
	return nil
}

// ReplaceTask swaps the records of existing for the given ones and resets its lifecycle.
// task receives the identity of existing.
func (s *GormStore) ReplaceTask(ctx context.Context, actor model.Actor, existing *model.Task, task *model.Task, records []model.Record) error {
	const op = "GormStore.ReplaceTask"
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		if err := s.deleteRecords(ctx, existing.ID, existing.Kind); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"is_raw":       task.IsRaw,
			"record_count": len(records),
			"status":       "",
			"activated_at": nil,
			"completed_at": nil,
			"updated_by":   actor.UserID,
		}
		if ActiveCount(records) > 0 {
			now := s.now()
			updates["status"] = model.TaskStatusActive
			updates["activated_at"] = &now
		}
		if err := s.db(ctx).Model(existing).Updates(updates).Error; err != nil {
			return err
		}
		return s.insertRecords(ctx, actor, existing.ID, records)
	})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to replace task %d", existing.ID), err, false)
	}
	reloaded, err := s.GetTask(ctx, existing.ID)
	if err != nil {
		return err
	}
	*task = *reloaded
	logger.Infof("Replaced records of %s task %d '%s' with %d record(s) by %s.", task.Kind, task.ID, task.Filename, len(records), actor)
	return nil
}

// ActiveCount returns how many of records are flagged active, as by a file's activation column.
func ActiveCount(records []model.Record) int {
	n := 0
	for _, rec := range records {
		if rec.Base().IsActive {
			n++
		}
	}
	return n
}

func (s *GormStore) insertRecords(ctx context.Context, actor model.Actor, taskID uint, records []model.Record) error {
	db := s.db(ctx)
	for _, rec := range records {
		base := rec.Base()
		base.ID = 0
		base.TaskID = taskID
		base.CreatedBy = actor.UserID
		base.UpdatedBy = actor.UserID
		resetChildren(rec.Children())
		if err := db.Create(rec).Error; err != nil {
			return fmt.Errorf("row %d: %w", base.Row, err)
		}
	}
	return nil
}

func resetChildren(ch model.Children) {
	if ch.ExternalIDs != nil {
		for i := range *ch.ExternalIDs {
			(*ch.ExternalIDs)[i].ID, (*ch.ExternalIDs)[i].RecordID = 0, 0
		}
	}
	if ch.Invitees != nil {
		for i := range *ch.Invitees {
			(*ch.Invitees)[i].ID, (*ch.Invitees)[i].RecordID = 0, 0
		}
	}
	if ch.Contributors != nil {
		for i := range *ch.Contributors {
			(*ch.Contributors)[i].ID, (*ch.Contributors)[i].RecordID = 0, 0
		}
	}
}

func (s *GormStore) deleteRecords(ctx context.Context, taskID uint, kind model.Kind) error {
	db := s.db(ctx)
	owned := db.Session(&gorm.Session{NewDB: true}).Table(kind.Table()).Select("id").Where("task_id = ?", taskID)
	for _, child := range []interface{}{&model.ExternalID{}, &model.Invitee{}, &model.Contributor{}} {
		err := db.Session(&gorm.Session{NewDB: true}).
			Where("record_type = ? AND record_id IN (?)", string(kind), owned).Delete(child).Error
		if err != nil {
			return err
		}
	}
	return db.Session(&gorm.Session{NewDB: true}).Where("task_id = ?", taskID).Delete(kind.NewRecord()).Error
}

func (s *GormStore) FindTaskByFilename(ctx context.Context, orgID uint, kind model.Kind, filename string) (*model.Task, error) {
	var t model.Task
	err := s.db(ctx).Where("org_id = ? AND kind = ? AND filename = ?", orgID, kind, filename).Order("id DESC").First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task '%s': %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, exception.NewBatchError("GormStore.FindTaskByFilename", "failed to find task", err, true)
	}
	return &t, nil
}

func (s *GormStore) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	var t model.Task
	err := s.db(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, exception.NewBatchError("GormStore.GetTask", fmt.Sprintf("failed to load task %d", id), err, true)
	}
	return &t, nil
}

// ActivateTask flags every unprocessed record of the task active and returns how many there are.
func (s *GormStore) ActivateTask(ctx context.Context, actor model.Actor, taskID uint) (int64, error) {
	const op = "GormStore.ActivateTask"
	var n int64
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		t, err := s.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		db := s.db(ctx)
		res := db.Model(t.Kind.NewRecord()).Where("task_id = ? AND processed_at IS NULL", taskID).
			Updates(map[string]interface{}{"is_active": true, "updated_by": actor.UserID})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		now := s.now()
		return db.Session(&gorm.Session{NewDB: true}).Model(t).Updates(map[string]interface{}{
			"status":       model.TaskStatusActive,
			"activated_at": &now,
			"updated_by":   actor.UserID,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, exception.NewBatchError(op, fmt.Sprintf("failed to activate task %d", taskID), err, true)
	}
	logger.Infof("Activated %d record(s) of task %d by %s.", n, taskID, actor)
	return n, nil
}

// ReactivateRecords restarts the lifecycle of the given records, or of every record
// of the task when none are given.
func (s *GormStore) ReactivateRecords(ctx context.Context, actor model.Actor, taskID uint, recordIDs ...uint) (int64, error) {
	const op = "GormStore.ReactivateRecords"
	var n int64
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		t, err := s.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		db := s.db(ctx)
		scope := func() *gorm.DB {
			q := db.Session(&gorm.Session{NewDB: true}).Table(t.Kind.Table()).Where("task_id = ?", taskID)
			if len(recordIDs) > 0 {
				q = q.Where("id IN ?", recordIDs)
			}
			return q
		}
		res := scope().Updates(map[string]interface{}{
			"is_active":    true,
			"processed_at": nil,
			"updated_by":   actor.UserID,
			"updated_at":   s.now(),
		})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		err = db.Session(&gorm.Session{NewDB: true}).Model(&model.Invitee{}).
			Where("record_type = ? AND record_id IN (?)", string(t.Kind), scope().Select("id")).
			Update("processed_at", nil).Error
		if err != nil {
			return err
		}
		return db.Session(&gorm.Session{NewDB: true}).Model(t).Updates(map[string]interface{}{
			"status":       model.TaskStatusActive,
			"completed_at": nil,
			"updated_by":   actor.UserID,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, exception.NewBatchError(op, fmt.Sprintf("failed to reactivate records of task %d", taskID), err, true)
	}
	logger.Infof("Reactivated %d record(s) of task %d by %s.", n, taskID, actor)
	return n, nil
}

// ResetTask marks the task for re-evaluation. Records keep their processed_at.
func (s *GormStore) ResetTask(ctx context.Context, actor model.Actor, taskID uint) error {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	err = s.db(ctx).Model(t).Updates(map[string]interface{}{"status": model.TaskStatusReset, "updated_by": actor.UserID}).Error
	if err != nil {
		return exception.NewBatchError("GormStore.ResetTask", fmt.Sprintf("failed to reset task %d", taskID), err, true)
	}
	logger.Infof("Task %d reset by %s.", taskID, actor)
	return nil
}

func (s *GormStore) MarkCompletedIfDone(ctx context.Context, taskID uint) (bool, error) {
	const op = "GormStore.MarkCompletedIfDone"
	kind, err := s.taskKind(ctx, taskID)
	if err != nil {
		return false, err
	}
	db := s.db(ctx)
	pending := db.Session(&gorm.Session{NewDB: true}).Table(kind.Table()).Select("1").
		Where("task_id = ? AND processed_at IS NULL", taskID)
	now := s.now()
	res := db.Model(&model.Task{}).
		Where("id = ? AND completed_at IS NULL AND NOT EXISTS (?)", taskID, pending).
		Updates(map[string]interface{}{"completed_at": &now})
	if res.Error != nil {
		return false, exception.NewBatchError(op, fmt.Sprintf("failed to complete task %d", taskID), res.Error, true)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) DeleteTask(ctx context.Context, actor model.Actor, taskID uint) error {
	const op = "GormStore.DeleteTask"
	err := tx.Run(ctx, s.tm, func(ctx context.Context) error {
		t, err := s.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.deleteRecords(ctx, taskID, t.Kind); err != nil {
			return err
		}
		return s.db(ctx).Delete(t).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete task %d", taskID), err, false)
	}
	logger.Infof("Task %d deleted by %s.", taskID, actor)
	return nil
}

// Export renders the task as a {filename, type, records} document the loader reads back.
func (s *GormStore) Export(ctx context.Context, taskID uint) (tree.Map, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	recs, err := s.ListRecords(ctx, taskID)
	if err != nil {
		return nil, err
	}
	list := make([]interface{}, 0, len(recs))
	for _, r := range recs {
		list = append(list, r.Export())
	}
	return tree.Map{
		"filename": t.Filename,
		"type":     string(t.Kind),
		"records":  list,
	}, nil
}
