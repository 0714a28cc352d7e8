package model

import "time"

// Task statuses.
const (
	TaskStatusActive = "ACTIVE"
	TaskStatusReset  = "RESET"
)

// Task is one uploaded batch. It owns records of a single kind.
// CompletedAt is set once every owned record has a ProcessedAt.
type Task struct {
	ID          uint   `gorm:"primaryKey"`
	OrgID       uint   `gorm:"index;not null"`
	Kind        Kind   `gorm:"type:varchar(20);index;not null"`
	Filename    string `gorm:"size:255;index"`
	Status      string `gorm:"size:10"`
	IsRaw       bool
	RecordCount int
	CreatedBy   uint
	UpdatedBy   uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ActivatedAt *time.Time
	CompletedAt *time.Time
}

func (Task) TableName() string { return "tasks" }

// IsCompleted reports whether the task has been marked complete.
func (t Task) IsCompleted() bool { return t.CompletedAt != nil }
