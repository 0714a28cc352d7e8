package model

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/support/tree"
)

// StatusError marks a status line describing a failure.
const StatusError = "ERROR"

// Person identifies the subject of a record or an invitee.
type Person struct {
	Email     string `gorm:"size:255;index" validate:"omitempty,email"`
	ORCID     string `gorm:"column:orcid;size:19;index" validate:"omitempty,orcid"`
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
}

// Key is the grouping key of a person: the lower-cased e-mail, else the ORCID iD.
func (p Person) Key() string {
	if e := strings.ToLower(strings.TrimSpace(p.Email)); e != "" {
		return e
	}
	return strings.TrimSpace(p.ORCID)
}

// IsEmpty reports whether neither e-mail nor ORCID iD is known.
func (p Person) IsEmpty() bool { return p.Key() == "" }

func (p Person) exportInto(m tree.Map) {
	m["email"] = p.Email
	m["orcid"] = p.ORCID
	m["first-name"] = p.FirstName
	m["last-name"] = p.LastName
}

// RecordBase holds the fields shared by every record kind.
type RecordBase struct {
	ID          uint   `gorm:"primaryKey"`
	TaskID      uint   `gorm:"index;not null"`
	Row         int    `gorm:"column:row_no"`
	LocalID     string `gorm:"size:255"`
	PutCode     string `gorm:"size:20"`
	Visibility  string `gorm:"size:20" validate:"omitempty,visibility"`
	IsDeletion  bool
	IsActive    bool       `gorm:"index"`
	ProcessedAt *time.Time `gorm:"index"`
	Status      string     `gorm:"type:text"`
	CreatedBy   uint
	UpdatedBy   uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Base returns the shared fields. It lets every variant satisfy Record.
func (b *RecordBase) Base() *RecordBase { return b }

// AppendStatus adds one line to the status log.
func (b *RecordBase) AppendStatus(line string) {
	b.Status = appendLine(b.Status, line)
}

// HasError reports whether any status line records a failure.
func (b *RecordBase) HasError() bool { return strings.Contains(b.Status, StatusError) }

// AfterSave refreshes the owning task's updated_at.
func (b *RecordBase) AfterSave(tx *gorm.DB) error {
	if b.TaskID == 0 {
		return nil
	}
	return tx.Model(&Task{}).Where("id = ?", b.TaskID).UpdateColumn("updated_at", time.Now()).Error
}

func (b *RecordBase) exportInto(m tree.Map) {
	m["put-code"] = b.PutCode
	m["visibility"] = b.Visibility
	m["local-id"] = b.LocalID
	if b.IsActive {
		m["is-active"] = true
	}
	if b.IsDeletion {
		m["delete"] = true
	}
}

func appendLine(log, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return log
	}
	if log == "" {
		return line
	}
	return log + "\n" + line
}

// Children exposes the child collections of a record. Nil entries are not supported by the kind.
type Children struct {
	ExternalIDs  *[]ExternalID
	Invitees     *[]Invitee
	Contributors *[]Contributor
}

// Record is implemented by every record variant.
type Record interface {
	Kind() Kind
	Base() *RecordBase
	// Section is the remote section the record is written to.
	Section() string
	// MatchKey lists the identity-defining field values compared during reconciliation.
	MatchKey() []string
	// GroupKey is the parent identity used to merge contiguous rows; "" disables merging.
	GroupKey() string
	Children() Children
	// Export renders the record in the nested remote shape, including local-only keys.
	Export() tree.Map
}

// PersonRecord is a record written to a single subject person.
type PersonRecord interface {
	Record
	Subject() *Person
}

// touchOwnerTask refreshes the task that owns the record a child is attached to.
func touchOwnerTask(tx *gorm.DB, recordType string, recordID uint) error {
	kind := Kind(recordType)
	if recordID == 0 || kind.NewRecord() == nil {
		return nil
	}
	owner := tx.Table(kind.Table()).Select("task_id").Where("id = ?", recordID)
	return tx.Model(&Task{}).Where("id = (?)", owner).UpdateColumn("updated_at", time.Now()).Error
}

func joinKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "\x1f")
}
