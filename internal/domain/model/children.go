package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/support/tree"
)

// ExternalID is an identifier attached to a record.
type ExternalID struct {
	ID           uint   `gorm:"primaryKey"`
	RecordType   string `gorm:"size:20;index:idx_external_ids_owner"`
	RecordID     uint   `gorm:"index:idx_external_ids_owner"`
	Type         string `gorm:"size:50" validate:"required,extidtype"`
	Value        string `gorm:"size:255" validate:"required"`
	URL          string `gorm:"size:255"`
	Relationship string `gorm:"size:20" validate:"omitempty,relationship"`
}

func (ExternalID) TableName() string { return "external_ids" }

// Tuple is the structural identity of the identifier within its record.
func (e ExternalID) Tuple() string { return joinKey(e.Type, e.Value, e.URL, e.Relationship) }

func (e *ExternalID) AfterSave(tx *gorm.DB) error {
	return touchOwnerTask(tx, e.RecordType, e.RecordID)
}

func (e ExternalID) Export() tree.Map {
	return tree.Compact(tree.Map{
		"external-id-type":         e.Type,
		"external-id-value":        e.Value,
		"external-id-url":          tree.Value(e.URL),
		"external-id-relationship": e.Relationship,
	})
}

func exportExternalIDs(ids []ExternalID) tree.Map {
	if len(ids) == 0 {
		return nil
	}
	list := make([]interface{}, 0, len(ids))
	for _, e := range ids {
		list = append(list, e.Export())
	}
	return tree.Map{"external-id": list}
}

// Invitee is a person a multi-person record is written for. Each invitee is written
// to its own remote record, so it carries its own put-code and outcome.
type Invitee struct {
	ID          uint   `gorm:"primaryKey"`
	RecordType  string `gorm:"size:20;index:idx_invitees_owner"`
	RecordID    uint   `gorm:"index:idx_invitees_owner"`
	Person      `gorm:"embedded"`
	Identifier  string `gorm:"size:255"`
	PutCode     string `gorm:"size:20"`
	Visibility  string `gorm:"size:20" validate:"omitempty,visibility"`
	Status      string `gorm:"type:text"`
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Invitee) TableName() string { return "invitees" }

// Tuple is the structural identity of the invitee within its record.
func (i Invitee) Tuple() string {
	return joinKey(i.Key(), i.ORCID, i.FirstName, i.LastName, i.Identifier, i.PutCode, i.Visibility)
}

func (i *Invitee) AfterSave(tx *gorm.DB) error { return touchOwnerTask(tx, i.RecordType, i.RecordID) }

func (i Invitee) Export() tree.Map {
	m := tree.Map{
		"identifier": i.Identifier,
		"put-code":   i.PutCode,
		"visibility": i.Visibility,
	}
	i.Person.exportInto(m)
	return tree.Compact(m)
}

func exportInvitees(list []Invitee) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, i := range list {
		out = append(out, i.Export())
	}
	return out
}

// Contributor is a co-author or co-investigator listed on a funding or work.
type Contributor struct {
	ID         uint   `gorm:"primaryKey"`
	RecordType string `gorm:"size:20;index:idx_contributors_owner"`
	RecordID   uint   `gorm:"index:idx_contributors_owner"`
	Email      string `gorm:"size:255" validate:"omitempty,email"`
	ORCID      string `gorm:"column:orcid;size:19" validate:"omitempty,orcid"`
	Name       string `gorm:"size:255"`
	Role       string `gorm:"size:50" validate:"omitempty,contribrole"`
	Sequence   string `gorm:"size:20"`
}

func (Contributor) TableName() string { return "contributors" }

// Tuple is the structural identity of the contributor within its record.
func (c Contributor) Tuple() string { return joinKey(c.Email, c.ORCID, c.Name, c.Role, c.Sequence) }

func (c *Contributor) AfterSave(tx *gorm.DB) error {
	return touchOwnerTask(tx, c.RecordType, c.RecordID)
}

func (c Contributor) Export() tree.Map {
	m := tree.Map{
		"credit-name":       tree.Value(c.Name),
		"contributor-email": tree.Value(c.Email),
		"contributor-attributes": tree.Compact(tree.Map{
			"contributor-role":     c.Role,
			"contributor-sequence": c.Sequence,
		}),
	}
	if c.ORCID != "" {
		m["contributor-orcid"] = tree.Map{"path": c.ORCID}
	}
	return tree.Compact(m)
}

func exportContributors(list []Contributor) tree.Map {
	if len(list) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(list))
	for _, c := range list {
		out = append(out, c.Export())
	}
	return tree.Map{"contributor": out}
}
