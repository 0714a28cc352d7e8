package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// AffiliationRecord is an education, employment or other affiliation of one person.
type AffiliationRecord struct {
	RecordBase
	Person
	OrgRef
	SectionName string       `gorm:"column:section;size:20" validate:"required,affsection"`
	Department  string       `gorm:"size:255"`
	RoleTitle   string       `gorm:"column:role;size:255"`
	StartDate   PartialDate  `gorm:"type:varchar(10)"`
	EndDate     PartialDate  `gorm:"type:varchar(10)"`
	URL         string       `gorm:"size:255"`
	ExternalIDs []ExternalID `gorm:"polymorphic:Record;polymorphicValue:affiliation" validate:"dive"`
}

func (AffiliationRecord) TableName() string { return KindAffiliation.Table() }

func (r *AffiliationRecord) Kind() Kind       { return KindAffiliation }
func (r *AffiliationRecord) Section() string  { return r.SectionName }
func (r *AffiliationRecord) Subject() *Person { return &r.Person }

func (r *AffiliationRecord) MatchKey() []string {
	return []string{r.StartDate.String(), r.Department, r.RoleTitle}
}

func (r *AffiliationRecord) GroupKey() string {
	return joinKey(r.Person.Key(), r.ORCID, r.SectionName, r.OrgName, r.Department, r.RoleTitle,
		r.StartDate.String(), r.EndDate.String(), r.PutCode, r.LocalID)
}

func (r *AffiliationRecord) Children() Children {
	return Children{ExternalIDs: &r.ExternalIDs}
}

func (r *AffiliationRecord) Export() tree.Map {
	m := tree.Map{
		"affiliation-type": r.SectionName,
		"department-name":  r.Department,
		"role-title":       r.RoleTitle,
		"start-date":       r.StartDate.Tree(),
		"end-date":         r.EndDate.Tree(),
		"organization":     r.OrgRef.Export(),
		"url":              tree.Value(r.URL),
		"external-ids":     exportExternalIDs(r.ExternalIDs),
	}
	r.Person.exportInto(m)
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
