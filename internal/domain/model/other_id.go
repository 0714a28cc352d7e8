package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// OtherIDRecord is a person identifier (Scopus author id, ResearcherID, ...) of one person.
type OtherIDRecord struct {
	RecordBase
	Person
	Type         string `gorm:"size:50" validate:"required"`
	Value        string `gorm:"size:255" validate:"required"`
	URL          string `gorm:"size:255"`
	Relationship string `gorm:"size:20" validate:"omitempty,relationship"`
	DisplayIndex int
}

func (OtherIDRecord) TableName() string { return KindOtherID.Table() }

func (r *OtherIDRecord) Kind() Kind         { return KindOtherID }
func (r *OtherIDRecord) Section() string    { return "external-identifier" }
func (r *OtherIDRecord) Subject() *Person   { return &r.Person }
func (r *OtherIDRecord) MatchKey() []string { return []string{r.Type, r.Value} }
func (r *OtherIDRecord) GroupKey() string   { return "" }
func (r *OtherIDRecord) Children() Children { return Children{} }

func (r *OtherIDRecord) Export() tree.Map {
	m := tree.Map{
		"external-id-type":         r.Type,
		"external-id-value":        r.Value,
		"external-id-url":          tree.Value(r.URL),
		"external-id-relationship": r.Relationship,
	}
	if r.DisplayIndex != 0 {
		m["display-index"] = r.DisplayIndex
	}
	r.Person.exportInto(m)
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
