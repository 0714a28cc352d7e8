package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// FundingRecord is a grant, contract or award written for each of its invitees.
type FundingRecord struct {
	RecordBase
	OrgRef
	Title                   string        `gorm:"size:255" validate:"required"`
	TranslatedTitle         string        `gorm:"size:255"`
	TranslatedTitleLanguage string        `gorm:"size:10"`
	Type                    string        `gorm:"size:20" validate:"required,fundingtype"`
	OrgDefinedType          string        `gorm:"size:255"`
	Description             string        `gorm:"type:text"`
	Amount                  string        `gorm:"size:50"`
	Currency                string        `gorm:"size:3" validate:"omitempty,len=3"`
	URL                     string        `gorm:"size:255"`
	StartDate               PartialDate   `gorm:"type:varchar(10)"`
	EndDate                 PartialDate   `gorm:"type:varchar(10)"`
	ExternalIDs             []ExternalID  `gorm:"polymorphic:Record;polymorphicValue:funding" validate:"dive"`
	Contributors            []Contributor `gorm:"polymorphic:Record;polymorphicValue:funding" validate:"dive"`
	Invitees                []Invitee     `gorm:"polymorphic:Record;polymorphicValue:funding" validate:"dive"`
}

func (FundingRecord) TableName() string { return KindFunding.Table() }

func (r *FundingRecord) Kind() Kind      { return KindFunding }
func (r *FundingRecord) Section() string { return "funding" }

func (r *FundingRecord) MatchKey() []string {
	return []string{r.Title, r.Type, r.OrgName}
}

func (r *FundingRecord) GroupKey() string {
	return joinKey(append([]string{r.Title}, firstExternalIDKey(r.ExternalIDs)...)...)
}

func (r *FundingRecord) Children() Children {
	return Children{ExternalIDs: &r.ExternalIDs, Invitees: &r.Invitees, Contributors: &r.Contributors}
}

func (r *FundingRecord) Export() tree.Map {
	m := tree.Map{
		"type":                      r.Type,
		"organization-defined-type": tree.Value(r.OrgDefinedType),
		"title": tree.Map{
			"title": tree.Value(r.Title),
			"translated-title": tree.Compact(tree.Map{
				"value":         r.TranslatedTitle,
				"language-code": r.TranslatedTitleLanguage,
			}),
		},
		"short-description": r.Description,
		"amount": tree.Compact(tree.Map{
			"value":         r.Amount,
			"currency-code": r.Currency,
		}),
		"url":          tree.Value(r.URL),
		"start-date":   r.StartDate.Tree(),
		"end-date":     r.EndDate.Tree(),
		"organization": r.OrgRef.Export(),
		"external-ids": exportExternalIDs(r.ExternalIDs),
		"contributors": exportContributors(r.Contributors),
		"invitees":     exportInvitees(r.Invitees),
	}
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}

// firstExternalIDKey returns type, value and relationship of the first identifier,
// which is what a single source row carries.
func firstExternalIDKey(ids []ExternalID) []string {
	if len(ids) == 0 {
		return []string{"", "", ""}
	}
	return []string{ids[0].Type, ids[0].Value, ids[0].Relationship}
}
