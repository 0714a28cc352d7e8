package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// ResourceRecord is a research resource (facility, collection, infrastructure) granted to each invitee.
type ResourceRecord struct {
	RecordBase
	ProposalTitle            string       `gorm:"size:255" validate:"required"`
	ProposalStartDate        PartialDate  `gorm:"type:varchar(10)"`
	ProposalEndDate          PartialDate  `gorm:"type:varchar(10)"`
	ProposalURL              string       `gorm:"size:255"`
	HostName                 string       `gorm:"size:255"`
	HostCity                 string       `gorm:"size:100"`
	HostRegion               string       `gorm:"size:100"`
	HostCountry              string       `gorm:"size:2" validate:"omitempty,country"`
	HostDisambiguatedID      string       `gorm:"size:100"`
	HostDisambiguationSource string       `gorm:"size:100"`
	ResourceName             string       `gorm:"size:255"`
	ResourceType             string       `gorm:"size:50"`
	ExternalIDs              []ExternalID `gorm:"polymorphic:Record;polymorphicValue:resource" validate:"dive"`
	Invitees                 []Invitee    `gorm:"polymorphic:Record;polymorphicValue:resource" validate:"dive"`
}

func (ResourceRecord) TableName() string { return KindResource.Table() }

func (r *ResourceRecord) Kind() Kind         { return KindResource }
func (r *ResourceRecord) Section() string    { return "research-resource" }
func (r *ResourceRecord) MatchKey() []string { return []string{r.ProposalTitle} }

func (r *ResourceRecord) GroupKey() string {
	return joinKey(append([]string{r.ProposalTitle}, firstExternalIDKey(r.ExternalIDs)...)...)
}

func (r *ResourceRecord) Children() Children {
	return Children{ExternalIDs: &r.ExternalIDs, Invitees: &r.Invitees}
}

// Host returns the hosting organisation as an OrgRef.
func (r *ResourceRecord) Host() OrgRef {
	return OrgRef{
		OrgName:              r.HostName,
		City:                 r.HostCity,
		Region:               r.HostRegion,
		Country:              r.HostCountry,
		DisambiguatedID:      r.HostDisambiguatedID,
		DisambiguationSource: r.HostDisambiguationSource,
	}
}

func (r *ResourceRecord) Export() tree.Map {
	proposal := tree.Map{
		"title":        tree.Map{"title": tree.Value(r.ProposalTitle)},
		"external-ids": exportExternalIDs(r.ExternalIDs),
		"start-date":   r.ProposalStartDate.Tree(),
		"end-date":     r.ProposalEndDate.Tree(),
		"url":          tree.Value(r.ProposalURL),
	}
	if host := r.Host().Export(); len(host) > 0 {
		proposal["hosts"] = tree.Map{"organization": []interface{}{host}}
	}
	m := tree.Map{
		"proposal": tree.Compact(proposal),
		"invitees": exportInvitees(r.Invitees),
	}
	if item := tree.Compact(tree.Map{
		"resource-name": tree.Value(r.ResourceName),
		"resource-type": r.ResourceType,
	}); len(item) > 0 {
		m["resource-items"] = []interface{}{item}
	}
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
