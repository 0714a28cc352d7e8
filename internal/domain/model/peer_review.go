package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// PeerReviewRecord is a review activity written for each invitee.
type PeerReviewRecord struct {
	RecordBase
	ReviewGroupID               string       `gorm:"size:255" validate:"required"`
	ReviewerRole                string       `gorm:"size:20" validate:"omitempty,reviewrole"`
	ReviewURL                   string       `gorm:"size:255"`
	ReviewType                  string       `gorm:"size:20" validate:"omitempty,reviewtype"`
	CompletionDate              PartialDate  `gorm:"type:varchar(10)"`
	SubjectExternalIDType       string       `gorm:"size:50" validate:"omitempty,extidtype"`
	SubjectExternalIDValue      string       `gorm:"size:255"`
	SubjectExternalIDURL        string       `gorm:"size:255"`
	SubjectExternalIDRelation   string       `gorm:"column:subject_external_id_relationship;size:20" validate:"omitempty,relationship"`
	SubjectContainerName        string       `gorm:"size:255"`
	SubjectType                 string       `gorm:"size:50"`
	SubjectTitle                string       `gorm:"size:255"`
	SubjectURL                  string       `gorm:"size:255"`
	ConveningOrgName            string       `gorm:"size:255"`
	ConveningOrgCity            string       `gorm:"size:100"`
	ConveningOrgRegion          string       `gorm:"size:100"`
	ConveningOrgCountry         string       `gorm:"size:2" validate:"omitempty,country"`
	ConveningOrgDisambiguatedID string       `gorm:"size:100"`
	ConveningOrgDisambiguation  string       `gorm:"column:convening_org_disambiguation_source;size:100"`
	ExternalIDs                 []ExternalID `gorm:"polymorphic:Record;polymorphicValue:peer_review" validate:"dive"`
	Invitees                    []Invitee    `gorm:"polymorphic:Record;polymorphicValue:peer_review" validate:"dive"`
}

func (PeerReviewRecord) TableName() string { return KindPeerReview.Table() }

func (r *PeerReviewRecord) Kind() Kind      { return KindPeerReview }
func (r *PeerReviewRecord) Section() string { return "peer-review" }

func (r *PeerReviewRecord) MatchKey() []string {
	return []string{r.ReviewGroupID, r.ReviewType, r.CompletionDate.String()}
}

func (r *PeerReviewRecord) GroupKey() string {
	return joinKey(append([]string{r.ReviewGroupID}, firstExternalIDKey(r.ExternalIDs)...)...)
}

func (r *PeerReviewRecord) Children() Children {
	return Children{ExternalIDs: &r.ExternalIDs, Invitees: &r.Invitees}
}

// ConveningOrg returns the convening organisation as an OrgRef.
func (r *PeerReviewRecord) ConveningOrg() OrgRef {
	return OrgRef{
		OrgName:              r.ConveningOrgName,
		City:                 r.ConveningOrgCity,
		Region:               r.ConveningOrgRegion,
		Country:              r.ConveningOrgCountry,
		DisambiguatedID:      r.ConveningOrgDisambiguatedID,
		DisambiguationSource: r.ConveningOrgDisambiguation,
	}
}

func (r *PeerReviewRecord) Export() tree.Map {
	subject := ExternalID{
		Type:         r.SubjectExternalIDType,
		Value:        r.SubjectExternalIDValue,
		URL:          r.SubjectExternalIDURL,
		Relationship: r.SubjectExternalIDRelation,
	}
	m := tree.Map{
		"reviewer-role":               r.ReviewerRole,
		"review-identifiers":          exportExternalIDs(r.ExternalIDs),
		"review-url":                  tree.Value(r.ReviewURL),
		"review-type":                 r.ReviewType,
		"review-completion-date":      r.CompletionDate.Tree(),
		"review-group-id":             r.ReviewGroupID,
		"subject-external-identifier": subject.Export(),
		"subject-container-name":      tree.Value(r.SubjectContainerName),
		"subject-type":                r.SubjectType,
		"subject-name":                tree.Map{"title": tree.Value(r.SubjectTitle)},
		"subject-url":                 tree.Value(r.SubjectURL),
		"convening-organization":      r.ConveningOrg().Export(),
		"invitees":                    exportInvitees(r.Invitees),
	}
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
