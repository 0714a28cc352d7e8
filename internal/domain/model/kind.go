package model

import (
	"fmt"
	"strings"
)

// Kind tags the record family a Task holds.
type Kind string

const (
	KindAffiliation Kind = "affiliation"
	KindFunding     Kind = "funding"
	KindWork        Kind = "work"
	KindPeerReview  Kind = "peer_review"
	KindProperty    Kind = "property"
	KindOtherID     Kind = "other_id"
	KindResource    Kind = "resource"
)

// Kinds lists every record kind in a stable order.
var Kinds = []Kind{KindAffiliation, KindFunding, KindWork, KindPeerReview, KindProperty, KindOtherID, KindResource}

// ParseKind accepts the kind name in any case, with '-', '_' or ' ' separators.
func ParseKind(s string) (Kind, error) {
	n := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case "affiliation", "affiliations":
		return KindAffiliation, nil
	case "funding", "fundings":
		return KindFunding, nil
	case "work", "works":
		return KindWork, nil
	case "peer_review", "peer_reviews", "peerreview":
		return KindPeerReview, nil
	case "property", "properties", "researcher_url", "keyword", "other_name":
		return KindProperty, nil
	case "other_id", "other_ids", "external_identifier", "otherid":
		return KindOtherID, nil
	case "resource", "resources", "research_resource":
		return KindResource, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Table is the name of the table holding records of this kind.
func (k Kind) Table() string {
	return string(k) + "_records"
}

// MultiPerson reports whether records of this kind are written for a list of invitees
// rather than for a single subject person.
func (k Kind) MultiPerson() bool {
	switch k {
	case KindFunding, KindWork, KindPeerReview, KindResource:
		return true
	}
	return false
}

// WriteScope is the remote access scope needed to write records of this kind.
func (k Kind) WriteScope() string {
	switch k {
	case KindProperty, KindOtherID:
		return ScopePersonUpdate
	}
	return ScopeActivitiesUpdate
}

// NewRecord returns an empty record of this kind.
func (k Kind) NewRecord() Record {
	switch k {
	case KindAffiliation:
		return &AffiliationRecord{}
	case KindFunding:
		return &FundingRecord{}
	case KindWork:
		return &WorkRecord{}
	case KindPeerReview:
		return &PeerReviewRecord{}
	case KindProperty:
		return &PropertyRecord{}
	case KindOtherID:
		return &OtherIDRecord{}
	case KindResource:
		return &ResourceRecord{}
	}
	return nil
}
