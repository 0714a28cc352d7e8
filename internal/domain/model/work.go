package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// WorkRecord is a publication or other research output written for each invitee.
type WorkRecord struct {
	RecordBase
	Title                   string        `gorm:"size:255" validate:"required"`
	Subtitle                string        `gorm:"size:255"`
	TranslatedTitle         string        `gorm:"size:255"`
	TranslatedTitleLanguage string        `gorm:"size:10"`
	JournalTitle            string        `gorm:"size:255"`
	ShortDescription        string        `gorm:"type:text"`
	CitationType            string        `gorm:"size:20"`
	CitationValue           string        `gorm:"type:text"`
	Type                    string        `gorm:"size:50" validate:"required,worktype"`
	PublicationDate         PartialDate   `gorm:"type:varchar(10)"`
	URL                     string        `gorm:"size:255"`
	LanguageCode            string        `gorm:"size:10"`
	Country                 string        `gorm:"size:2" validate:"omitempty,country"`
	ExternalIDs             []ExternalID  `gorm:"polymorphic:Record;polymorphicValue:work" validate:"dive"`
	Contributors            []Contributor `gorm:"polymorphic:Record;polymorphicValue:work" validate:"dive"`
	Invitees                []Invitee     `gorm:"polymorphic:Record;polymorphicValue:work" validate:"dive"`
}

func (WorkRecord) TableName() string { return KindWork.Table() }

func (r *WorkRecord) Kind() Kind      { return KindWork }
func (r *WorkRecord) Section() string { return "work" }

func (r *WorkRecord) MatchKey() []string { return []string{r.Title, r.Type} }

func (r *WorkRecord) GroupKey() string {
	return joinKey(append([]string{r.Title}, firstExternalIDKey(r.ExternalIDs)...)...)
}

func (r *WorkRecord) Children() Children {
	return Children{ExternalIDs: &r.ExternalIDs, Invitees: &r.Invitees, Contributors: &r.Contributors}
}

func (r *WorkRecord) Export() tree.Map {
	m := tree.Map{
		"title": tree.Map{
			"title":    tree.Value(r.Title),
			"subtitle": tree.Value(r.Subtitle),
			"translated-title": tree.Compact(tree.Map{
				"value":         r.TranslatedTitle,
				"language-code": r.TranslatedTitleLanguage,
			}),
		},
		"journal-title":     tree.Value(r.JournalTitle),
		"short-description": r.ShortDescription,
		"citation": tree.Compact(tree.Map{
			"citation-type":  r.CitationType,
			"citation-value": r.CitationValue,
		}),
		"type":             r.Type,
		"publication-date": r.PublicationDate.Tree(),
		"url":              tree.Value(r.URL),
		"language-code":    r.LanguageCode,
		"country":          tree.Value(r.Country),
		"external-ids":     exportExternalIDs(r.ExternalIDs),
		"contributors":     exportContributors(r.Contributors),
		"invitees":         exportInvitees(r.Invitees),
	}
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
