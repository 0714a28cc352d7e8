package model

import (
	"strings"

	"github.com/tigerroll/recordhub/internal/support/tree"
)

// Researcher property types.
const (
	PropertyURL     = "URL"
	PropertyName    = "NAME"
	PropertyKeyword = "KEYWORD"
	PropertyCountry = "COUNTRY"
)

// PropertyRecord is a researcher URL, other name, keyword or country of one person.
type PropertyRecord struct {
	RecordBase
	Person
	Type         string `gorm:"size:20" validate:"required,proptype"`
	Name         string `gorm:"size:255"`
	Value        string `gorm:"size:255" validate:"required"`
	DisplayIndex int
}

func (PropertyRecord) TableName() string { return KindProperty.Table() }

func (r *PropertyRecord) Kind() Kind       { return KindProperty }
func (r *PropertyRecord) Subject() *Person { return &r.Person }

func (r *PropertyRecord) Section() string {
	switch strings.ToUpper(r.Type) {
	case PropertyURL:
		return "researcher-url"
	case PropertyKeyword:
		return "keyword"
	case PropertyCountry:
		return "address"
	}
	return "other-name"
}

func (r *PropertyRecord) MatchKey() []string {
	if strings.ToUpper(r.Type) == PropertyURL {
		return []string{r.Name, r.Value}
	}
	return []string{r.Value}
}

func (r *PropertyRecord) GroupKey() string   { return "" }
func (r *PropertyRecord) Children() Children { return Children{} }

func (r *PropertyRecord) Export() tree.Map {
	m := tree.Map{"type": r.Type}
	switch strings.ToUpper(r.Type) {
	case PropertyURL:
		m["url-name"] = r.Name
		m["url"] = tree.Value(r.Value)
	case PropertyCountry:
		m["country"] = tree.Value(r.Value)
	default:
		m["content"] = r.Value
	}
	if r.DisplayIndex != 0 {
		m["display-index"] = r.DisplayIndex
	}
	r.Person.exportInto(m)
	r.RecordBase.exportInto(m)
	return tree.Compact(m)
}
