package model

import "github.com/tigerroll/recordhub/internal/support/tree"

// OrgRef describes an organisation embedded in a record.
type OrgRef struct {
	OrgName              string `gorm:"size:255"`
	City                 string `gorm:"size:100"`
	Region               string `gorm:"size:100"`
	Country              string `gorm:"size:2" validate:"omitempty,country"`
	DisambiguatedID      string `gorm:"size:100"`
	DisambiguationSource string `gorm:"size:100"`
}

// Export renders {name, address{city, region, country}, disambiguated-organization{...}}.
func (o OrgRef) Export() tree.Map {
	return tree.Compact(tree.Map{
		"name": o.OrgName,
		"address": tree.Map{
			"city":    o.City,
			"region":  o.Region,
			"country": o.Country,
		},
		"disambiguated-organization": tree.Map{
			"disambiguated-organization-identifier": o.DisambiguatedID,
			"disambiguation-source":                 o.DisambiguationSource,
		},
	})
}

// FillFrom copies empty fields from an organisation profile.
func (o *OrgRef) FillFrom(org Organisation) {
	if o.OrgName == "" {
		o.OrgName = org.Name
	}
	if o.City == "" {
		o.City = org.City
	}
	if o.Region == "" {
		o.Region = org.Region
	}
	if o.Country == "" {
		o.Country = org.Country
	}
	if o.DisambiguatedID == "" && o.DisambiguationSource == "" {
		o.DisambiguatedID = org.DisambiguatedID
		o.DisambiguationSource = org.DisambiguationSource
	}
}
