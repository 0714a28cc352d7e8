package model

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/vocab"
)

type flagName struct {
	bit  uint16
	name string
	key  string
}

func formatFlags(v uint16, names []flagName) string {
	var parts []string
	for _, f := range names {
		if v&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ", ")
}

func lookupFlag(word string, names []flagName) (uint16, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	for _, f := range names {
		if w == strings.ToLower(f.name) || w == f.key {
			return f.bit, true
		}
	}
	return 0, false
}

func scanFlags(src interface{}) (uint16, error) {
	switch v := src.(type) {
	case nil:
		return 0, nil
	case int64:
		return uint16(v), nil
	case int:
		return uint16(v), nil
	case []byte:
		var n uint16
		_, err := fmt.Sscan(string(v), &n)
		return n, err
	case string:
		var n uint16
		_, err := fmt.Sscan(v, &n)
		return n, err
	}
	return 0, fmt.Errorf("cannot scan %T into a flag set", src)
}

// Affiliation is a set of affiliation sections.
type Affiliation uint16

const (
	AffiliationEducation Affiliation = 1 << iota
	AffiliationEmployment
	AffiliationDistinction
	AffiliationInvitedPosition
	AffiliationMembership
	AffiliationQualification
	AffiliationService

	AffiliationNone Affiliation = 0
)

var affiliationNames = []flagName{
	{uint16(AffiliationEducation), "Education", "education"},
	{uint16(AffiliationEmployment), "Employment", "employment"},
	{uint16(AffiliationDistinction), "Distinction", "distinction"},
	{uint16(AffiliationInvitedPosition), "Invited Position", "invited-position"},
	{uint16(AffiliationMembership), "Membership", "membership"},
	{uint16(AffiliationQualification), "Qualification", "qualification"},
	{uint16(AffiliationService), "Service", "service"},
}

// AffiliationForSection returns the flag for a remote section name such as "employment".
func AffiliationForSection(section string) (Affiliation, bool) {
	b, ok := lookupFlag(section, affiliationNames)
	return Affiliation(b), ok
}

// ParseAffiliation reads a comma separated list of section names or affiliation
// type words ("Education, Employment", "staff; student").
func ParseAffiliation(text string) (Affiliation, error) {
	var a Affiliation
	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' }) {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if section, ok := vocab.AffiliationSection(word); ok {
			word = section
		}
		b, ok := AffiliationForSection(word)
		if !ok {
			return AffiliationNone, fmt.Errorf("unknown affiliation %q", word)
		}
		a |= b
	}
	return a, nil
}

// Has reports whether every flag of o is in a.
func (a Affiliation) Has(o Affiliation) bool { return o != 0 && a&o == o }

// Union returns the flags present in either set.
func (a Affiliation) Union(o Affiliation) Affiliation { return a | o }

// Sections lists the remote section names of the set.
func (a Affiliation) Sections() []string {
	var out []string
	for _, f := range affiliationNames {
		if uint16(a)&f.bit != 0 {
			out = append(out, f.key)
		}
	}
	return out
}

// String renders the set as "Education, Employment".
func (a Affiliation) String() string { return formatFlags(uint16(a), affiliationNames) }

func (a Affiliation) Value() (driver.Value, error) { return int64(a), nil }

func (a *Affiliation) Scan(src interface{}) error {
	v, err := scanFlags(src)
	*a = Affiliation(v)
	return err
}

// Role is a set of hub user roles.
type Role uint16

const (
	RoleResearcher Role = 1 << iota
	RoleTechnical
	RoleAdmin
	RoleSuperuser

	RoleNone Role = 0
)

var roleNames = []flagName{
	{uint16(RoleResearcher), "Researcher", "researcher"},
	{uint16(RoleTechnical), "Technical Contact", "technical"},
	{uint16(RoleAdmin), "Admin", "admin"},
	{uint16(RoleSuperuser), "Superuser", "superuser"},
}

// ParseRole reads a comma separated list of role names.
func ParseRole(text string) (Role, error) {
	var r Role
	for _, word := range strings.Split(text, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		b, ok := lookupFlag(word, roleNames)
		if !ok {
			return RoleNone, fmt.Errorf("unknown role %q", word)
		}
		r |= Role(b)
	}
	return r, nil
}

func (r Role) Has(o Role) bool              { return o != 0 && r&o == o }
func (r Role) Union(o Role) Role            { return r | o }
func (r Role) String() string               { return formatFlags(uint16(r), roleNames) }
func (r Role) Value() (driver.Value, error) { return int64(r), nil }

func (r *Role) Scan(src interface{}) error {
	v, err := scanFlags(src)
	*r = Role(v)
	return err
}
