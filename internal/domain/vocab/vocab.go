// Package vocab holds the closed vocabularies used to normalize and validate records.
//
// The tables are parsed once from an embedded YAML document and are immutable afterwards;
// callers only ever look values up.
package vocab

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var rawTables []byte

type tableFile struct {
	Visibilities        []string            `yaml:"visibilities"`
	ExternalIDTypes     []string            `yaml:"external_id_types"`
	Relationships       []string            `yaml:"relationships"`
	FundingTypes        []string            `yaml:"funding_types"`
	WorkTypes           []string            `yaml:"work_types"`
	ReviewRoles         []string            `yaml:"review_roles"`
	ReviewTypes         []string            `yaml:"review_types"`
	PropertyTypes       []string            `yaml:"property_types"`
	ContributorRoles    []string            `yaml:"contributor_roles"`
	AffiliationSections map[string][]string `yaml:"affiliation_sections"`
	CountryAliases      map[string]string   `yaml:"country_aliases"`
}

// Set is an immutable vocabulary. Lookups ignore case, spaces, '-' and '_'.
type Set struct {
	name   string
	values []string
	canon  map[string]string
}

func newSet(name string, values []string) Set {
	s := Set{name: name, canon: make(map[string]string, len(values))}
	for _, v := range values {
		s.canon[fold(v)] = v
		s.values = append(s.values, v)
	}
	sort.Strings(s.values)
	return s
}

var folder = cases.Fold()

func fold(v string) string {
	v = folder.String(strings.TrimSpace(v))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
}

// Name returns the vocabulary name used in error messages.
func (s Set) Name() string { return s.name }

// Normalize returns the canonical spelling of v.
func (s Set) Normalize(v string) (string, bool) {
	c, ok := s.canon[fold(v)]
	return c, ok
}

// Contains reports whether v belongs to the vocabulary.
func (s Set) Contains(v string) bool {
	_, ok := s.Normalize(v)
	return ok
}

// Values returns a sorted copy of the canonical values.
func (s Set) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

type tables struct {
	visibilities     Set
	externalIDTypes  Set
	relationships    Set
	fundingTypes     Set
	workTypes        Set
	reviewRoles      Set
	reviewTypes      Set
	propertyTypes    Set
	contributorRoles Set
	sections         map[string]string
	countries        countryTable
}

var (
	loadOnce sync.Once
	loaded   *tables
)

func get() *tables {
	loadOnce.Do(func() {
		t, err := parse(rawTables)
		if err != nil {
			panic(fmt.Sprintf("vocab: embedded tables are invalid: %v", err))
		}
		loaded = t
	})
	return loaded
}

func parse(data []byte) (*tables, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	t := &tables{
		visibilities:     newSet("visibility", f.Visibilities),
		externalIDTypes:  newSet("external-id type", f.ExternalIDTypes),
		relationships:    newSet("relationship", f.Relationships),
		fundingTypes:     newSet("funding type", f.FundingTypes),
		workTypes:        newSet("work type", f.WorkTypes),
		reviewRoles:      newSet("reviewer role", f.ReviewRoles),
		reviewTypes:      newSet("review type", f.ReviewTypes),
		propertyTypes:    newSet("property type", f.PropertyTypes),
		contributorRoles: newSet("contributor role", f.ContributorRoles),
		sections:         make(map[string]string),
	}
	for section, words := range f.AffiliationSections {
		for _, w := range words {
			t.sections[fold(w)] = section
		}
	}
	t.countries = buildCountries(f.CountryAliases)
	return t, nil
}

// Visibilities is the set of remote visibility levels.
func Visibilities() Set { return get().visibilities }

// ExternalIDTypes is the set of accepted external identifier types.
func ExternalIDTypes() Set { return get().externalIDTypes }

// Relationships is the set of external identifier relationships.
func Relationships() Set { return get().relationships }

// FundingTypes is the set of funding types.
func FundingTypes() Set { return get().fundingTypes }

// WorkTypes is the set of work types.
func WorkTypes() Set { return get().workTypes }

// ReviewRoles is the set of peer-review reviewer roles.
func ReviewRoles() Set { return get().reviewRoles }

// ReviewTypes is the set of peer-review types.
func ReviewTypes() Set { return get().reviewTypes }

// PropertyTypes is the set of researcher property types.
func PropertyTypes() Set { return get().propertyTypes }

// ContributorRoles is the set of contributor roles for funding and works.
func ContributorRoles() Set { return get().contributorRoles }

// AffiliationSection maps an affiliation type word ("staff", "Student") to its remote section.
func AffiliationSection(word string) (string, bool) {
	s, ok := get().sections[fold(word)]
	return s, ok
}

// AffiliationSections returns the distinct remote affiliation sections.
func AffiliationSections() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range get().sections {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
