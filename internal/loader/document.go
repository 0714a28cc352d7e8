package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/tree"
	"github.com/tigerroll/recordhub/internal/validate"
)

// docField reads a logical field from the first present of several dotted paths.
// A numeric segment selects a list element.
type docField struct {
	field string
	paths [][]string
	date  bool
}

func df(field string, paths ...string) docField {
	f := docField{field: field}
	for _, p := range paths {
		f.paths = append(f.paths, strings.Split(p, "."))
	}
	return f
}

func dd(field string, paths ...string) docField {
	f := df(field, paths...)
	f.date = true
	return f
}

var (
	docPerson = []docField{
		df(fEmail, "email"), df(fORCID, "orcid", "orcid-id"),
		df(fFirstName, "first-name", "given-names"), df(fLastName, "last-name", "family-name"),
	}
	docBookkeeping = []docField{
		df(fPutCode, "put-code"), df(fVisibility, "visibility"), df(fLocalID, "local-id"),
		df(fIsActive, "is-active"), df(fDelete, "delete"),
	}
	docOrg = []docField{
		df(fOrgName, "organization.name", "organisation", "org-name"),
		df(fCity, "organization.address.city", "city"),
		df(fRegion, "organization.address.region", "region"),
		df(fCountry, "organization.address.country", "country"),
		df(fDisambiguatedID, "organization.disambiguated-organization.disambiguated-organization-identifier", "disambiguated-id"),
		df(fDisambiguationSrc, "organization.disambiguated-organization.disambiguation-source", "disambiguation-source"),
	}
	docExternalID = []docField{
		df(fExtIDType, "external-id-type"), df(fExtIDValue, "external-id-value"),
		df(fExtIDURL, "external-id-url"), df(fExtIDRelationship, "external-id-relationship"),
	}
	docContributor = []docField{
		df(fContribName, "credit-name"), df(fContribEmail, "contributor-email"),
		df(fContribORCID, "contributor-orcid.path", "contributor-orcid"),
		df(fContribRole, "contributor-attributes.contributor-role"),
		df(fContribSequence, "contributor-attributes.contributor-sequence"),
	}
	docInvitee = join3([]docField{df(fIdentifier, "identifier")}, docPerson, docBookkeeping)
)

// docShape describes where a kind keeps its scalar fields and child lists in the export shape.
type docShape struct {
	fields       []docField
	externalIDs  []string
	contributors []string
}

var docShapes = map[model.Kind]docShape{
	model.KindAffiliation: {
		fields: join3(docOrg, docPerson, docBookkeeping, []docField{
			df(fAffiliationType, "affiliation-type"), df(fDepartment, "department-name", "department"),
			df(fRole, "role-title", "role"), dd(fStartDate, "start-date"), dd(fEndDate, "end-date"), df(fURL, "url"),
		}),
		externalIDs: []string{"external-ids", "external-id"},
	},
	model.KindFunding: {
		fields: join3(docOrg, docPerson, docBookkeeping, []docField{
			df(fTitle, "title.title", "title"), df(fTranslatedTitle, "title.translated-title"),
			df(fTranslatedLanguage, "title.translated-title.language-code"),
			df(fType, "type"), df(fOrgDefinedType, "organization-defined-type"),
			df(fDescription, "short-description"), df(fAmount, "amount"), df(fCurrency, "amount.currency-code"),
			df(fURL, "url"), dd(fStartDate, "start-date"), dd(fEndDate, "end-date"),
		}),
		externalIDs:  []string{"external-ids", "external-id"},
		contributors: []string{"contributors", "contributor"},
	},
	model.KindWork: {
		fields: join3(docPerson, docBookkeeping, []docField{
			df(fTitle, "title.title", "title"), df(fSubtitle, "title.subtitle"),
			df(fTranslatedTitle, "title.translated-title"), df(fTranslatedLanguage, "title.translated-title.language-code"),
			df(fJournalTitle, "journal-title"), df(fDescription, "short-description"),
			df(fCitationType, "citation.citation-type"), df(fCitationValue, "citation.citation-value"),
			df(fType, "type"), dd(fPublicationDate, "publication-date"), df(fURL, "url"),
			df(fLanguageCode, "language-code"), df(fCountry, "country"),
		}),
		externalIDs:  []string{"external-ids", "external-id"},
		contributors: []string{"contributors", "contributor"},
	},
	model.KindPeerReview: {
		fields: join3(docPerson, docBookkeeping, []docField{
			df(fReviewGroupID, "review-group-id"), df(fReviewerRole, "reviewer-role"),
			df(fReviewURL, "review-url"), df(fReviewType, "review-type"),
			dd(fCompletionDate, "review-completion-date"),
			df(fSubjectIDType, "subject-external-identifier.external-id-type"),
			df(fSubjectIDValue, "subject-external-identifier.external-id-value"),
			df(fSubjectIDURL, "subject-external-identifier.external-id-url"),
			df(fSubjectIDRelation, "subject-external-identifier.external-id-relationship"),
			df(fSubjectContainer, "subject-container-name"), df(fSubjectType, "subject-type"),
			df(fSubjectTitle, "subject-name.title"), df(fSubjectURL, "subject-url"),
			df(fConvOrgName, "convening-organization.name"),
			df(fConvOrgCity, "convening-organization.address.city"),
			df(fConvOrgRegion, "convening-organization.address.region"),
			df(fConvOrgCountry, "convening-organization.address.country"),
			df(fConvOrgDisambID, "convening-organization.disambiguated-organization.disambiguated-organization-identifier"),
			df(fConvOrgDisambSrc, "convening-organization.disambiguated-organization.disambiguation-source"),
		}),
		externalIDs: []string{"review-identifiers", "external-id"},
	},
	model.KindProperty: {
		fields: join3(docPerson, docBookkeeping, []docField{
			df(fType, "type"), df(fName, "url-name", "name"), df(fURL, "url"),
			df(fKeyword, "keyword"), df(fCountry, "country"), df(fValue, "content", "value"),
			df(fDisplayIndex, "display-index"),
		}),
	},
	model.KindOtherID: {
		fields: join3(docPerson, docBookkeeping, docExternalID, []docField{df(fDisplayIndex, "display-index")}),
	},
	model.KindResource: {
		fields: join3(docPerson, docBookkeeping, []docField{
			df(fProposalTitle, "proposal.title.title", "title"),
			dd(fProposalStart, "proposal.start-date"), dd(fProposalEnd, "proposal.end-date"),
			df(fProposalURL, "proposal.url"),
			df(fHostName, "proposal.hosts.organization.0.name"),
			df(fHostCity, "proposal.hosts.organization.0.address.city"),
			df(fHostRegion, "proposal.hosts.organization.0.address.region"),
			df(fHostCountry, "proposal.hosts.organization.0.address.country"),
			df(fHostDisambID, "proposal.hosts.organization.0.disambiguated-organization.disambiguated-organization-identifier"),
			df(fHostDisambSrc, "proposal.hosts.organization.0.disambiguated-organization.disambiguation-source"),
			df(fResourceName, "resource-items.0.resource-name"),
			df(fResourceType, "resource-items.0.resource-type"),
		}),
		externalIDs: []string{"proposal", "external-ids", "external-id"},
	},
}

func join3(groups ...[]docField) []docField {
	var out []docField
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func walk(n *tree.Node, path []string) *tree.Node {
	for _, seg := range path {
		if n == nil {
			return nil
		}
		if idx, ok := index(seg); ok {
			list := n.List()
			if idx >= len(list) {
				return nil
			}
			n = list[idx]
			continue
		}
		n = n.Get(seg)
	}
	return n
}

func index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	n := 0
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// dateText renders a nested {year, month, day} date as text for the row parser.
func dateText(n *tree.Node) string {
	if !n.IsMap() {
		return n.Text()
	}
	text := n.Get("year").Text()
	if m := n.Get("month").Text(); m != "" && text != "" {
		text += "-" + m
		if d := n.Get("day").Text(); d != "" {
			text += "-" + d
		}
	}
	return text
}

// flatten reads the given fields of a document node into a row lookup.
func flatten(n *tree.Node, fields []docField) func(string) (string, string) {
	values := make(map[string]string, len(fields))
	names := make(map[string]string, len(fields))
	for _, f := range fields {
		names[f.field] = strings.Join(f.paths[0], ".")
		for _, p := range f.paths {
			v := walk(n, p)
			if v.Missing() {
				continue
			}
			if f.date {
				values[f.field] = dateText(v)
			} else {
				values[f.field] = v.Text()
			}
			if values[f.field] != "" {
				break
			}
		}
	}
	return func(field string) (string, string) {
		return values[field], names[field]
	}
}

// decodeDocument parses JSON or YAML into the shared tree representation.
func decodeDocument(data []byte, format Format) (*tree.Node, error) {
	var v interface{}
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &v)
	} else {
		err = json.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, exception.NewLoadError(0, "", "", "", fmt.Errorf("%w: %v", exception.ErrMalformedRow, err))
	}
	return tree.From(v), nil
}

// documentMeta reads the optional filename and type of a {records: [...]} document.
func documentMeta(root *tree.Node) (filename string, kind model.Kind, err error) {
	if !root.IsMap() {
		return "", "", nil
	}
	filename = root.Get("filename").String()
	if t := root.Get("type").String(); t != "" {
		kind, err = model.ParseKind(t)
		if err != nil {
			return "", "", exception.NewLoadError(0, "", "type", t, fmt.Errorf("%w: %v", exception.ErrVocabulary, err))
		}
	}
	return filename, kind, nil
}

// documentRecords builds records from the nested export shape of each document entry.
func documentRecords(kind model.Kind, root *tree.Node) ([]model.Record, error) {
	if err := validate.Structure(kind, root); err != nil {
		return nil, err
	}
	entries, _ := validate.Records(root)
	shape := docShapes[kind]
	build := builders[kind]
	var records []model.Record
	for i, n := range entries {
		row := i + 1
		r := &rowReader{row: row, lookup: flatten(n, shape.fields)}
		rec := build(r)
		if r.err != nil {
			return nil, r.err
		}
		ch := rec.Children()
		if ch.ExternalIDs != nil && shape.externalIDs != nil {
			for _, e := range walk(n, shape.externalIDs).List() {
				er := &rowReader{row: row, lookup: flatten(e, docExternalID)}
				if id, ok := readExternalID(er, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
					*ch.ExternalIDs = append(*ch.ExternalIDs, id)
				}
				if er.err != nil {
					return nil, er.err
				}
			}
		}
		if ch.Contributors != nil && shape.contributors != nil {
			for _, c := range walk(n, shape.contributors).List() {
				cr := &rowReader{row: row, lookup: flatten(c, docContributor)}
				if con, ok := readContributor(cr); ok {
					*ch.Contributors = append(*ch.Contributors, con)
				}
				if cr.err != nil {
					return nil, cr.err
				}
			}
		}
		if ch.Invitees != nil {
			for _, inv := range n.Get("invitees").List() {
				ir := &rowReader{row: row, lookup: flatten(inv, docInvitee)}
				base := readBase(ir)
				if invitee, ok := readInvitee(ir, &base); ok {
					*ch.Invitees = append(*ch.Invitees, invitee)
				}
				if ir.err != nil {
					return nil, ir.err
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
