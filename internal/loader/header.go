package loader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
)

// Logical fields bound from a header row.
const (
	fEmail              = "email"
	fORCID              = "orcid"
	fFirstName          = "first_name"
	fLastName           = "last_name"
	fIdentifier         = "identifier"
	fPutCode            = "put_code"
	fVisibility         = "visibility"
	fLocalID            = "local_id"
	fIsActive           = "is_active"
	fDelete             = "delete"
	fOrgName            = "org_name"
	fCity               = "city"
	fRegion             = "region"
	fCountry            = "country"
	fDisambiguatedID    = "disambiguated_id"
	fDisambiguationSrc  = "disambiguation_source"
	fAffiliationType    = "affiliation_type"
	fDepartment         = "department"
	fRole               = "role"
	fStartDate          = "start_date"
	fEndDate            = "end_date"
	fURL                = "url"
	fExtIDType          = "external_id_type"
	fExtIDValue         = "external_id_value"
	fExtIDURL           = "external_id_url"
	fExtIDRelationship  = "external_id_relationship"
	fTitle              = "title"
	fSubtitle           = "subtitle"
	fTranslatedTitle    = "translated_title"
	fTranslatedLanguage = "translated_title_language"
	fType               = "type"
	fOrgDefinedType     = "org_defined_type"
	fDescription        = "description"
	fAmount             = "amount"
	fCurrency           = "currency"
	fJournalTitle       = "journal_title"
	fCitationType       = "citation_type"
	fCitationValue      = "citation_value"
	fPublicationDate    = "publication_date"
	fLanguageCode       = "language_code"
	fContribName        = "contributor_name"
	fContribEmail       = "contributor_email"
	fContribORCID       = "contributor_orcid"
	fContribRole        = "contributor_role"
	fContribSequence    = "contributor_sequence"
	fReviewGroupID      = "review_group_id"
	fReviewerRole       = "reviewer_role"
	fReviewURL          = "review_url"
	fReviewType         = "review_type"
	fCompletionDate     = "completion_date"
	fSubjectIDType      = "subject_external_id_type"
	fSubjectIDValue     = "subject_external_id_value"
	fSubjectIDURL       = "subject_external_id_url"
	fSubjectIDRelation  = "subject_external_id_relationship"
	fSubjectContainer   = "subject_container_name"
	fSubjectType        = "subject_type"
	fSubjectTitle       = "subject_title"
	fSubjectURL         = "subject_url"
	fConvOrgName        = "convening_org_name"
	fConvOrgCity        = "convening_org_city"
	fConvOrgRegion      = "convening_org_region"
	fConvOrgCountry     = "convening_org_country"
	fConvOrgDisambID    = "convening_org_disambiguated_id"
	fConvOrgDisambSrc   = "convening_org_disambiguation_source"
	fName               = "name"
	fValue              = "value"
	fKeyword            = "keyword"
	fDisplayIndex       = "display_index"
	fProposalTitle      = "proposal_title"
	fProposalStart      = "proposal_start_date"
	fProposalEnd        = "proposal_end_date"
	fProposalURL        = "proposal_url"
	fHostName           = "host_name"
	fHostCity           = "host_city"
	fHostRegion         = "host_region"
	fHostCountry        = "host_country"
	fHostDisambID       = "host_disambiguated_id"
	fHostDisambSrc      = "host_disambiguation_source"
	fResourceName       = "resource_name"
	fResourceType       = "resource_type"
)

// column is one logical field and the header patterns that bind to it, in priority order.
type column struct {
	field    string
	patterns []*regexp.Regexp
}

func col(field string, patterns ...string) column {
	c := column{field: field}
	for _, p := range patterns {
		c.patterns = append(c.patterns, regexp.MustCompile("(?i)"+p))
	}
	return c
}

// layout is the header vocabulary of one record kind.
type layout struct {
	columns  []column
	minWidth int
}

// Columns shared by every kind. Listed after the kind specific ones so that,
// e.g., "contributor orcid" is claimed before the plain ORCID column.
var (
	personColumns = []column{
		col(fEmail, `^e-?mail`, `e-?mail`),
		col(fORCID, `^orcid`, `orcid`),
		col(fFirstName, `first\s*name`, `given\s*names?`),
		col(fLastName, `last\s*name`, `surname`, `family\s*name`),
	}
	bookkeepingColumns = []column{
		col(fPutCode, `put.?code`),
		col(fVisibility, `visibility`),
		col(fLocalID, `^local.?id`),
		col(fIsActive, `^(is.?)?active`, `activate`),
		col(fDelete, `^delete`),
	}
	externalIDColumns = []column{
		col(fExtIDType, `^(work.?|funding.?|review.?|proposal.?)?external.?id(entifier)?.?type`, `^identifier.?type`),
		col(fExtIDValue, `^(work.?|funding.?|review.?|proposal.?)?external.?id(entifier)?.?value`, `^identifier.?value`, `^grant.?number`),
		col(fExtIDURL, `^(work.?|funding.?|review.?|proposal.?)?external.?id(entifier)?.?url`),
		col(fExtIDRelationship, `^(work.?|funding.?|review.?|proposal.?)?external.?id(entifier)?.?relationship`, `^relationship`),
	}
	orgColumns = []column{
		col(fOrgName, `^(organi[sz]ation|org)(.?name)?$`, `^institution`, `^organi[sz]ation`),
		col(fCity, `^city`, `city`),
		col(fRegion, `^(region|state)`),
		col(fCountry, `^country`, `country`),
		col(fDisambiguationSrc, `disambiguation.?source`),
		col(fDisambiguatedID, `disambiguated.?(org(ani[sz]ation)?.?)?id`, `^(ringgold|ror|grid)`),
	}
	contributorColumns = []column{
		col(fContribName, `^contributor.?(credit.?)?name`),
		col(fContribEmail, `^contributor.?e-?mail`),
		col(fContribORCID, `^contributor.?orcid`),
		col(fContribRole, `^contributor.?role`),
		col(fContribSequence, `^contributor.?sequence`),
	}
	inviteeColumns = []column{
		col(fIdentifier, `^(invitee.?)?identifier$`),
	}
)

func join(groups ...[]column) []column {
	var out []column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var layouts = map[model.Kind]layout{
	model.KindAffiliation: {minWidth: 4, columns: join(
		[]column{
			col(fAffiliationType, `^affiliation.?type`, `^type`, `^affiliation`, `student|staff`),
			col(fDepartment, `^department`, `department`),
			col(fRole, `^role`, `^position`, `^(role.?)?title`, `title$`),
			col(fStartDate, `^start`, `start.?date`),
			col(fEndDate, `^end`, `end.?date`),
			col(fURL, `^url$`),
		},
		externalIDColumns, orgColumns, personColumns, bookkeepingColumns)},
	model.KindFunding: {minWidth: 3, columns: join(
		[]column{
			col(fTranslatedTitle, `^translated.?title$`),
			col(fTranslatedLanguage, `^translated.?title.?lang`),
			col(fTitle, `^(funding.?)?title`),
			col(fOrgDefinedType, `^org(ani[sz]ation)?.?defined.?type`),
			col(fType, `^(funding.?)?type$`),
			col(fDescription, `description`),
			col(fAmount, `^amount`),
			col(fCurrency, `^currency`),
			col(fURL, `^(funding.?)?url$`),
			col(fStartDate, `^start`),
			col(fEndDate, `^end`),
		},
		contributorColumns, externalIDColumns, orgColumns, inviteeColumns, personColumns, bookkeepingColumns)},
	model.KindWork: {minWidth: 3, columns: join(
		[]column{
			col(fTranslatedTitle, `^translated.?title$`),
			col(fTranslatedLanguage, `^translated.?title.?lang`),
			col(fJournalTitle, `^journal`),
			col(fSubtitle, `^sub.?title`),
			col(fTitle, `^(work.?)?title`),
			col(fDescription, `description`),
			col(fCitationType, `^citation.?type`),
			col(fCitationValue, `^citation`),
			col(fType, `^(work.?)?type$`),
			col(fPublicationDate, `^publication.?date`, `^(published|date)`),
			col(fURL, `^(work.?)?url$`),
			col(fLanguageCode, `^language`),
			col(fCountry, `^country`),
		},
		contributorColumns, externalIDColumns, inviteeColumns, personColumns, bookkeepingColumns)},
	model.KindPeerReview: {minWidth: 4, columns: join(
		[]column{
			col(fSubjectIDType, `^subject.?external.?id(entifier)?.?type`),
			col(fSubjectIDValue, `^subject.?external.?id(entifier)?.?value`),
			col(fSubjectIDURL, `^subject.?external.?id(entifier)?.?url`),
			col(fSubjectIDRelation, `^subject.?external.?id(entifier)?.?relationship`),
			col(fSubjectContainer, `^subject.?container`),
			col(fSubjectType, `^subject.?type`),
			col(fSubjectTitle, `^subject.?(name|title)`),
			col(fSubjectURL, `^subject.?url`),
			col(fConvOrgDisambSrc, `^convening.?org(ani[sz]ation)?.?disambiguation.?source`),
			col(fConvOrgDisambID, `^convening.?org(ani[sz]ation)?.?disambiguated`),
			col(fConvOrgCity, `^convening.?org(ani[sz]ation)?.?city`),
			col(fConvOrgRegion, `^convening.?org(ani[sz]ation)?.?region`),
			col(fConvOrgCountry, `^convening.?org(ani[sz]ation)?.?country`),
			col(fConvOrgName, `^convening.?org(ani[sz]ation)?(.?name)?$`),
			col(fReviewGroupID, `group.?id`),
			col(fReviewerRole, `^(reviewer.?)?role`),
			col(fReviewURL, `^review.?url`),
			col(fReviewType, `^review.?type`),
			col(fCompletionDate, `^(review.?)?completion`),
		},
		externalIDColumns, inviteeColumns, personColumns, bookkeepingColumns)},
	model.KindProperty: {minWidth: 3, columns: join(
		[]column{
			col(fType, `^(property.?)?type$`),
			col(fName, `^url.?name`, `^name$`),
			col(fURL, `^(researcher.?)?url$`),
			col(fKeyword, `^keyword`),
			col(fCountry, `^country`),
			col(fValue, `^(value|content|other.?name)`),
			col(fDisplayIndex, `display.?index`),
		},
		personColumns, bookkeepingColumns)},
	model.KindOtherID: {minWidth: 3, columns: join(
		[]column{
			col(fExtIDType, `^(external.?id(entifier)?.?)?type`),
			col(fExtIDValue, `^(external.?id(entifier)?.?)?value`),
			col(fExtIDURL, `^(external.?id(entifier)?.?)?url`),
			col(fExtIDRelationship, `relationship`),
			col(fDisplayIndex, `display.?index`),
		},
		personColumns, bookkeepingColumns)},
	model.KindResource: {minWidth: 3, columns: join(
		[]column{
			col(fProposalTitle, `^proposal.?title`, `^title`),
			col(fProposalStart, `^proposal.?start`, `^start`),
			col(fProposalEnd, `^proposal.?end`, `^end`),
			col(fProposalURL, `^proposal.?url`),
			col(fHostDisambSrc, `^host.?(org(ani[sz]ation)?.?)?disambiguation.?source`),
			col(fHostDisambID, `^host.?(org(ani[sz]ation)?.?)?disambiguated`),
			col(fHostCity, `^host.?(org(ani[sz]ation)?.?)?city`),
			col(fHostRegion, `^host.?(org(ani[sz]ation)?.?)?region`),
			col(fHostCountry, `^host.?(org(ani[sz]ation)?.?)?country`),
			col(fHostName, `^host(.?org(ani[sz]ation)?)?(.?name)?$`),
			col(fResourceName, `^resource.?name`),
			col(fResourceType, `^resource.?type`),
		},
		externalIDColumns, inviteeColumns, personColumns, bookkeepingColumns)},
}

// binding maps logical fields to header columns.
type binding struct {
	index  map[string]int
	header []string
}

func (b binding) has(field string) bool {
	_, ok := b.index[field]
	return ok
}

// bind matches header cells against the kind's columns. A field takes the first
// unclaimed cell matching its highest priority pattern; a cell binds at most once.
func bind(kind model.Kind, header []string) (binding, error) {
	lay, ok := layouts[kind]
	if !ok {
		return binding{}, fmt.Errorf("%w: no column layout for kind %q", exception.ErrUnsupportedInput, kind)
	}
	b := binding{index: map[string]int{}, header: header}
	claimed := make([]bool, len(header))
	for _, c := range lay.columns {
	patterns:
		for _, re := range c.patterns {
			for i, h := range header {
				if claimed[i] {
					continue
				}
				if re.MatchString(strings.TrimSpace(h)) {
					b.index[c.field] = i
					claimed[i] = true
					break patterns
				}
			}
		}
	}
	if len(b.index) == 0 {
		return b, exception.NewLoadError(1, strings.Join(header, ","), "", "", exception.ErrUnmappedHeader)
	}
	if len(b.index) < lay.minWidth {
		return b, exception.NewLoadError(1, strings.Join(header, ","), "", "",
			fmt.Errorf("%w: %s needs at least %d recognizable columns, found %d", exception.ErrMissingColumn, kind, lay.minWidth, len(b.index)))
	}
	return b, nil
}
