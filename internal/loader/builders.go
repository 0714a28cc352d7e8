package loader

import (
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/domain/vocab"
)

// builder turns one row into a record. Child fields on the row become at most
// one external id, contributor and invitee.
type builder func(r *rowReader) model.Record

var builders = map[model.Kind]builder{
	model.KindAffiliation: buildAffiliation,
	model.KindFunding:     buildFunding,
	model.KindWork:        buildWork,
	model.KindPeerReview:  buildPeerReview,
	model.KindProperty:    buildProperty,
	model.KindOtherID:     buildOtherID,
	model.KindResource:    buildResource,
}

func readPerson(r *rowReader) model.Person {
	return model.Person{
		Email:     r.text(fEmail),
		ORCID:     r.orcid(fORCID),
		FirstName: r.text(fFirstName),
		LastName:  r.text(fLastName),
	}
}

func readBase(r *rowReader) model.RecordBase {
	return model.RecordBase{
		Row:        r.row,
		LocalID:    r.text(fLocalID),
		PutCode:    r.text(fPutCode),
		Visibility: r.term(fVisibility, vocab.Visibilities()),
		IsActive:   r.flag(fIsActive),
		IsDeletion: r.flag(fDelete),
	}
}

func readOrg(r *rowReader, name, city, region, country, disambID, disambSrc string) model.OrgRef {
	return model.OrgRef{
		OrgName:              r.text(name),
		City:                 r.text(city),
		Region:               r.text(region),
		Country:              r.country(country),
		DisambiguatedID:      r.text(disambID),
		DisambiguationSource: strings.ToUpper(r.text(disambSrc)),
	}
}

func readExternalID(r *rowReader, typ, value, url, rel string) (model.ExternalID, bool) {
	e := model.ExternalID{
		Type:         r.term(typ, vocab.ExternalIDTypes()),
		Value:        r.text(value),
		URL:          r.text(url),
		Relationship: r.term(rel, vocab.Relationships()),
	}
	if e.Type == "" && e.Value == "" {
		return e, false
	}
	if e.Relationship == "" {
		e.Relationship = "self"
	}
	return e, true
}

// readInvitee moves the row's person, put-code and visibility onto an invitee.
func readInvitee(r *rowReader, base *model.RecordBase) (model.Invitee, bool) {
	inv := model.Invitee{
		Person:     readPerson(r),
		Identifier: r.text(fIdentifier),
		PutCode:    base.PutCode,
		Visibility: base.Visibility,
	}
	base.PutCode = ""
	if inv.Person.IsEmpty() && inv.PutCode == "" {
		return inv, false
	}
	return inv, true
}

func readContributor(r *rowReader) (model.Contributor, bool) {
	c := model.Contributor{
		Name:     r.text(fContribName),
		Email:    r.text(fContribEmail),
		ORCID:    r.orcid(fContribORCID),
		Role:     r.term(fContribRole, vocab.ContributorRoles()),
		Sequence: strings.ToLower(r.text(fContribSequence)),
	}
	if c.Name == "" && c.Email == "" && c.ORCID == "" {
		return c, false
	}
	return c, true
}

func buildAffiliation(r *rowReader) model.Record {
	rec := &model.AffiliationRecord{
		RecordBase:  readBase(r),
		Person:      readPerson(r),
		OrgRef:      readOrg(r, fOrgName, fCity, fRegion, fCountry, fDisambiguatedID, fDisambiguationSrc),
		SectionName: r.section(fAffiliationType),
		Department:  r.text(fDepartment),
		RoleTitle:   r.text(fRole),
		StartDate:   r.date(fStartDate),
		EndDate:     r.date(fEndDate),
		URL:         r.text(fURL),
	}
	if e, ok := readExternalID(r, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
		rec.ExternalIDs = append(rec.ExternalIDs, e)
	}
	return rec
}

func buildFunding(r *rowReader) model.Record {
	rec := &model.FundingRecord{
		RecordBase:              readBase(r),
		OrgRef:                  readOrg(r, fOrgName, fCity, fRegion, fCountry, fDisambiguatedID, fDisambiguationSrc),
		Title:                   r.text(fTitle),
		TranslatedTitle:         r.text(fTranslatedTitle),
		TranslatedTitleLanguage: r.text(fTranslatedLanguage),
		Type:                    r.term(fType, vocab.FundingTypes()),
		OrgDefinedType:          r.text(fOrgDefinedType),
		Description:             r.text(fDescription),
		Amount:                  r.text(fAmount),
		Currency:                strings.ToUpper(r.text(fCurrency)),
		URL:                     r.text(fURL),
		StartDate:               r.date(fStartDate),
		EndDate:                 r.date(fEndDate),
	}
	if e, ok := readExternalID(r, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
		rec.ExternalIDs = append(rec.ExternalIDs, e)
	}
	if c, ok := readContributor(r); ok {
		rec.Contributors = append(rec.Contributors, c)
	}
	if inv, ok := readInvitee(r, &rec.RecordBase); ok {
		rec.Invitees = append(rec.Invitees, inv)
	}
	return rec
}

func buildWork(r *rowReader) model.Record {
	rec := &model.WorkRecord{
		RecordBase:              readBase(r),
		Title:                   r.text(fTitle),
		Subtitle:                r.text(fSubtitle),
		TranslatedTitle:         r.text(fTranslatedTitle),
		TranslatedTitleLanguage: r.text(fTranslatedLanguage),
		JournalTitle:            r.text(fJournalTitle),
		ShortDescription:        r.text(fDescription),
		CitationType:            strings.ToLower(r.text(fCitationType)),
		CitationValue:           r.text(fCitationValue),
		Type:                    r.term(fType, vocab.WorkTypes()),
		PublicationDate:         r.date(fPublicationDate),
		URL:                     r.text(fURL),
		LanguageCode:            r.text(fLanguageCode),
		Country:                 r.country(fCountry),
	}
	if e, ok := readExternalID(r, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
		rec.ExternalIDs = append(rec.ExternalIDs, e)
	}
	if c, ok := readContributor(r); ok {
		rec.Contributors = append(rec.Contributors, c)
	}
	if inv, ok := readInvitee(r, &rec.RecordBase); ok {
		rec.Invitees = append(rec.Invitees, inv)
	}
	return rec
}

func buildPeerReview(r *rowReader) model.Record {
	conv := readOrg(r, fConvOrgName, fConvOrgCity, fConvOrgRegion, fConvOrgCountry, fConvOrgDisambID, fConvOrgDisambSrc)
	rec := &model.PeerReviewRecord{
		RecordBase:                  readBase(r),
		ReviewGroupID:               r.text(fReviewGroupID),
		ReviewerRole:                r.term(fReviewerRole, vocab.ReviewRoles()),
		ReviewURL:                   r.text(fReviewURL),
		ReviewType:                  r.term(fReviewType, vocab.ReviewTypes()),
		CompletionDate:              r.date(fCompletionDate),
		SubjectExternalIDType:       r.term(fSubjectIDType, vocab.ExternalIDTypes()),
		SubjectExternalIDValue:      r.text(fSubjectIDValue),
		SubjectExternalIDURL:        r.text(fSubjectIDURL),
		SubjectExternalIDRelation:   r.term(fSubjectIDRelation, vocab.Relationships()),
		SubjectContainerName:        r.text(fSubjectContainer),
		SubjectType:                 strings.ToLower(r.text(fSubjectType)),
		SubjectTitle:                r.text(fSubjectTitle),
		SubjectURL:                  r.text(fSubjectURL),
		ConveningOrgName:            conv.OrgName,
		ConveningOrgCity:            conv.City,
		ConveningOrgRegion:          conv.Region,
		ConveningOrgCountry:         conv.Country,
		ConveningOrgDisambiguatedID: conv.DisambiguatedID,
		ConveningOrgDisambiguation:  conv.DisambiguationSource,
	}
	if e, ok := readExternalID(r, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
		rec.ExternalIDs = append(rec.ExternalIDs, e)
	}
	if inv, ok := readInvitee(r, &rec.RecordBase); ok {
		rec.Invitees = append(rec.Invitees, inv)
	}
	return rec
}

// buildProperty takes the type from the type column, else from which value column is filled.
func buildProperty(r *rowReader) model.Record {
	rec := &model.PropertyRecord{
		RecordBase:   readBase(r),
		Person:       readPerson(r),
		Type:         r.term(fType, vocab.PropertyTypes()),
		Name:         r.text(fName),
		DisplayIndex: r.number(fDisplayIndex),
	}
	switch {
	case r.text(fURL) != "":
		rec.Value = r.text(fURL)
		if rec.Type == "" {
			rec.Type = model.PropertyURL
		}
	case r.text(fKeyword) != "":
		rec.Value = r.text(fKeyword)
		if rec.Type == "" {
			rec.Type = model.PropertyKeyword
		}
	case r.text(fCountry) != "":
		rec.Value = r.country(fCountry)
		if rec.Type == "" {
			rec.Type = model.PropertyCountry
		}
	default:
		rec.Value = r.text(fValue)
		if rec.Type == model.PropertyCountry {
			rec.Value = r.country(fValue)
		}
		if rec.Type == "" && rec.Value != "" {
			rec.Type = model.PropertyName
		}
	}
	return rec
}

func buildOtherID(r *rowReader) model.Record {
	rec := &model.OtherIDRecord{
		RecordBase:   readBase(r),
		Person:       readPerson(r),
		Type:         r.text(fExtIDType),
		Value:        r.text(fExtIDValue),
		URL:          r.text(fExtIDURL),
		Relationship: r.term(fExtIDRelationship, vocab.Relationships()),
		DisplayIndex: r.number(fDisplayIndex),
	}
	if rec.Relationship == "" && rec.Value != "" {
		rec.Relationship = "self"
	}
	return rec
}

func buildResource(r *rowReader) model.Record {
	host := readOrg(r, fHostName, fHostCity, fHostRegion, fHostCountry, fHostDisambID, fHostDisambSrc)
	rec := &model.ResourceRecord{
		RecordBase:               readBase(r),
		ProposalTitle:            r.text(fProposalTitle),
		ProposalStartDate:        r.date(fProposalStart),
		ProposalEndDate:          r.date(fProposalEnd),
		ProposalURL:              r.text(fProposalURL),
		HostName:                 host.OrgName,
		HostCity:                 host.City,
		HostRegion:               host.Region,
		HostCountry:              host.Country,
		HostDisambiguatedID:      host.DisambiguatedID,
		HostDisambiguationSource: host.DisambiguationSource,
		ResourceName:             r.text(fResourceName),
		ResourceType:             strings.ToLower(r.text(fResourceType)),
	}
	if e, ok := readExternalID(r, fExtIDType, fExtIDValue, fExtIDURL, fExtIDRelationship); ok {
		rec.ExternalIDs = append(rec.ExternalIDs, e)
	}
	if inv, ok := readInvitee(r, &rec.RecordBase); ok {
		rec.Invitees = append(rec.Invitees, inv)
	}
	return rec
}
