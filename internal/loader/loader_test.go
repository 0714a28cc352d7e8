package loader

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

func load(t *testing.T, in Input) (*Result, error) {
	t.Helper()
	return NewLoader().Load(context.Background(), in)
}

const staffTSV = "First Name\tLast Name\temail\tOrganisation\tCampus/Department\tCity\tCourse or Job title\tStart date\tEnd date\tStudent/Staff\n" +
	"Roshan\tPawar\tdemo1@example.com\tThe University of Auckland\tAucland City\tAuckland\tProfessor\t2016-09\t\tStaff\n" +
	"Roshan\tPawar\tdemo2@example.com\tThe University of Auckland\tAucland City\tAuckland\tLecturer\t2015-03\t2016-08\tStaff\n" +
	"Roshan\tPawar\tdemo3@example.com\tThe University of Auckland\tAucland City\tAuckland\tStudent\t2012\t2014\tStudent\n" +
	"Roshan\tPawar\tdemo4@example.com\tThe University of Auckland\tAucland City\tAuckland\tPostgrad\t01/02/2010\t30/11/2011\tStudent\n"

func TestLoad_AffiliationTSV(t *testing.T) {
	res, err := load(t, Input{Filename: "staff.tsv", Data: []byte(staffTSV), Kind: model.KindAffiliation})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Task.RecordCount)
	assert.Equal(t, "staff.tsv", res.Task.Filename)
	assert.False(t, res.Task.IsRaw)
	require.Len(t, res.Records, 4)

	first := res.Records[0].(*model.AffiliationRecord)
	assert.Equal(t, "employment", first.SectionName)
	assert.Equal(t, "Professor", first.RoleTitle)
	assert.Equal(t, "Aucland City", first.Department)
	assert.Equal(t, model.PartialDate{Year: 2016, Month: 9}, first.StartDate)
	assert.Equal(t, 2, first.Row)

	last := res.Records[3].(*model.AffiliationRecord)
	assert.Equal(t, "education", last.SectionName)
	assert.Equal(t, model.PartialDate{Year: 2010, Month: 2, Day: 1}, last.StartDate)
	assert.Equal(t, model.PartialDate{Year: 2011, Month: 11, Day: 30}, last.EndDate)
}

func TestLoad_TabsInDeclaredCSV(t *testing.T) {
	res, err := load(t, Input{Filename: "upload", Data: []byte(staffTSV), Kind: model.KindAffiliation, Format: FormatCSV})
	require.NoError(t, err)
	assert.Len(t, res.Records, 4)
}

func TestLoad_Country(t *testing.T) {
	csv := "\xEF\xBB\xBFemail,organisation,country,affiliation type\n" +
		"a@example.com,Uni,New Zealand,staff\n"
	res, err := load(t, Input{Filename: "a.csv", Data: []byte(csv), Kind: model.KindAffiliation})
	require.NoError(t, err)
	assert.Equal(t, "NZ", res.Records[0].(*model.AffiliationRecord).Country)

	_, err = load(t, Input{Filename: "a.csv", Data: []byte(csv + "b@example.com,Uni,Narnia,staff\n"), Kind: model.KindAffiliation})
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrCountry)
	var le *exception.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 3, le.Row)
	assert.Equal(t, "country", le.Header)
	assert.Equal(t, "Narnia", le.Value)
}

func TestLoad_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{
			name: "unmapped header",
			in:   Input{Filename: "x.csv", Data: []byte("foo,bar\n1,2\n"), Kind: model.KindAffiliation},
			want: exception.ErrUnmappedHeader,
		},
		{
			name: "too narrow",
			in:   Input{Filename: "x.csv", Data: []byte("email,organisation\na@example.com,Uni\n"), Kind: model.KindAffiliation},
			want: exception.ErrMissingColumn,
		},
		{
			name: "no identity column",
			in:   Input{Filename: "x.csv", Data: []byte("organisation,department,role,affiliation type\nUni,Dept,Prof,staff\n"), Kind: model.KindAffiliation},
			want: exception.ErrMissingIdentity,
		},
		{
			name: "row without identity",
			in: Input{Filename: "x.csv", Kind: model.KindAffiliation,
				Data: []byte("email,orcid,organisation,affiliation type\n,,Uni,staff\n")},
			want: exception.ErrMissingIdentity,
		},
		{
			name: "bad date",
			in: Input{Filename: "x.csv", Kind: model.KindAffiliation,
				Data: []byte("email,organisation,start date,affiliation type\na@example.com,Uni,31/31/2020,staff\n")},
			want: exception.ErrDate,
		},
		{
			name: "bad ORCID",
			in: Input{Filename: "x.csv", Kind: model.KindAffiliation,
				Data: []byte("orcid,organisation,department,affiliation type\n0000-0002-1825-0098,Uni,D,staff\n")},
			want: exception.ErrORCID,
		},
		{
			name: "bad external id type",
			in: Input{Filename: "x.csv", Kind: model.KindFunding,
				Data: []byte("title,type,email,external id type,external id value\nT,grant,a@example.com,bogus,1\n")},
			want: exception.ErrVocabulary,
		},
		{
			name: "too many cells",
			in: Input{Filename: "x.csv", Kind: model.KindAffiliation,
				Data: []byte("email,organisation,department,affiliation type\na@example.com,Uni,D,staff,extra\n")},
			want: exception.ErrMalformedRow,
		},
		{
			name: "kind missing",
			in:   Input{Filename: "x.csv", Data: []byte("email,organisation\n")},
			want: exception.ErrUnsupportedInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_DeletionOnlyFileNeedsNoIdentity(t *testing.T) {
	csv := "put code,title,type,delete\n123,Old,grant,yes\n"
	res, err := load(t, Input{Filename: "del.csv", Data: []byte(csv), Kind: model.KindFunding})
	require.NoError(t, err)
	f := res.Records[0].(*model.FundingRecord)
	assert.True(t, f.IsDeletion)
	require.Len(t, f.Invitees, 1)
	assert.Equal(t, "123", f.Invitees[0].PutCode)
}

func TestLoad_ValidationAbortsLoad(t *testing.T) {
	csv := "title,type,email\nOcean,grant,a@example.com\n,grant,b@example.com\n"
	_, err := load(t, Input{Filename: "f.csv", Data: []byte(csv), Kind: model.KindFunding})
	var ve *exception.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 3, ve.Row)
}

func fundingRow(email string) map[string]interface{} {
	return map[string]interface{}{
		"title": map[string]interface{}{"title": map[string]interface{}{"value": "Ocean Currents"}},
		"type":  "GRANT",
		"external-ids": map[string]interface{}{"external-id": []interface{}{
			map[string]interface{}{"external-id-type": "grant_number", "external-id-value": "G-1", "external-id-relationship": "SELF"},
		}},
		"organization": map[string]interface{}{"name": "Uni", "address": map[string]interface{}{"country": "New Zealand"}},
		"invitees":     []interface{}{map[string]interface{}{"email": email, "first-name": "A"}},
	}
}

func TestLoad_FundingJSONGroupsInvitees(t *testing.T) {
	doc := map[string]interface{}{
		"filename": "grants.json",
		"type":     "funding",
		"records":  []interface{}{fundingRow("a@example.com"), fundingRow("b@example.com"), fundingRow("c@example.com")},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	res, err := load(t, Input{Data: data})
	require.NoError(t, err)
	assert.Equal(t, model.KindFunding, res.Task.Kind)
	assert.Equal(t, "grants.json", res.Task.Filename)
	assert.True(t, res.Task.IsRaw)
	require.Len(t, res.Records, 1)
	f := res.Records[0].(*model.FundingRecord)
	assert.Equal(t, "grant", f.Type)
	assert.Equal(t, "NZ", f.Country)
	assert.Len(t, f.Invitees, 3)
	require.Len(t, f.ExternalIDs, 1)
	assert.Equal(t, "self", f.ExternalIDs[0].Relationship)
	assert.Equal(t, 1, res.Task.RecordCount)
}

func TestLoad_YAMLMatchesJSON(t *testing.T) {
	rows := []interface{}{fundingRow("a@example.com"), fundingRow("b@example.com")}
	data, err := yaml.Marshal(rows)
	require.NoError(t, err)
	res, err := load(t, Input{Filename: "grants.yml", Data: data, Kind: model.KindFunding})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Len(t, res.Records[0].(*model.FundingRecord).Invitees, 2)
}

func TestLoad_DocumentStructureErrors(t *testing.T) {
	_, err := load(t, Input{Filename: "w.json", Kind: model.KindWork, Data: []byte(`[{"type":"book"}, 5]`)})
	require.Error(t, err)
	assert.True(t, exception.IsLoadError(err))
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Email", "Keyword", "Visibility", "Active"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"a@example.com", "oceanography", "PUBLIC", "Y"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"a@example.com", "tides", "public", "n"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := load(t, Input{Filename: "keywords.xlsx", Data: buf.Bytes(), Kind: model.KindProperty})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	p := res.Records[0].(*model.PropertyRecord)
	assert.Equal(t, model.PropertyKeyword, p.Type)
	assert.Equal(t, "oceanography", p.Value)
	assert.Equal(t, "public", p.Visibility)
	assert.True(t, p.IsActive)
	assert.False(t, res.Records[1].Base().IsActive)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		declared Format
		name     string
		data     string
		want     Format
	}{
		{FormatYAML, "x.csv", "a,b", FormatYAML},
		{FormatAuto, "x.TSV", "", FormatTSV},
		{FormatAuto, "x.yml", "", FormatYAML},
		{FormatAuto, "upload", "  [{}]", FormatJSON},
		{FormatAuto, "upload", "{\"records\": []}", FormatJSON},
		{FormatAuto, "upload", "email\tname\na\tb\n", FormatTSV},
		{FormatAuto, "upload", "email,name\na,b\n", FormatCSV},
		{FormatAuto, "upload", "- title: x\n  type: book\n", FormatYAML},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.declared, tt.name, []byte(tt.data)), tt.name+" "+tt.data)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	records := map[model.Kind]model.Record{
		model.KindAffiliation: &model.AffiliationRecord{
			RecordBase:  model.RecordBase{PutCode: "77", Visibility: "public", LocalID: "L1", IsActive: true},
			Person:      model.Person{Email: "a@example.com", ORCID: "0000-0002-1825-0097", FirstName: "Ann", LastName: "Lee"},
			OrgRef:      model.OrgRef{OrgName: "Uni", City: "Auckland", Country: "NZ", DisambiguatedID: "1234", DisambiguationSource: "RINGGOLD"},
			SectionName: "employment",
			Department:  "Physics",
			RoleTitle:   "Lecturer",
			StartDate:   model.PartialDate{Year: 2019, Month: 3},
			URL:         "https://example.com/staff",
			ExternalIDs: []model.ExternalID{{Type: "doi", Value: "10.1/x", Relationship: "self"}},
		},
		model.KindFunding: &model.FundingRecord{
			OrgRef:         model.OrgRef{OrgName: "Fund", Country: "NZ"},
			Title:          "Ocean",
			Type:           "grant",
			OrgDefinedType: "Seed",
			Amount:         "1000",
			Currency:       "NZD",
			StartDate:      model.PartialDate{Year: 2020, Month: 1, Day: 2},
			ExternalIDs:    []model.ExternalID{{Type: "grant_number", Value: "G-1", URL: "https://g.example", Relationship: "self"}},
			Contributors:   []model.Contributor{{Name: "Ann Lee", Email: "a@example.com", ORCID: "0000-0002-1825-0097", Role: "lead", Sequence: "first"}},
			Invitees: []model.Invitee{
				{Person: model.Person{Email: "a@example.com", FirstName: "Ann"}, PutCode: "5", Visibility: "limited"},
				{Person: model.Person{ORCID: "0000-0002-1694-233X"}, Identifier: "X1"},
			},
		},
		model.KindWork: &model.WorkRecord{
			Title: "Paper", Subtitle: "Sub", JournalTitle: "J", Type: "journal-article",
			CitationType: "bibtex", CitationValue: "@article{}", PublicationDate: model.PartialDate{Year: 2021},
			LanguageCode: "en", Country: "NZ",
			ExternalIDs: []model.ExternalID{{Type: "doi", Value: "10.1/y", Relationship: "self"}},
			Invitees:    []model.Invitee{{Person: model.Person{Email: "b@example.com"}}},
		},
		model.KindPeerReview: &model.PeerReviewRecord{
			ReviewGroupID: "issn:1234", ReviewerRole: "reviewer", ReviewType: "review", ReviewURL: "https://r.example",
			CompletionDate:        model.PartialDate{Year: 2018, Month: 5},
			SubjectExternalIDType: "doi", SubjectExternalIDValue: "10.1/z", SubjectExternalIDRelation: "self",
			SubjectContainerName: "Journal", SubjectType: "journal-article", SubjectTitle: "Subject", SubjectURL: "https://s.example",
			ConveningOrgName: "Publisher", ConveningOrgCity: "London", ConveningOrgCountry: "GB",
			ExternalIDs: []model.ExternalID{{Type: "source-work-id", Value: "R1", Relationship: "self"}},
			Invitees:    []model.Invitee{{Person: model.Person{Email: "c@example.com"}}},
		},
		model.KindResource: &model.ResourceRecord{
			ProposalTitle: "Beam time", ProposalStartDate: model.PartialDate{Year: 2022}, ProposalURL: "https://p.example",
			HostName: "Synchrotron", HostCity: "Melbourne", HostCountry: "AU",
			ResourceName: "Beamline", ResourceType: "infrastructures",
			ExternalIDs: []model.ExternalID{{Type: "proposal-id", Value: "P-9", Relationship: "self"}},
			Invitees:    []model.Invitee{{Person: model.Person{Email: "d@example.com"}}},
		},
		model.KindProperty: &model.PropertyRecord{
			Person: model.Person{Email: "e@example.com"}, Type: model.PropertyURL, Name: "Home", Value: "https://e.example", DisplayIndex: 2,
		},
		model.KindOtherID: &model.OtherIDRecord{
			Person: model.Person{Email: "f@example.com"}, Type: "Scopus Author ID", Value: "123", URL: "https://scopus.example/123", Relationship: "self",
		},
	}
	for kind, rec := range records {
		t.Run(string(kind), func(t *testing.T) {
			data, err := json.Marshal([]tree.Map{rec.Export()})
			require.NoError(t, err)
			res, err := load(t, Input{Filename: "export.json", Data: data, Kind: kind})
			require.NoError(t, err)
			require.Len(t, res.Records, 1)
			assert.Equal(t, rec.Export(), res.Records[0].Export())
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader().Load(ctx, Input{Data: []byte(strings.Repeat("x", 3))})
	assert.ErrorIs(t, err, context.Canceled)
}
