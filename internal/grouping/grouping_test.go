package grouping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/domain/model"
)

func TestContiguous(t *testing.T) {
	rows := []string{"a1", "a2", "b1", "", "", "a3"}
	groups := Contiguous(rows, func(s string) string {
		if s == "" {
			return ""
		}
		return s[:1]
	})
	assert.Equal(t, [][]string{{"a1", "a2"}, {"b1"}, {""}, {""}, {"a3"}}, groups)
	assert.Empty(t, Contiguous([]string{}, strings.ToLower))
}

func TestUniqueAndMerge(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Unique([]string{"x", "y", "x"}, strings.ToLower))
	assert.Equal(t, []string{"a", "b", "c"}, Merge([]string{"a", "b"}, []string{"B", "c"}, strings.ToLower))
}

func funding(title, email string) *model.FundingRecord {
	return &model.FundingRecord{
		Title:       title,
		ExternalIDs: []model.ExternalID{{Type: "grant_number", Value: "G-1", Relationship: "self"}},
		Invitees:    []model.Invitee{{Person: model.Person{Email: email}}},
	}
}

func TestRecords_MergesContiguousParents(t *testing.T) {
	in := []model.Record{
		funding("Ocean", "a@example.com"),
		funding("Ocean", "b@example.com"),
		funding("Ocean", "c@example.com"),
		funding("Ocean", "c@example.com"),
	}
	out := Records(in)
	require.Len(t, out, 1)
	f := out[0].(*model.FundingRecord)
	assert.Len(t, f.ExternalIDs, 1)
	assert.Len(t, f.Invitees, 3)
}

func TestRecords_NonContiguousStaySeparate(t *testing.T) {
	out := Records([]model.Record{funding("A", "x@example.com"), funding("B", "x@example.com"), funding("A", "y@example.com")})
	assert.Len(t, out, 3)
}

func TestRecords_PersonKindsNeverMerge(t *testing.T) {
	p := func() model.Record {
		return &model.PropertyRecord{Person: model.Person{Email: "a@example.com"}, Type: "KEYWORD", Value: "x"}
	}
	assert.Len(t, Records([]model.Record{p(), p()}), 2)
}
