package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleJSON = `{
  "activities-summary": {
    "employments": {
      "affiliation-group": [
        {"summaries": [{"employment-summary": {"put-code": 1234, "role-title": "Lecturer"}}]}
      ]
    }
  },
  "flag": "Yes"
}`

func decodeJSON(t *testing.T, s string) *Node {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return From(v)
}

func TestNode_OptionalChaining(t *testing.T) {
	root := decodeJSON(t, sampleJSON)

	summary := root.Path("activities-summary", "employments", "affiliation-group").
		Index(0).Get("summaries").Index(0).Get("employment-summary")

	assert.Equal(t, "1234", summary.Get("put-code").String())
	assert.Equal(t, "Lecturer", summary.Get("role_title").String())

	missing := root.Path("activities-summary", "fundings", "group").Index(3).Get("title")
	assert.True(t, missing.Missing())
	assert.Equal(t, "", missing.String())
	assert.Nil(t, missing.List())
}

func TestNode_KeyNormalization(t *testing.T) {
	root := decodeJSON(t, `{"External-ID Type": "doi", "flag": "Yes"}`)

	assert.Equal(t, "doi", root.Get("external_id_type").String())
	assert.True(t, root.Get("FLAG").Bool())
	assert.Equal(t, []string{"External-ID Type", "flag"}, root.Keys())
}

func TestNode_YAMLAndJSONAgree(t *testing.T) {
	var y interface{}
	require.NoError(t, yaml.Unmarshal([]byte("records:\n  - title: A\n    amount: 1500\n"), &y))
	fromYAML := From(y)
	fromJSON := decodeJSON(t, `{"records": [{"title": "A", "amount": 1500}]}`)

	for _, root := range []*Node{fromYAML, fromJSON} {
		recs := root.Get("records").List()
		require.Len(t, recs, 1)
		assert.Equal(t, "A", recs[0].Get("title").String())
		assert.Equal(t, "1500", recs[0].Get("amount").String())
	}
}

func TestNode_ListOfSingleMapping(t *testing.T) {
	root := decodeJSON(t, `{"external-id": {"external-id-type": "doi"}}`)

	ids := root.Get("external-id").List()
	require.Len(t, ids, 1)
	assert.Equal(t, "doi", ids[0].Get("external-id-type").String())
}

func TestNode_TextUnwrapsValue(t *testing.T) {
	root := decodeJSON(t, `{"year": {"value": "2020"}, "month": "05"}`)

	assert.Equal(t, "2020", root.Get("year").Text())
	assert.Equal(t, "05", root.Get("month").Text())
}

func TestCompact(t *testing.T) {
	m := Compact(Map{
		"a": "",
		"b": nil,
		"c": Map{"d": ""},
		"e": "x",
		"f": Value(""),
	})
	assert.Equal(t, Map{"e": "x"}, m)
}
