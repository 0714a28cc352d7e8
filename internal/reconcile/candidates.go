package reconcile

import (
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

// Candidate is one remote entry that a unit may be matched to.
type Candidate struct {
	PutCode string
	// Key holds the identity-defining field values in MatchKey order.
	Key []string
}

// sectionPath locates the container of a section's entries and the key each entry summary is stored under.
type sectionPath struct {
	container []string
	entry     string
}

func pathFor(kind model.Kind, section string) (sectionPath, bool) {
	switch kind {
	case model.KindAffiliation:
		return sectionPath{container: []string{"activities-summary", section + "s"}, entry: section + "-summary"}, true
	case model.KindFunding:
		return sectionPath{container: []string{"activities-summary", "fundings"}, entry: "funding-summary"}, true
	case model.KindWork:
		return sectionPath{container: []string{"activities-summary", "works"}, entry: "work-summary"}, true
	case model.KindPeerReview:
		return sectionPath{container: []string{"activities-summary", "peer-reviews"}, entry: "peer-review-summary"}, true
	case model.KindResource:
		return sectionPath{container: []string{"activities-summary", "research-resources"}, entry: "research-resource-summary"}, true
	case model.KindOtherID:
		return sectionPath{container: []string{"person", "external-identifiers"}, entry: "external-identifier"}, true
	case model.KindProperty:
		switch section {
		case "researcher-url":
			return sectionPath{container: []string{"person", "researcher-urls"}, entry: "researcher-url"}, true
		case "keyword":
			return sectionPath{container: []string{"person", "keywords"}, entry: "keyword"}, true
		case "address":
			return sectionPath{container: []string{"person", "addresses"}, entry: "address"}, true
		case "other-name":
			return sectionPath{container: []string{"person", "other-names"}, entry: "other-name"}, true
		}
	}
	return sectionPath{}, false
}

// Candidates lists the entries of the section in remote that were written by sourceClientID,
// in document order. Entries from other sources are never candidates.
func Candidates(remote *tree.Node, kind model.Kind, section, sourceClientID string) []Candidate {
	p, ok := pathFor(kind, section)
	if !ok || remote.Missing() || sourceClientID == "" {
		return nil
	}
	var out []Candidate
	for _, n := range collect(remote.Path(p.container...), tree.NormalizeKey(p.entry)) {
		if n.Path("source", "source-client-id", "path").Text() != sourceClientID {
			continue
		}
		pc := n.Get("put-code").String()
		if pc == "" {
			continue
		}
		out = append(out, Candidate{PutCode: pc, Key: keyOf(kind, section, n)})
	}
	return out
}

// collect walks n depth first and returns every node stored under key.
// Lists are flattened so grouped and ungrouped layouts read the same.
func collect(n *tree.Node, key string) []*tree.Node {
	if n.Missing() {
		return nil
	}
	var out []*tree.Node
	if n.IsList() {
		for _, e := range n.List() {
			out = append(out, collect(e, key)...)
		}
		return out
	}
	if !n.IsMap() {
		return nil
	}
	for _, k := range n.Keys() {
		child := n.Get(k)
		if tree.NormalizeKey(k) == key {
			out = append(out, child.List()...)
			continue
		}
		out = append(out, collect(child, key)...)
	}
	return out
}

func keyOf(kind model.Kind, section string, n *tree.Node) []string {
	title := n.Path("title", "title").Text()
	switch kind {
	case model.KindAffiliation:
		return []string{dateText(n.Get("start-date")), n.Get("department-name").Text(), n.Get("role-title").Text()}
	case model.KindFunding:
		return []string{title, n.Get("type").Text(), n.Path("organization", "name").Text()}
	case model.KindWork:
		return []string{title, n.Get("type").Text()}
	case model.KindPeerReview:
		return []string{n.Get("review-group-id").Text(), n.Get("review-type").Text(), dateText(n.Get("completion-date"))}
	case model.KindResource:
		return []string{n.Path("proposal", "title", "title").Text()}
	case model.KindOtherID:
		return []string{n.Get("external-id-type").Text(), n.Get("external-id-value").Text()}
	case model.KindProperty:
		switch section {
		case "researcher-url":
			return []string{n.Get("url-name").Text(), n.Get("url").Text()}
		case "address":
			return []string{n.Get("country").Text()}
		}
		return []string{n.Get("content").Text()}
	}
	return nil
}

func dateText(n *tree.Node) string {
	d, err := model.PartialDateFromTree(n)
	if err != nil {
		return strings.TrimSpace(n.Text())
	}
	return d.String()
}
