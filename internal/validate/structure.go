package validate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

// required lists, per kind, the paths one of which must be present in every record.
var required = map[model.Kind][][]string{
	model.KindAffiliation: {{"organization", "name"}, {"organisation"}, {"org-name"}},
	model.KindFunding:     {{"title", "title"}, {"title"}},
	model.KindWork:        {{"title", "title"}, {"title"}},
	model.KindPeerReview:  {{"review-group-id"}},
	model.KindProperty:    {{"content"}, {"url"}, {"country"}, {"value"}},
	model.KindOtherID:     {{"external-id-value"}, {"value"}},
	model.KindResource:    {{"proposal", "title", "title"}, {"proposal", "title"}, {"title"}},
}

// Records returns the record list of a document: either the root list or its "records" entry.
func Records(root *tree.Node) ([]*tree.Node, bool) {
	if root.IsList() {
		return root.List(), true
	}
	if recs := root.Get("records"); recs.IsList() {
		return recs.List(), true
	}
	return nil, false
}

// Structure checks the shape of a whole JSON or YAML document and reports every violation.
func Structure(kind model.Kind, root *tree.Node) error {
	records, ok := Records(root)
	if !ok {
		return exception.NewLoadError(0, "", "records", "", fmt.Errorf("%w: expected a list of records", exception.ErrShape))
	}
	var result *multierror.Error
	for i, rec := range records {
		row := i + 1
		if !rec.IsMap() {
			result = multierror.Append(result, exception.NewLoadError(row, "", "record", "", fmt.Errorf("%w: record is not a mapping", exception.ErrShape)))
			continue
		}
		deletion := rec.Get("delete").Bool()
		if !deletion && !hasAny(rec, required[kind]) {
			result = multierror.Append(result, exception.NewLoadError(row, "", pathName(required[kind]), "", exception.ErrMissingColumn))
		}
		for _, key := range []string{"invitees", "contributors"} {
			if err := checkList(row, key, rec.Get(key)); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if kind.MultiPerson() {
			if !deletion && len(rec.Get("invitees").List()) == 0 && rec.First("email", "orcid").Missing() {
				result = multierror.Append(result, exception.NewLoadError(row, "", "invitees", "", exception.ErrMissingIdentity))
			}
		} else if !deletion && rec.First("email", "orcid").Missing() {
			result = multierror.Append(result, exception.NewLoadError(row, "", "email", "", exception.ErrMissingIdentity))
		}
		for _, key := range []string{"external-ids", "review-identifiers"} {
			ids := rec.Get(key)
			if ids.Missing() {
				continue
			}
			if !ids.IsMap() && !ids.IsList() {
				result = multierror.Append(result, exception.NewLoadError(row, "", key, "", exception.ErrShape))
				continue
			}
			if err := checkList(row, key+".external-id", ids.First("external-id")); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

func checkList(row int, field string, n *tree.Node) error {
	if n.Missing() {
		return nil
	}
	if !n.IsList() && !n.IsMap() {
		return exception.NewLoadError(row, "", field, n.String(), fmt.Errorf("%w: expected a list", exception.ErrShape))
	}
	for _, e := range n.List() {
		if !e.IsMap() {
			return exception.NewLoadError(row, "", field, e.String(), fmt.Errorf("%w: list entry is not a mapping", exception.ErrShape))
		}
	}
	return nil
}

func hasAny(n *tree.Node, paths [][]string) bool {
	if len(paths) == 0 {
		return true
	}
	for _, p := range paths {
		v := n.Path(p...)
		if v.IsScalar() && v.String() != "" || v.IsMap() && v.Text() != "" {
			return true
		}
	}
	return false
}

func pathName(paths [][]string) string {
	if len(paths) == 0 {
		return ""
	}
	name := ""
	for i, p := range paths[0] {
		if i > 0 {
			name += "."
		}
		name += p
	}
	return name
}
