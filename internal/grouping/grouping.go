// Package grouping collapses contiguous rows into parent records and removes duplicate children.
package grouping

import "github.com/tigerroll/recordhub/internal/domain/model"

// Contiguous splits items into runs of consecutive elements that share a key.
// An empty key never joins the previous run.
func Contiguous[T any](items []T, key func(T) string) [][]T {
	var (
		groups [][]T
		prev   string
	)
	for i, it := range items {
		k := key(it)
		if i == 0 || k == "" || k != prev {
			groups = append(groups, []T{it})
		} else {
			groups[len(groups)-1] = append(groups[len(groups)-1], it)
		}
		prev = k
	}
	return groups
}

// Unique keeps the first item of every distinct key, preserving order.
func Unique[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Merge appends the incoming items whose key is not already present.
func Merge[T any](existing, incoming []T, key func(T) string) []T {
	return Unique(append(existing, incoming...), key)
}

func externalIDTuple(e model.ExternalID) string { return e.Tuple() }
func inviteeTuple(i model.Invitee) string       { return i.Tuple() }
func contributorTuple(c model.Contributor) string {
	return c.Tuple()
}

// Dedupe removes duplicate children of a record in place.
func Dedupe(r model.Record) {
	ch := r.Children()
	if ch.ExternalIDs != nil {
		*ch.ExternalIDs = Unique(*ch.ExternalIDs, externalIDTuple)
	}
	if ch.Invitees != nil {
		*ch.Invitees = Unique(*ch.Invitees, inviteeTuple)
	}
	if ch.Contributors != nil {
		*ch.Contributors = Unique(*ch.Contributors, contributorTuple)
	}
}

// MergeChildren unions the children of src into dst.
func MergeChildren(dst, src model.Record) {
	d, s := dst.Children(), src.Children()
	if d.ExternalIDs != nil && s.ExternalIDs != nil {
		*d.ExternalIDs = Merge(*d.ExternalIDs, *s.ExternalIDs, externalIDTuple)
	}
	if d.Invitees != nil && s.Invitees != nil {
		*d.Invitees = Merge(*d.Invitees, *s.Invitees, inviteeTuple)
	}
	if d.Contributors != nil && s.Contributors != nil {
		*d.Contributors = Merge(*d.Contributors, *s.Contributors, contributorTuple)
	}
}

// Records folds consecutive records with the same group key into the first of each run.
// The group key is read before any merging, so it reflects what each source row carried.
func Records(records []model.Record) []model.Record {
	type keyed struct {
		rec model.Record
		key string
	}
	rows := make([]keyed, len(records))
	for i, r := range records {
		rows[i] = keyed{rec: r, key: r.GroupKey()}
	}
	runs := Contiguous(rows, func(k keyed) string { return k.key })
	out := make([]model.Record, 0, len(runs))
	for _, run := range runs {
		parent := run[0].rec
		for _, k := range run[1:] {
			MergeChildren(parent, k.rec)
		}
		Dedupe(parent)
		out = append(out, parent)
	}
	return out
}
