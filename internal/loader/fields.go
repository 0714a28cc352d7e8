package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/domain/vocab"
	"github.com/tigerroll/recordhub/internal/support/exception"
)

// rowReader normalizes the fields of one source row. The first failure is kept
// and later reads keep returning zero values, so a builder runs to the end and
// the caller checks err once.
type rowReader struct {
	row    int
	lookup func(field string) (value, header string)
	err    error
}

func (r *rowReader) text(field string) string {
	v, _ := r.lookup(field)
	return strings.TrimSpace(v)
}

func (r *rowReader) fail(field, value string, cause error) {
	if r.err != nil {
		return
	}
	_, header := r.lookup(field)
	r.err = exception.NewLoadError(r.row, header, field, value, cause)
}

func (r *rowReader) date(field string) model.PartialDate {
	v := r.text(field)
	d, err := model.ParsePartialDate(v)
	if err != nil {
		r.fail(field, v, exception.ErrDate)
	}
	return d
}

func (r *rowReader) country(field string) string {
	v := r.text(field)
	if v == "" {
		return ""
	}
	code, ok := vocab.Country(v)
	if !ok {
		r.fail(field, v, exception.ErrCountry)
	}
	return code
}

func (r *rowReader) term(field string, set vocab.Set) string {
	v := r.text(field)
	if v == "" {
		return ""
	}
	c, ok := set.Normalize(v)
	if !ok {
		r.fail(field, v, fmt.Errorf("%w: %s", exception.ErrVocabulary, set.Name()))
	}
	return c
}

func (r *rowReader) orcid(field string) string {
	v := r.text(field)
	id, err := model.NormalizeORCID(v)
	if err != nil {
		r.fail(field, v, exception.ErrORCID)
	}
	return id
}

func (r *rowReader) flag(field string) bool {
	return isTrue(r.text(field))
}

func (r *rowReader) number(field string) int {
	v := r.text(field)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(field, v, exception.ErrMalformedRow)
	}
	return n
}

func (r *rowReader) section(field string) string {
	v := r.text(field)
	if v == "" {
		return ""
	}
	s, ok := vocab.AffiliationSection(v)
	if !ok {
		r.fail(field, v, fmt.Errorf("%w: affiliation type", exception.ErrVocabulary))
	}
	return s
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "1", "true":
		return true
	}
	return false
}
