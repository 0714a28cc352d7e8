package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/recordhub/internal/support/tree"
)

// ErrInvalidDate is returned for text that is not a recognizable partial date.
var ErrInvalidDate = errors.New("invalid partial date")

// PartialDate is a date that may carry only a year, or a year and month.
// A zero Year means no date.
type PartialDate struct {
	Year  int
	Month int
	Day   int
}

// ParsePartialDate accepts YYYY, YYYY-MM, YYYY-MM-DD, YYYY/MM/DD, DD/MM/YYYY and MM/YYYY.
// The position of the four digit segment decides the ordering. Empty text yields a zero date.
func ParsePartialDate(text string) (PartialDate, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return PartialDate{}, nil
	}
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' || r == '.' })
	bad := fmt.Errorf("%w: %q", ErrInvalidDate, text)

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return PartialDate{}, bad
		}
		nums[i] = n
	}

	var d PartialDate
	switch len(parts) {
	case 1:
		if len(parts[0]) != 4 {
			return PartialDate{}, bad
		}
		d = PartialDate{Year: nums[0]}
	case 2:
		switch {
		case len(parts[0]) == 4:
			d = PartialDate{Year: nums[0], Month: nums[1]}
		case len(parts[1]) == 4:
			d = PartialDate{Year: nums[1], Month: nums[0]}
		default:
			return PartialDate{}, bad
		}
	case 3:
		switch {
		case len(parts[0]) == 4:
			d = PartialDate{Year: nums[0], Month: nums[1], Day: nums[2]}
		case len(parts[2]) == 4:
			d = PartialDate{Year: nums[2], Month: nums[1], Day: nums[0]}
		default:
			return PartialDate{}, bad
		}
	default:
		return PartialDate{}, bad
	}
	if !d.valid() {
		return PartialDate{}, bad
	}
	return d, nil
}

func (d PartialDate) valid() bool {
	if d.Year < 1000 || d.Year > 9999 {
		return false
	}
	if d.Month == 0 {
		return d.Day == 0
	}
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	if d.Day == 0 {
		return true
	}
	last := time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return d.Day >= 1 && d.Day <= last
}

// IsZero reports whether no date is set.
func (d PartialDate) IsZero() bool { return d.Year == 0 }

// String renders YYYY, YYYY-MM or YYYY-MM-DD; a zero date renders as "".
func (d PartialDate) String() string {
	switch {
	case d.IsZero():
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Tree renders the date as {year:{value}, month:{value}, day:{value}}, or nil for a zero date.
func (d PartialDate) Tree() tree.Map {
	if d.IsZero() {
		return nil
	}
	m := tree.Map{"year": tree.Value(fmt.Sprintf("%04d", d.Year))}
	if d.Month > 0 {
		m["month"] = tree.Value(fmt.Sprintf("%02d", d.Month))
	}
	if d.Day > 0 {
		m["day"] = tree.Value(fmt.Sprintf("%02d", d.Day))
	}
	return m
}

// PartialDateFromTree reads either the nested {year:{value}} shape or plain date text.
func PartialDateFromTree(n *tree.Node) (PartialDate, error) {
	if n.Missing() {
		return PartialDate{}, nil
	}
	if !n.IsMap() {
		return ParsePartialDate(n.Text())
	}
	year := n.Get("year").Text()
	if year == "" {
		return PartialDate{}, nil
	}
	text := year
	if month := n.Get("month").Text(); month != "" {
		text += "-" + month
		if day := n.Get("day").Text(); day != "" {
			text += "-" + day
		}
	}
	return ParsePartialDate(text)
}

// Value stores the date as its string form, or NULL when zero.
func (d PartialDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads the string form written by Value.
func (d *PartialDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = PartialDate{}
		return nil
	case string:
		parsed, err := ParsePartialDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into PartialDate", src)
}
