package model

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidORCID is returned for identifiers with a bad shape or check digit.
var ErrInvalidORCID = errors.New("invalid ORCID iD")

var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// NormalizeORCID strips a resolver prefix and verifies the ISO 7064 11,2 check digit.
// Empty text yields "".
func NormalizeORCID(text string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return "", nil
	}
	if i := strings.LastIndex(s, "ORCID.ORG/"); i >= 0 {
		s = s[i+len("ORCID.ORG/"):]
	}
	if len(s) == 16 && !strings.Contains(s, "-") {
		s = s[0:4] + "-" + s[4:8] + "-" + s[8:12] + "-" + s[12:16]
	}
	if !orcidPattern.MatchString(s) || !ValidORCID(s) {
		return "", ErrInvalidORCID
	}
	return s, nil
}

// ValidORCID checks the trailing check digit of a hyphenated ORCID iD.
func ValidORCID(id string) bool {
	digits := strings.ReplaceAll(id, "-", "")
	if len(digits) != 16 {
		return false
	}
	total := 0
	for _, c := range digits[:15] {
		if c < '0' || c > '9' {
			return false
		}
		total = (total + int(c-'0')) * 2
	}
	check := (12 - total%11) % 11
	want := byte('0' + check)
	if check == 10 {
		want = 'X'
	}
	return digits[15] == want
}
