package vocab

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type countryTable struct {
	byKey map[string]string
	names map[string]string
}

// buildCountries enumerates every two-letter ISO-3166 country code known to x/text
// and indexes it by code, English name and the configured aliases.
func buildCountries(aliases map[string]string) countryTable {
	namer := display.Regions(language.English)
	t := countryTable{byKey: map[string]string{}, names: map[string]string{}}
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})
			r, err := language.ParseRegion(code)
			if err != nil || !r.IsCountry() || r.IsPrivateUse() || r.String() != code {
				continue
			}
			t.byKey[countryKey(code)] = code
			if name := namer.Name(r); name != "" {
				t.names[code] = name
				t.byKey[countryKey(name)] = code
			}
		}
	}
	for alias, code := range aliases {
		if _, ok := t.names[code]; ok {
			t.byKey[countryKey(alias)] = code
		}
	}
	return t
}

func countryKey(s string) string {
	s = folder.String(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Country normalizes a country code or English country name to an ISO-3166-1 alpha-2 code.
func Country(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	code, ok := get().countries.byKey[countryKey(text)]
	return code, ok
}

// CountryName returns the English name of an alpha-2 code, or "".
func CountryName(code string) string {
	return get().countries.names[strings.ToUpper(code)]
}
