package exception

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes of ingestion failures. LoadError wraps exactly one of them.
var (
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnmappedHeader   = errors.New("no recognizable column in header")
	ErrMissingColumn    = errors.New("required column missing")
	ErrMissingIdentity  = errors.New("neither email nor ORCID iD present")
	ErrVocabulary       = errors.New("value not in vocabulary")
	ErrCountry          = errors.New("invalid country")
	ErrDate             = errors.New("invalid date")
	ErrORCID            = errors.New("invalid ORCID iD")
	ErrShape            = errors.New("unexpected document shape")
	ErrUnsupportedInput = errors.New("unsupported input format")
)

// LoadError is a structural error raised while loading a payload.
// Row is the 1-based line (or record index for JSON/YAML) and Header the source column.
type LoadError struct {
	Row    int
	Header string
	Field  string
	Value  string
	Err    error
}

// NewLoadError creates a LoadError for the given row and header.
func NewLoadError(row int, header, field, value string, cause error) *LoadError {
	return &LoadError{Row: row, Header: header, Field: field, Value: value, Err: cause}
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	switch {
	case e.Header != "":
		fmt.Fprintf(&b, "column %q: ", e.Header)
	case e.Field != "":
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Err.Error())
	if e.Value != "" {
		fmt.Fprintf(&b, " (%q)", e.Value)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FieldError describes one invalid field of a record.
type FieldError struct {
	Field string
	Value string
	Rule  string
}

func (f FieldError) String() string {
	if f.Value == "" {
		return fmt.Sprintf("%s: %s", f.Field, f.Rule)
	}
	return fmt.Sprintf("%s: %s (%q)", f.Field, f.Rule, f.Value)
}

// ValidationError collects the invalid fields of a single record.
type ValidationError struct {
	Row    int
	Kind   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	prefix := e.Kind + " record"
	if e.Row > 0 {
		prefix = fmt.Sprintf("row %d: %s", e.Row, prefix)
	}
	return fmt.Sprintf("%s failed validation: %s", prefix, strings.Join(parts, "; "))
}

// IsLoadError reports whether err is, or wraps, a LoadError or ValidationError.
func IsLoadError(err error) bool {
	var le *LoadError
	var ve *ValidationError
	return errors.As(err, &le) || errors.As(err, &ve)
}
