package loader

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the encoding of an uploaded payload.
type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV
	case "tsv", "tab":
		return FormatTSV
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "xlsx":
		return FormatXLSX
	}
	return FormatAuto
}

// Tabular reports whether the format is a header-and-rows sheet.
func (f Format) Tabular() bool {
	return f == FormatCSV || f == FormatTSV || f == FormatXLSX
}

// DetectFormat resolves the payload format: declared format, then file extension,
// then a leading '[' or '{', then content sniffing, then the header line, else YAML.
func DetectFormat(declared Format, filename string, data []byte) Format {
	if declared != FormatAuto {
		return declared
	}
	if f := ParseFormat(filepath.Ext(filename)); f != FormatAuto {
		return f
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return FormatXLSX
	case mt.Is("text/tab-separated-values"):
		return FormatTSV
	case mt.Is("text/csv"):
		return FormatCSV
	case mt.Is("application/json"):
		return FormatJSON
	}
	first := string(trimmed)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	switch {
	case strings.Contains(first, "\t"):
		return FormatTSV
	case strings.Contains(first, ",") && !strings.Contains(first, ": "):
		return FormatCSV
	}
	return FormatYAML
}
