package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDelimited parses CSV or TSV text. A CSV header that comes out as a single
// cell containing a tab is re-read as TSV.
func readDelimited(data []byte, comma rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	rows, err := parseDelimited(data, comma)
	if err != nil {
		return nil, err
	}
	if comma == ',' && len(rows) > 0 && len(rows[0]) == 1 && strings.Contains(rows[0][0], "\t") {
		return parseDelimited(data, '\t')
	}
	return rows, nil
}

func parseDelimited(data []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, exception.NewLoadError(line, "", "", "", fmt.Errorf("%w: %v", exception.ErrMalformedRow, err))
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// readWorkbook returns the rows of the first sheet.
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", exception.ErrUnsupportedInput, err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", exception.ErrUnsupportedInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// tableRecords binds the header and builds one record per non-blank row.
// Row numbers are 1-based source lines, the header being line 1.
func tableRecords(kind model.Kind, rows [][]string) ([]model.Record, error) {
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, exception.NewLoadError(0, "", "", "", fmt.Errorf("%w: empty file", exception.ErrMalformedRow))
	}
	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	b, err := bind(kind, header)
	if err != nil {
		return nil, err
	}
	if !b.has(fEmail) && !b.has(fORCID) && !allDeletions(b, rows[1:]) {
		return nil, exception.NewLoadError(1, strings.Join(header, ","), fEmail, "", exception.ErrMissingIdentity)
	}

	build := builders[kind]
	var records []model.Record
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		if len(cells) > len(header) && !blank(cells[len(header):]) {
			return nil, exception.NewLoadError(i+2, "", "", "",
				fmt.Errorf("%w: %d cells for %d columns", exception.ErrMalformedRow, len(cells), len(header)))
		}
		r := &rowReader{row: i + 2, lookup: cellLookup(b, cells)}
		rec := build(r)
		if r.err != nil {
			return nil, r.err
		}
		records = append(records, rec)
	}
	return records, nil
}

func cellLookup(b binding, cells []string) func(string) (string, string) {
	return func(field string) (string, string) {
		i, ok := b.index[field]
		if !ok {
			return "", ""
		}
		if i >= len(cells) {
			return "", b.header[i]
		}
		return cells[i], b.header[i]
	}
}

func allDeletions(b binding, rows [][]string) bool {
	if !b.has(fDelete) {
		return false
	}
	i := b.index[fDelete]
	for _, cells := range rows {
		if blank(cells) {
			continue
		}
		if i >= len(cells) || !isTrue(cells[i]) {
			return false
		}
	}
	return true
}
