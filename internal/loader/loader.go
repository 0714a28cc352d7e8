// Package loader turns uploaded CSV, TSV, XLSX, JSON and YAML payloads into a task and its records.
package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/grouping"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
	"github.com/tigerroll/recordhub/internal/validate"
)

// Input is one uploaded payload.
type Input struct {
	Filename string
	Data     []byte
	// Kind may be left empty for documents that declare their type.
	Kind   model.Kind
	Format Format
}

// Result is an unsaved task and its records.
type Result struct {
	Task    *model.Task
	Records []model.Record
}

// Loader parses, normalizes, groups and validates payloads.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the payload. Any structural or validation failure rejects the whole payload.
func (l *Loader) Load(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := DetectFormat(in.Format, in.Filename, in.Data)
	kind := in.Kind
	filename := in.Filename

	var (
		records []model.Record
		err     error
	)
	switch format {
	case FormatCSV, FormatTSV, FormatXLSX:
		if kind == "" {
			return nil, fmt.Errorf("%w: record kind is required for %s files", exception.ErrUnsupportedInput, format)
		}
		var rows [][]string
		switch format {
		case FormatXLSX:
			rows, err = readWorkbook(in.Data)
		case FormatTSV:
			rows, err = readDelimited(in.Data, '\t')
		default:
			rows, err = readDelimited(in.Data, ',')
		}
		if err != nil {
			return nil, err
		}
		records, err = tableRecords(kind, rows)
	case FormatJSON, FormatYAML:
		root, derr := decodeDocument(in.Data, format)
		if derr != nil {
			return nil, derr
		}
		docName, docKind, merr := documentMeta(root)
		if merr != nil {
			return nil, merr
		}
		if kind == "" {
			kind = docKind
		}
		if filename == "" {
			filename = docName
		}
		if kind == "" {
			return nil, fmt.Errorf("%w: record kind is neither given nor declared in the document", exception.ErrUnsupportedInput)
		}
		records, err = documentRecords(kind, root)
	default:
		return nil, fmt.Errorf("%w: %q", exception.ErrUnsupportedInput, format)
	}
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := checkIdentity(rec); err != nil {
			return nil, err
		}
	}
	records = grouping.Records(records)
	for _, rec := range records {
		if err := validate.Record(rec); err != nil {
			return nil, err
		}
	}
	if len(records) == 0 {
		return nil, exception.NewLoadError(0, "", "", "", fmt.Errorf("%w: no records", exception.ErrMalformedRow))
	}

	if filename != "" {
		filename = filepath.Base(filename)
	}
	task := &model.Task{
		Kind:        kind,
		Filename:    filename,
		IsRaw:       !format.Tabular(),
		RecordCount: len(records),
	}
	logger.Debugf("Loaded %d %s record(s) from '%s' (%s).", len(records), kind, task.Filename, format)
	return &Result{Task: task, Records: records}, nil
}

// checkIdentity requires an e-mail or ORCID iD for every non-deletion row.
func checkIdentity(rec model.Record) error {
	base := rec.Base()
	if base.IsDeletion {
		return nil
	}
	if pr, ok := rec.(model.PersonRecord); ok {
		if pr.Subject().IsEmpty() {
			return exception.NewLoadError(base.Row, "", "email", "", exception.ErrMissingIdentity)
		}
		return nil
	}
	ch := rec.Children()
	if ch.Invitees == nil {
		return nil
	}
	if len(*ch.Invitees) == 0 {
		return exception.NewLoadError(base.Row, "", "email", "", exception.ErrMissingIdentity)
	}
	for _, inv := range *ch.Invitees {
		if inv.Person.IsEmpty() {
			return exception.NewLoadError(base.Row, "", "email", "", exception.ErrMissingIdentity)
		}
	}
	return nil
}
