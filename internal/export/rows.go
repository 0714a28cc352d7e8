package export

import (
	"strings"
	"time"

	"github.com/tigerroll/recordhub/internal/domain/model"
)

// Row is one remote write of a task flattened for columnar export.
// Multi-person records yield one row per invitee, including already processed ones.
type Row struct {
	TaskID      int64  `parquet:"name=task_id, type=INT64"`
	RecordID    int64  `parquet:"name=record_id, type=INT64"`
	Row         int32  `parquet:"name=row, type=INT32"`
	Kind        string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Section     string `parquet:"name=section, type=BYTE_ARRAY, convertedtype=UTF8"`
	LocalID     string `parquet:"name=local_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Email       string `parquet:"name=email, type=BYTE_ARRAY, convertedtype=UTF8"`
	ORCID       string `parquet:"name=orcid, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName   string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName    string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	PutCode     string `parquet:"name=put_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Visibility  string `parquet:"name=visibility, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsActive    bool   `parquet:"name=is_active, type=BOOLEAN"`
	IsDeletion  bool   `parquet:"name=is_deletion, type=BOOLEAN"`
	Failed      bool   `parquet:"name=failed, type=BOOLEAN"`
	ProcessedAt string `parquet:"name=processed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status      string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Flatten expands a record into its export rows.
func Flatten(rec model.Record) []Row {
	b := rec.Base()
	base := Row{
		TaskID:      int64(b.TaskID),
		RecordID:    int64(b.ID),
		Row:         int32(b.Row),
		Kind:        string(rec.Kind()),
		Section:     rec.Section(),
		LocalID:     b.LocalID,
		Visibility:  b.Visibility,
		IsActive:    b.IsActive,
		IsDeletion:  b.IsDeletion,
		ProcessedAt: timestamp(b.ProcessedAt),
	}

	if !rec.Kind().MultiPerson() {
		r := base
		if pr, ok := rec.(model.PersonRecord); ok {
			setPerson(&r, *pr.Subject())
		}
		r.PutCode = b.PutCode
		r.Status = b.Status
		r.Failed = b.HasError()
		return []Row{r}
	}

	ch := rec.Children()
	if ch.Invitees == nil || len(*ch.Invitees) == 0 {
		r := base
		r.Status = b.Status
		r.Failed = b.HasError()
		return []Row{r}
	}
	rows := make([]Row, 0, len(*ch.Invitees))
	for _, inv := range *ch.Invitees {
		r := base
		setPerson(&r, inv.Person)
		r.PutCode = inv.PutCode
		if inv.Visibility != "" {
			r.Visibility = inv.Visibility
		}
		r.ProcessedAt = timestamp(inv.ProcessedAt)
		r.Status = inv.Status
		r.Failed = strings.Contains(inv.Status, model.StatusError)
		rows = append(rows, r)
	}
	return rows
}

func setPerson(r *Row, p model.Person) {
	r.Email = p.Email
	r.ORCID = p.ORCID
	r.FirstName = p.FirstName
	r.LastName = p.LastName
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
