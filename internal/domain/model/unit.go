package model

import (
	"time"

	"github.com/tigerroll/recordhub/internal/support/tree"
)

// Unit is one remote write: a person-scoped record, or one invitee of a multi-person record.
type Unit struct {
	Record  Record
	Invitee *Invitee
}

// Units expands a record into its remote writes. Already processed invitees are skipped.
func Units(r Record) []Unit {
	if !r.Kind().MultiPerson() {
		return []Unit{{Record: r}}
	}
	ch := r.Children()
	if ch.Invitees == nil {
		return nil
	}
	var out []Unit
	list := *ch.Invitees
	for i := range list {
		if list[i].ProcessedAt == nil {
			out = append(out, Unit{Record: r, Invitee: &list[i]})
		}
	}
	return out
}

// Person returns the person the unit is written for.
func (u Unit) Person() Person {
	if u.Invitee != nil {
		return u.Invitee.Person
	}
	if pr, ok := u.Record.(PersonRecord); ok {
		return *pr.Subject()
	}
	return Person{}
}

// SetORCID records the remote identity returned by a write.
func (u Unit) SetORCID(orcid string) {
	if orcid == "" {
		return
	}
	if u.Invitee != nil {
		u.Invitee.ORCID = orcid
		return
	}
	if pr, ok := u.Record.(PersonRecord); ok {
		pr.Subject().ORCID = orcid
	}
}

func (u Unit) PutCode() string {
	if u.Invitee != nil {
		return u.Invitee.PutCode
	}
	return u.Record.Base().PutCode
}

func (u Unit) SetPutCode(code string) {
	if u.Invitee != nil {
		u.Invitee.PutCode = code
		return
	}
	u.Record.Base().PutCode = code
}

func (u Unit) Visibility() string {
	if u.Invitee != nil && u.Invitee.Visibility != "" {
		return u.Invitee.Visibility
	}
	return u.Record.Base().Visibility
}

// Processed reports whether the unit has a terminal outcome.
func (u Unit) Processed() bool {
	if u.Invitee != nil {
		return u.Invitee.ProcessedAt != nil
	}
	return u.Record.Base().ProcessedAt != nil
}

// AppendStatus logs a line on the unit. Invitee lines are mirrored on the record
// prefixed with the invitee's key so the record log shows every outcome.
func (u Unit) AppendStatus(line string) {
	if u.Invitee != nil {
		u.Invitee.Status = appendLine(u.Invitee.Status, line)
		u.Record.Base().AppendStatus(u.Invitee.Key() + ": " + line)
		return
	}
	u.Record.Base().AppendStatus(line)
}

// MarkProcessed sets the unit's processed time. A multi-person record becomes processed
// once all of its invitees are.
func (u Unit) MarkProcessed(at time.Time) {
	base := u.Record.Base()
	if u.Invitee == nil {
		base.ProcessedAt = &at
		return
	}
	u.Invitee.ProcessedAt = &at
	if ch := u.Record.Children(); ch.Invitees != nil {
		for _, i := range *ch.Invitees {
			if i.ProcessedAt == nil {
				return
			}
		}
	}
	base.ProcessedAt = &at
}

// localKeys are exported for round-tripping but never sent to the remote registry.
var localKeys = []string{
	"email", "orcid", "first-name", "last-name", "invitees", "is-active",
	"local-id", "delete", "affiliation-type",
}

// Payload renders the remote entry body for the unit.
func Payload(u Unit) tree.Map {
	m := u.Record.Export()
	for _, k := range localKeys {
		delete(m, k)
	}
	if u.Record.Kind() == KindProperty {
		delete(m, "type")
	}
	delete(m, "put-code")
	if pc := u.PutCode(); pc != "" {
		m["put-code"] = pc
	}
	if v := u.Visibility(); v != "" {
		m["visibility"] = v
	}
	return m
}
