// Package validate checks loaded payloads and records before they are persisted.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/domain/vocab"
	"github.com/tigerroll/recordhub/internal/support/exception"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func vocabTag(set func() vocab.Set) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		c, ok := set().Normalize(v)
		return ok && c == v
	}
}

func countryTag(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	code, ok := vocab.Country(v)
	return ok && code == v
}

func orcidTag(fl validator.FieldLevel) bool {
	return model.ValidORCID(fl.Field().String())
}

func affSectionTag(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, s := range vocab.AffiliationSections() {
		if s == v {
			return true
		}
	}
	return false
}

// affiliationRules checks the fields whose requirement depends on other fields.
func affiliationRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(model.AffiliationRecord)
	if r.OrgName == "" {
		sl.ReportError(r.OrgName, "OrgName", "OrgName", "required", "")
	}
	if r.Person.IsEmpty() {
		sl.ReportError(r.Email, "Email", "Email", "identity", "")
	}
}

func personRules(sl validator.StructLevel) {
	var p model.Person
	switch r := sl.Current().Interface().(type) {
	case model.PropertyRecord:
		p = r.Person
	case model.OtherIDRecord:
		p = r.Person
	case model.Invitee:
		p = r.Person
	}
	if p.IsEmpty() {
		sl.ReportError(p.Email, "Email", "Email", "identity", "")
	}
}

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		tags := map[string]validator.Func{
			"visibility":   vocabTag(vocab.Visibilities),
			"extidtype":    vocabTag(vocab.ExternalIDTypes),
			"relationship": vocabTag(vocab.Relationships),
			"fundingtype":  vocabTag(vocab.FundingTypes),
			"worktype":     vocabTag(vocab.WorkTypes),
			"reviewrole":   vocabTag(vocab.ReviewRoles),
			"reviewtype":   vocabTag(vocab.ReviewTypes),
			"proptype":     vocabTag(vocab.PropertyTypes),
			"contribrole":  vocabTag(vocab.ContributorRoles),
			"country":      countryTag,
			"orcid":        orcidTag,
			"affsection":   affSectionTag,
		}
		for tag, fn := range tags {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("register validation %q: %v", tag, err))
			}
		}
		v.RegisterStructValidation(affiliationRules, model.AffiliationRecord{})
		v.RegisterStructValidation(personRules, model.PropertyRecord{}, model.OtherIDRecord{}, model.Invitee{})
		instance = v
	})
	return instance
}

// Record validates the fields of one record. Deletion records only need the
// put-code of the entry they remove.
func Record(rec model.Record) error {
	base := rec.Base()
	if base.IsDeletion {
		return deletion(rec)
	}
	err := get().Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &exception.ValidationError{Row: base.Row, Kind: string(rec.Kind())}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, exception.FieldError{
			Field: fieldPath(fe.Namespace()),
			Value: fmt.Sprint(fe.Value()),
			Rule:  fe.Tag(),
		})
	}
	return out
}

func deletion(rec model.Record) error {
	base := rec.Base()
	out := &exception.ValidationError{Row: base.Row, Kind: string(rec.Kind())}
	if ch := rec.Children(); ch.Invitees != nil {
		for i, inv := range *ch.Invitees {
			if inv.PutCode == "" && base.PutCode == "" {
				out.Fields = append(out.Fields, exception.FieldError{Field: fmt.Sprintf("Invitees[%d].PutCode", i), Rule: "required"})
			}
		}
		if len(*ch.Invitees) > 0 {
			if len(out.Fields) == 0 {
				return nil
			}
			return out
		}
	}
	if base.PutCode == "" {
		out.Fields = append(out.Fields, exception.FieldError{Field: "PutCode", Rule: "required"})
		return out
	}
	return nil
}

// fieldPath drops the struct name and embedded struct names from a validator namespace.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		switch p {
		case "RecordBase", "Person", "OrgRef":
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}
