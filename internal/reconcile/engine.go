// Package reconcile matches pending units to entries already present in the remote registry,
// so an update reuses the remote identifier instead of creating a duplicate.
package reconcile

import (
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/logger"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

// Match is a put-code assignment made by Assign.
type Match struct {
	Unit    model.Unit
	PutCode string
	// Placeholder is set when the match rests only on both sides having blank identity fields.
	// Such a match may pair unrelated entries and is reported, not prevented.
	Placeholder bool
}

// Engine assigns remote put-codes to units by identity-field equality.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Assign matches every unit that has no put-code yet against the candidates in remote.
// Put-codes already held by a unit, or assigned earlier in the same call, are never handed out twice.
// The first matching candidate in document order wins. A nil remote matches nothing.
// Matched units receive the put-code through Unit.SetPutCode.
func (e *Engine) Assign(units []model.Unit, remote *tree.Node, sourceClientID string) []Match {
	return e.AssignExcluding(units, remote, sourceClientID, make(map[string]struct{}, len(units)))
}

// AssignExcluding is Assign with a caller-held set of put-codes that are already claimed.
// Put-codes held by the units and every put-code handed out are added to taken, so the
// same set passed across calls for one remote record keeps assignments unique between them.
func (e *Engine) AssignExcluding(units []model.Unit, remote *tree.Node, sourceClientID string, taken map[string]struct{}) []Match {
	for _, u := range units {
		if pc := u.PutCode(); pc != "" {
			taken[pc] = struct{}{}
		}
	}
	if remote.Missing() {
		return nil
	}

	cache := make(map[string][]Candidate)
	var matches []Match
	for _, u := range units {
		if u.PutCode() != "" {
			continue
		}
		kind, section := u.Record.Kind(), u.Record.Section()
		ck := string(kind) + "/" + section
		cands, ok := cache[ck]
		if !ok {
			cands = Candidates(remote, kind, section, sourceClientID)
			cache[ck] = cands
		}

		want := u.Record.MatchKey()
		for _, c := range cands {
			if _, used := taken[c.PutCode]; used {
				continue
			}
			placeholder := blank(want) && blank(c.Key)
			if !placeholder && !equal(want, c.Key) {
				continue
			}
			taken[c.PutCode] = struct{}{}
			u.SetPutCode(c.PutCode)
			matches = append(matches, Match{Unit: u, PutCode: c.PutCode, Placeholder: placeholder})
			if placeholder {
				logger.Warnf("Record %d of task %d matched remote %s %s only by blank identity fields.",
					u.Record.Base().ID, u.Record.Base().TaskID, section, c.PutCode)
			}
			break
		}
	}
	return matches
}

func blank(key []string) bool {
	for _, v := range key {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
