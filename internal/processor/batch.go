package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/remote"
	"github.com/tigerroll/recordhub/internal/store"
)

// job is one unit together with the person it is written for.
type job struct {
	unit   model.Unit
	person model.Person
}

func (j job) deletion() bool { return j.unit.Record.Base().IsDeletion }

// invited reports whether the unit's log already mentions an invitation.
func (j job) invited() bool {
	status := j.unit.Record.Base().Status
	if j.unit.Invitee != nil {
		status = j.unit.Invitee.Status
	}
	return strings.Contains(status, "invitation")
}

// group collects the units of one person within one organisation and kind.
type group struct {
	org    *model.Organisation
	kind   model.Kind
	taskID uint
	person model.Person
	jobs   []job
}

// records returns the distinct records the group's units belong to, in order.
func (g *group) records() []model.Record {
	seen := make(map[model.Record]struct{}, len(g.jobs))
	out := make([]model.Record, 0, len(g.jobs))
	for _, j := range g.jobs {
		if _, ok := seen[j.unit.Record]; ok {
			continue
		}
		seen[j.unit.Record] = struct{}{}
		out = append(out, j.unit.Record)
	}
	return out
}

// batch is the working set of one run.
type batch struct {
	p      *Processor
	tasks  map[uint]*model.Task
	orgs   map[uint]*model.Organisation
	index  map[string]*group
	groups []*group
	// settled holds records finished without any unit to process.
	settled []model.Record
	taskIDs []uint
	// taken is keyed by remote identity; see claims.
	taken     map[string]map[string]struct{}
	published map[model.Record]struct{}
}

func newBatch(p *Processor) *batch {
	return &batch{
		p:         p,
		tasks:     make(map[uint]*model.Task),
		orgs:      make(map[uint]*model.Organisation),
		index:     make(map[string]*group),
		taken:     make(map[string]map[string]struct{}),
		published: make(map[model.Record]struct{}),
	}
}

// claims returns the put-codes already claimed in this run on the remote record of id.
// Groups are keyed by the identity a record names, so one person referenced by e-mail in one
// record and by ORCID iD in another reaches the same remote record through two groups.
func (b *batch) claims(id remote.Identity) map[string]struct{} {
	key := "orcid:" + id.ORCID
	if id.ORCID == "" {
		key = "email:" + strings.ToLower(id.Email)
	}
	set, ok := b.taken[key]
	if !ok {
		set = make(map[string]struct{})
		b.taken[key] = set
	}
	return set
}

// commit stores the outcome of rec and announces it once it is processed.
func (b *batch) commit(ctx context.Context, rec model.Record) error {
	base := rec.Base()
	if err := b.p.store.SaveOutcome(ctx, b.p.actor, rec); err != nil {
		return err
	}
	if base.ProcessedAt != nil {
		if _, ok := b.published[rec]; !ok {
			b.published[rec] = struct{}{}
			b.p.publish(ctx, events.Event{
				Type:   events.RecordProcessed,
				TaskID: base.TaskID,
				Kind:   string(rec.Kind()),
				Data:   map[string]interface{}{"record_id": base.ID, "put_code": base.PutCode, "error": base.HasError()},
			})
		}
	}
	return nil
}

func (b *batch) touch(taskID uint) {
	for _, id := range b.taskIDs {
		if id == taskID {
			return
		}
	}
	b.taskIDs = append(b.taskIDs, taskID)
}

func (b *batch) organisation(ctx context.Context, taskID uint) (*model.Task, *model.Organisation, error) {
	task, ok := b.tasks[taskID]
	if !ok {
		t, err := b.p.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, nil, err
		}
		task = t
		b.tasks[taskID] = task
	}
	org, ok := b.orgs[task.OrgID]
	if !ok {
		o, err := b.p.store.FindOrganisation(ctx, task.OrgID)
		if err != nil {
			return nil, nil, err
		}
		org = o
		b.orgs[task.OrgID] = org
	}
	return task, org, nil
}

// add expands rec into units and files them under their person's group. A record that cannot
// be resolved is left out of the run and its error returned.
func (b *batch) add(ctx context.Context, rec model.Record) error {
	base := rec.Base()
	task, org, err := b.organisation(ctx, base.TaskID)
	if err != nil {
		return err
	}

	units := model.Units(rec)
	if len(units) == 0 {
		now := b.p.now()
		if ch := rec.Children(); ch.Invitees != nil && len(*ch.Invitees) == 0 {
			base.AppendStatus(model.StatusError + ": record has no invitees")
		}
		base.ProcessedAt = &now
		b.settled = append(b.settled, rec)
		b.touch(task.ID)
		return nil
	}

	jobs := make([]job, 0, len(units))
	for _, u := range units {
		person := u.Person()
		if person.IsEmpty() && base.IsDeletion && u.PutCode() != "" {
			owner, err := b.p.store.ResolvePutCodeOwner(ctx, org.ID, rec.Kind(), u.PutCode())
			switch {
			case err == nil:
				person = *owner
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}
		jobs = append(jobs, job{unit: u, person: person})
	}

	b.touch(task.ID)
	for _, j := range jobs {
		key := fmt.Sprintf("%d|%s|%s", org.ID, rec.Kind(), j.person.Key())
		g, ok := b.index[key]
		if !ok {
			g = &group{org: org, kind: rec.Kind(), taskID: task.ID, person: j.person}
			b.index[key] = g
			b.groups = append(b.groups, g)
		}
		fillPerson(&g.person, j.person)
		g.jobs = append(g.jobs, j)
	}
	return nil
}

// fillPerson copies identity fields dst is missing from src.
func fillPerson(dst *model.Person, src model.Person) {
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.ORCID == "" {
		dst.ORCID = src.ORCID
	}
	if dst.FirstName == "" && dst.LastName == "" {
		dst.FirstName, dst.LastName = src.FirstName, src.LastName
	}
}
