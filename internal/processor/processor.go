// Package processor drives activated records through reconciliation and the remote registry.
//
// A run picks a bounded page of pending records, groups their units by organisation, kind and
// person, and per group either writes to the person's remote record (when the person granted a
// usable credential) or sends an invitation. Every record's outcome is committed on its own; a
// failing record never rolls back its siblings.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/invite"
	"github.com/tigerroll/recordhub/internal/metrics"
	"github.com/tigerroll/recordhub/internal/notification"
	"github.com/tigerroll/recordhub/internal/reconcile"
	"github.com/tigerroll/recordhub/internal/remote"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

const moduleName = "processor"

// Inviter sends invitations to people without a usable credential. *invite.Inviter satisfies it.
type Inviter interface {
	Invite(ctx context.Context, actor model.Actor, org *model.Organisation, taskID uint, p model.Person, aff model.Affiliation) (invite.Outcome, error)
}

// Summary counts what one run did.
type Summary struct {
	Records   int
	Written   int
	Deleted   int
	Invited   int
	Failed    int
	Completed []uint
}

// Processor is safe for concurrent use; runs are serialized.
type Processor struct {
	store     store.Store
	registry  remote.Registry
	engine    *reconcile.Engine
	inviter   Inviter
	notifier  notification.Notifier
	publisher events.Publisher
	recorder  metrics.Recorder
	tracer    trace.Tracer
	budget    int
	clientID  string
	actor     model.Actor
	now       func() time.Time

	mu sync.Mutex
}

// Dependencies groups the collaborators of a Processor.
type Dependencies struct {
	fx.In

	Store     store.Store
	Registry  remote.Registry
	Engine    *reconcile.Engine
	Inviter   Inviter
	Notifier  notification.Notifier
	Publisher events.Publisher
	Recorder  metrics.Recorder
	Tracer    trace.Tracer
}

func NewProcessor(cfg *config.Config, deps Dependencies) *Processor {
	return &Processor{
		store:     deps.Store,
		registry:  deps.Registry,
		engine:    deps.Engine,
		inviter:   deps.Inviter,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		tracer:    deps.Tracer,
		budget:    cfg.RecordHub.Processor.RowBudget,
		clientID:  cfg.RecordHub.Remote.ClientID,
		actor:     model.SystemActor,
		now:       time.Now,
	}
}

// Run processes up to budget pending records across all tasks. A budget of 0 uses processor.row_budget.
func (p *Processor) Run(ctx context.Context, budget int) (Summary, error) {
	if budget <= 0 {
		budget = p.budget
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "processor.run", trace.WithAttributes(attribute.Int("budget", budget)))
	defer span.End()

	start := p.now()
	recs, err := p.store.PendingRecords(ctx, budget)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, err
	}
	sum, err := p.process(ctx, recs)
	p.recorder.RecordRun(ctx, p.now().Sub(start), sum.Records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if sum.Records > 0 {
		logger.Infof("Processor run finished: %d record(s), %d written, %d deleted, %d invited, %d failed, %d task(s) completed.",
			sum.Records, sum.Written, sum.Deleted, sum.Invited, sum.Failed, len(sum.Completed))
	}
	return sum, err
}

// ProcessTask processes every active, unprocessed record of one task. Tasks in RESET status are skipped.
func (p *Processor) ProcessTask(ctx context.Context, taskID uint) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "processor.task", trace.WithAttributes(attribute.Int64("task.id", int64(taskID))))
	defer span.End()

	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		return Summary{}, err
	}
	if task.Status == model.TaskStatusReset {
		logger.Infof("Task %d is reset; skipping until its records are re-activated.", taskID)
		return Summary{}, nil
	}
	start := p.now()
	recs, err := p.store.UnprocessedRecords(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		return Summary{}, err
	}
	sum, err := p.process(ctx, recs)
	p.recorder.RecordRun(ctx, p.now().Sub(start), sum.Records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return sum, err
}

// process handles one page of records. The returned error aggregates store failures only;
// remote failures are recorded on the records themselves. Outcomes are committed group by
// group on a context detached from cancellation, so a remote write that finished is always
// recorded even when the run is stopped.
func (p *Processor) process(ctx context.Context, recs []model.Record) (Summary, error) {
	sum := Summary{Records: len(recs)}
	if len(recs) == 0 {
		return sum, nil
	}
	keep := context.WithoutCancel(ctx)
	b := newBatch(p)
	var errs error
	for _, rec := range recs {
		if err := b.add(ctx, rec); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, rec := range b.settled {
		if err := b.commit(keep, rec); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, g := range b.groups {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		p.handleGroup(ctx, b, g, &sum)
		for _, rec := range g.records() {
			if err := b.commit(keep, rec); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	for _, id := range b.taskIDs {
		done, err := p.complete(keep, id)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if done {
			sum.Completed = append(sum.Completed, id)
		}
	}
	return sum, errs
}

// handleGroup processes the units of one person.
func (p *Processor) handleGroup(ctx context.Context, b *batch, g *group, sum *Summary) {
	ctx, span := p.tracer.Start(ctx, "processor.person", trace.WithAttributes(
		attribute.String("kind", string(g.kind)),
		attribute.Int64("org.id", int64(g.org.ID)),
		attribute.Int("units", len(g.jobs)),
	))
	defer span.End()

	if g.person.IsEmpty() {
		for _, j := range g.jobs {
			p.fail(ctx, j, sum, errors.New("neither e-mail nor ORCID iD is known"))
		}
		return
	}

	cred, user, err := p.credential(ctx, g)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		for _, j := range g.jobs {
			p.fail(ctx, j, sum, err)
		}
		return
	}
	if cred == nil {
		p.invite(ctx, g, sum)
		return
	}

	id := remote.Identity{ORCID: g.person.ORCID, Email: g.person.Email, AccessToken: cred.AccessToken}
	if user.ORCID != "" {
		id.ORCID = user.ORCID
	}
	p.write(ctx, b.claims(id), g, id, sum)
}

// credential returns the usable credential of the group's person, or nil when the person has
// none. A person unknown to the directory has none.
func (p *Processor) credential(ctx context.Context, g *group) (*model.Credential, *model.User, error) {
	user, err := p.store.FindUser(ctx, g.person)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	cred, err := p.store.FindCredential(ctx, user.ID, g.org.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, user, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !cred.Usable(g.kind.WriteScope(), p.now()) {
		logger.Debugf("Credential of user %d for organisation %d lacks %s or expired.", user.ID, g.org.ID, g.kind.WriteScope())
		return nil, user, nil
	}
	return cred, user, nil
}

// write reconciles the group's units against the remote record and writes each of them.
// taken holds the put-codes of the remote record already claimed in this run. Units not yet
// written when ctx is cancelled stay pending.
func (p *Processor) write(ctx context.Context, taken map[string]struct{}, g *group, id remote.Identity, sum *Summary) {
	doc, err := p.registry.GetRemoteRecord(ctx, id)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		for _, j := range g.jobs {
			p.fail(ctx, j, sum, fmt.Errorf("failed to fetch remote record: %w", err))
		}
		return
	}

	var writes []model.Unit
	for _, j := range g.jobs {
		if !j.deletion() {
			writes = append(writes, j.unit)
		}
	}
	for _, j := range g.jobs {
		if pc := j.unit.PutCode(); pc != "" {
			taken[pc] = struct{}{}
		}
	}
	for _, m := range p.engine.AssignExcluding(writes, doc, g.org.ClientID, taken) {
		if m.Placeholder {
			m.Unit.AppendStatus(fmt.Sprintf("WARNING: matched put-code %s by blank identity fields only", m.PutCode))
		}
	}

	for _, j := range g.jobs {
		if ctx.Err() != nil {
			return
		}
		u := j.unit
		kind, section := u.Record.Kind(), u.Record.Section()
		if j.deletion() {
			pc := u.PutCode()
			if pc == "" {
				p.fail(ctx, j, sum, errors.New("nothing to delete: no put-code"))
				continue
			}
			if err := p.registry.DeleteEntry(ctx, id, section, pc); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.fail(ctx, j, sum, err)
				continue
			}
			u.AppendStatus(fmt.Sprintf("deleted %s put-code %s", section, pc))
			u.MarkProcessed(p.now())
			p.recorder.RecordUnit(ctx, string(kind), metrics.OutcomeDeleted)
			sum.Deleted++
			continue
		}

		res, err := p.registry.CreateOrUpdateEntry(ctx, id, remote.Entry{
			Kind:    kind,
			Section: section,
			PutCode: u.PutCode(),
			Payload: model.Payload(u),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.fail(ctx, j, sum, err)
			continue
		}
		taken[res.PutCode] = struct{}{}
		u.SetPutCode(res.PutCode)
		u.SetORCID(res.ORCID)
		outcome := metrics.OutcomeUpdated
		if res.Created {
			outcome = metrics.OutcomeCreated
		}
		u.AppendStatus(fmt.Sprintf("%s %s put-code %s", outcome, section, res.PutCode))
		u.MarkProcessed(p.now())
		p.recorder.RecordUnit(ctx, string(kind), outcome)
		sum.Written++
	}
}

// invite sends one invitation for the whole group. The units stay pending until the person
// grants access; a failed delivery is logged and retried by a later run.
func (p *Processor) invite(ctx context.Context, g *group, sum *Summary) {
	var aff model.Affiliation
	for _, j := range g.jobs {
		if a, ok := model.AffiliationForSection(j.unit.Record.Section()); ok {
			aff = aff.Union(a)
		}
	}
	out, err := p.inviter.Invite(ctx, p.actor, g.org, g.taskID, g.person, aff)
	if err != nil {
		logger.Errorf("Failed to invite %s on behalf of organisation %d: %v", g.person.Key(), g.org.ID, err)
		return
	}
	for _, j := range g.jobs {
		switch {
		case out.Sent:
			j.unit.AppendStatus("invitation sent to " + g.person.Email)
			p.recorder.RecordUnit(ctx, string(g.kind), metrics.OutcomeInvited)
		case !j.invited():
			j.unit.AppendStatus("invitation already sent on " + out.LastSent.UTC().Format(time.RFC3339))
			p.recorder.RecordUnit(ctx, string(g.kind), metrics.OutcomeWaiting)
		}
	}
	if out.Sent {
		sum.Invited++
	}
}

// fail records err on the unit and marks it processed. Failures are terminal until re-activation.
func (p *Processor) fail(ctx context.Context, j job, sum *Summary, err error) {
	j.unit.AppendStatus(model.StatusError + ": " + err.Error())
	j.unit.MarkProcessed(p.now())
	p.recorder.RecordUnit(ctx, string(j.unit.Record.Kind()), metrics.OutcomeFailed)
	sum.Failed++
	logger.Warnf("Record %d of task %d failed: %v", j.unit.Record.Base().ID, j.unit.Record.Base().TaskID, err)
}

func (p *Processor) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	if err := p.publisher.Publish(ctx, e); err != nil {
		logger.Warnf("Failed to publish %s event for task %d: %v", e.Type, e.TaskID, err)
	}
}
