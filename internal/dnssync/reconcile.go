package dnssync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subsync/internal/logging"
)

// recordWriter is the slice of the provider client the apply path needs.
// *Client satisfies it; tests substitute a recording fake.
type recordWriter interface {
	CreateRecord(ctx context.Context, ch Change) error
	UpdateRecord(ctx context.Context, ch Change) error
	DeleteRecord(ctx context.Context, ch Change) error
	ReplaceRedirects(ctx context.Context, rules []RedirectRule) error
}

// Reconciler applies plans. Work is split by FQDN so at most one mutation is
// ever in flight per name, and the delete phase drains completely before any
// create or update is issued.
type Reconciler struct {
	writer      recordWriter
	log         logging.Logger
	concurrency int
}

// NewReconciler returns a reconciler running at most concurrency mutations in
// parallel. Anything below 1 degrades to sequential execution.
func NewReconciler(writer recordWriter, log logging.Logger, concurrency int) *Reconciler {
	if log == nil {
		log = logging.NewNop(slog.LevelInfo)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{writer: writer, log: log, concurrency: concurrency}
}

// Run applies the plan: the delete phase, then creates and updates, then the
// redirect list replace. Individual mutation failures are logged and
// collected per unit; nothing in here aborts the run.
func (r *Reconciler) Run(ctx context.Context, plan *Plan) *Results {
	results := &Results{
		RunID:      uuid.NewString(),
		RootDomain: plan.RootDomain,
		Started:    time.Now().UTC(),
		InSync:     plan.InSync,
		Conflicts:  len(plan.Conflicts),
	}
	log := r.log.With("run_id", results.RunID)

	for _, c := range plan.Conflicts {
		log.Warnf("skipping %s: %d unmanaged record(s) hold the name (%s)",
			c.FQDN, len(c.Holders), strings.Join(c.Holders, ", "))
	}

	r.applyPhase(ctx, log, plan.Deletes, results)

	writes := make([]Change, 0, len(plan.Creates)+len(plan.Updates))
	writes = append(writes, plan.Creates...)
	writes = append(writes, plan.Updates...)
	r.applyPhase(ctx, log, writes, results)

	r.replaceRedirects(ctx, log, plan.Redirects, results)

	results.Completed = time.Now().UTC()
	return results
}

// applyPhase runs one phase to completion. Changes are grouped by FQDN and
// each group is a single work unit, executed in order within itself.
func (r *Reconciler) applyPhase(ctx context.Context, log logging.Logger, changes []Change, results *Results) {
	if len(changes) == 0 {
		return
	}

	groups := make(map[string][]Change)
	var order []string
	for _, ch := range changes {
		if _, seen := groups[ch.FQDN]; !seen {
			order = append(order, ch.FQDN)
		}
		groups[ch.FQDN] = append(groups[ch.FQDN], ch)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, name := range order {
		group := groups[name]
		g.Go(func() error {
			for _, ch := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := r.applyChange(gctx, ch); err != nil {
					log.Errorf("%s %s %s failed: %v", ch.Action, ch.Kind, ch.FQDN, err)
					mu.Lock()
					results.Units = append(results.Units, UnitOutcome{
						Action: ch.Action, FQDN: ch.FQDN, Kind: ch.Kind, Error: err.Error(),
					})
					results.Failures = append(results.Failures, Failure{
						Action: ch.Action,
						FQDN:   ch.FQDN,
						Kind:   ch.Kind,
						Error:  err.Error(),
					})
					mu.Unlock()
					continue
				}
				log.Infof("%s %s %s", ch.Action, ch.Kind, ch.FQDN)
				mu.Lock()
				results.Units = append(results.Units, UnitOutcome{
					Action: ch.Action, FQDN: ch.FQDN, Kind: ch.Kind, OK: true,
				})
				switch ch.Action {
				case ActionCreate:
					results.Created++
				case ActionUpdate:
					results.Updated++
				case ActionDelete:
					results.Deleted++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("phase interrupted: %v", err)
	}
}

func (r *Reconciler) applyChange(ctx context.Context, ch Change) error {
	switch ch.Action {
	case ActionCreate:
		return r.writer.CreateRecord(ctx, ch)
	case ActionUpdate:
		return r.writer.UpdateRecord(ctx, ch)
	case ActionDelete:
		return r.writer.DeleteRecord(ctx, ch)
	default:
		return fmt.Errorf("unsupported action %q", ch.Action)
	}
}

// replaceRedirects runs independently of the DNS phases; its failure never
// blocks them and theirs never blocks it.
func (r *Reconciler) replaceRedirects(ctx context.Context, log logging.Logger, rules []RedirectRule, results *Results) {
	results.RedirectCount = len(rules)
	if err := r.writer.ReplaceRedirects(ctx, rules); err != nil {
		log.Errorf("redirect list replace failed: %v", err)
		results.Units = append(results.Units, UnitOutcome{Action: ActionReplaceRedirects, Error: err.Error()})
		results.Failures = append(results.Failures, Failure{
			Action: ActionReplaceRedirects,
			Error:  err.Error(),
		})
		return
	}
	results.RedirectsReplaced = true
	results.Units = append(results.Units, UnitOutcome{Action: ActionReplaceRedirects, OK: true})
	log.Infof("redirect list replaced with %d rule(s)", len(rules))
}
