package reconcile

import (
	"context"
	"fmt"
	"sort"

	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/zap"
)

// Plan reconciles spec and returns the results with the actions opts asks
// for. It does NOT execute actions; use ApplyPlan for that.
func (e *Engine) Plan(ctx context.Context, spec *Spec, opts Options) (*Plan, error) {
	cache, err := e.GetOrBuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}

	results := fromCache(cache, spec)
	summary, actions := buildPlan(results, cache, opts)

	return &Plan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions of plan on spec.Stores and returns how many
// ran. Nothing runs unless opts.Confirmed is set and opts.DryRun is not.
// Applied writes do not notify store observers. Cached indices of spec are
// dropped once anything ran.
func (e *Engine) ApplyPlan(ctx context.Context, spec *Spec, plan *Plan, opts Options) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	byName := make(map[string]*store.Store, len(spec.Stores))
	for _, s := range spec.Stores {
		byName[s.Name()] = s
	}

	// Group actions per store, in plan order
	var order []string
	removes := make(map[string][]*record.Record)
	repairs := make(map[string][]*record.Record)
	for _, action := range plan.Actions {
		if _, ok := byName[action.Store]; !ok {
			return 0, fmt.Errorf("action on unknown store %q", action.Store)
		}
		if len(removes[action.Store]) == 0 && len(repairs[action.Store]) == 0 {
			order = append(order, action.Store)
		}
		switch action.Type {
		case ActionRemove:
			removes[action.Store] = append(removes[action.Store], action.Record)
		case ActionRepair:
			repairs[action.Store] = append(repairs[action.Store], action.Record)
		}
	}
	if len(order) == 0 {
		return 0, nil
	}

	defer e.InvalidateCache(spec)
	ctx = store.WithoutNotify(ctx)

	for _, name := range order {
		s := byName[name]
		if recs := removes[name]; len(recs) > 0 {
			if _, err := s.Remove(ctx, recs); err != nil {
				return executed, fmt.Errorf("failed to purge %d records from %s: %w", len(recs), name, err)
			}
			executed += len(recs)
		}
		if recs := repairs[name]; len(recs) > 0 {
			if _, err := s.Update(ctx, recs, true); err != nil {
				return executed, fmt.Errorf("failed to repair %d records in %s: %w", len(recs), name, err)
			}
			executed += len(recs)
		}
		e.logger.Info("Reconcile actions applied",
			zap.String("store", name),
			zap.Int("removed", len(removes[name])),
			zap.Int("repaired", len(repairs[name])),
		)
	}

	return executed, nil
}

// ReconcileAndApply plans spec and applies the plan when opts allow it.
// It returns the plan, number of actions executed, and any error.
func (e *Engine) ReconcileAndApply(ctx context.Context, spec *Spec, opts Options) (*Plan, int, error) {
	plan, err := e.Plan(ctx, spec, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := e.ApplyPlan(ctx, spec, plan, opts)
	return plan, executed, err
}

// buildPlan generates a summary and action plan from reconciliation results.
func buildPlan(results []Result, cache *Cache, opts Options) (Summary, []Action) {
	summary := Summary{
		TotalItems: len(results),
		Missing:    make(map[string]int),
	}
	var actions []Action

	for _, result := range results {
		missing := result.Missing()
		for _, name := range missing {
			summary.Missing[name]++
		}
		if len(result.Mismatch) > 0 {
			summary.Mismatches++
		}

		// Purge takes precedence over repair
		if opts.DoPurge && len(missing) > 0 {
			reason := missingReason(result)
			for _, name := range sortedPresent(result) {
				actions = append(actions, Action{
					Type:       ActionRemove,
					Store:      name,
					RecordType: result.Type,
					Key:        result.Key,
					Reason:     reason,
					Record:     cache.Indices[name][result.Type][result.Key].Record,
				})
				summary.PurgeActions++
			}
			continue
		}

		if !opts.DoRepair || result.Reference == "" {
			continue
		}
		ref := cache.Indices[result.Reference][result.Type][result.Key].Record
		for _, name := range missing {
			actions = append(actions, Action{
				Type:       ActionRepair,
				Store:      name,
				RecordType: result.Type,
				Key:        result.Key,
				Reason:     fmt.Sprintf("missing, copied from %s", result.Reference),
				Record:     ref,
			})
			summary.RepairActions++
		}
		for _, name := range result.Mismatch {
			held := cache.Indices[name][result.Type][result.Key].Record
			actions = append(actions, Action{
				Type:       ActionRepair,
				Store:      name,
				RecordType: result.Type,
				Key:        result.Key,
				Reason:     fmt.Sprintf("mismatch with %s: %v", result.Reference, diffFields(ref, held)),
				Record:     ref,
			})
			summary.RepairActions++
		}
	}

	return summary, actions
}

// sortedPresent returns the names of the stores holding the record, sorted.
func sortedPresent(result Result) []string {
	var out []string
	for name, ok := range result.Present {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
