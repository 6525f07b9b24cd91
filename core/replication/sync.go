package replication

import (
	"context"
	"time"

	"storesync/core/accessor"
	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/zap"
)

// SyncOptions selects what Synchronize replicates. Empty fields default to
// every managed store, every type served by a source and the registry page
// size.
type SyncOptions struct {
	Types   []*record.Type
	Filter  accessor.Filter
	Sources []*store.Store
	Targets []*store.Store
	Count   int
}

// Report summarizes a synchronize run.
type Report struct {
	// Pages is the number of non-empty pages read.
	Pages int `json:"pages"`
	// Records is the number of records read from all sources.
	Records int `json:"records"`
	// PerSource is the number of records read per source store.
	PerSource map[string]int `json:"per_source"`
}

type replayKey struct{}

func replaying(ctx context.Context) bool {
	v, _ := ctx.Value(replayKey{}).(bool)
	return v
}

// Synchronize upserts every record of each source matching opts into every
// target serving its type. A source is never written to itself. The first
// failure stops the run.
func (r *Registry) Synchronize(ctx context.Context, opts SyncOptions) (rep Report, err error) {
	start := time.Now()
	defer func() { r.metrics.SyncDone(start, err) }()

	sources := opts.Sources
	if len(sources) == 0 {
		sources = r.Stores()
	}
	targets := opts.Targets
	if len(targets) == 0 {
		targets = r.Stores()
	}
	types := opts.Types
	if len(types) == 0 {
		types = Types(sources)
	}
	count := opts.Count
	if count < 1 {
		count = r.Count()
	}

	rep.PerSource = make(map[string]int, len(sources))
	if len(types) == 0 {
		return rep, nil
	}
	if len(opts.Types) > 0 {
		r.warnUnserved(targets, types)
	}

	// Writes made here are not replayed by the watcher.
	ctx = context.WithValue(ctx, replayKey{}, true)

	for _, src := range sources {
		n, pages, err := r.syncSource(ctx, src, targets, types, opts.Filter, count)
		rep.PerSource[src.Name()] = n
		rep.Records += n
		rep.Pages += pages
		if err != nil {
			r.logger.Error("Synchronization failed", zap.String("source", src.Name()), zap.Error(err))
			return rep, err
		}
	}

	r.logger.Info("Synchronization finished",
		zap.Int("pages", rep.Pages),
		zap.Int("records", rep.Records),
		zap.Duration("duration", time.Since(start)),
	)
	return rep, nil
}

func (r *Registry) syncSource(ctx context.Context, src *store.Store, targets []*store.Store, types []*record.Type, filter accessor.Filter, count int) (int, int, error) {
	// Only request types the source serves; the others would fail dispatch.
	served := make(map[*record.Type]bool)
	for _, t := range src.Types() {
		served[t] = true
	}
	var own []*record.Type
	for _, t := range types {
		if served[t] {
			own = append(own, t)
		}
	}
	if len(own) == 0 {
		return 0, 0, nil
	}

	var records, pages int
	for skip := 0; ; skip += count {
		if err := ctx.Err(); err != nil {
			return records, pages, &Error{Source: src.Name(), Skip: skip, Err: err}
		}

		page, err := src.Find(ctx, store.Query{Types: own, Filter: filter, Limit: count, Skip: skip})
		if err != nil {
			return records, pages, &Error{Source: src.Name(), Skip: skip, Err: err}
		}
		if len(page) == 0 {
			return records, pages, nil
		}
		pages++
		records += len(page)
		r.metrics.Page(src.Name())

		for _, dst := range targets {
			if dst == src {
				continue
			}
			batch := servedBy(dst, page)
			if len(batch) == 0 {
				continue
			}
			if _, err := dst.Update(ctx, batch, true); err != nil {
				return records, pages, &Error{Source: src.Name(), Target: dst.Name(), Skip: skip, Err: err}
			}
			r.metrics.Replicated(src.Name(), dst.Name(), len(batch))
		}

		r.logger.Debug("Page replicated",
			zap.String("source", src.Name()),
			zap.Int("skip", skip),
			zap.Int("records", len(page)),
		)
	}
}

// warnUnserved logs requested types a target cannot hold. Such records are
// skipped for that target rather than failing the run.
func (r *Registry) warnUnserved(targets []*store.Store, types []*record.Type) {
	for _, dst := range targets {
		served := make(map[*record.Type]bool)
		for _, t := range dst.Types() {
			served[t] = true
		}
		for _, t := range types {
			if !served[t] {
				r.logger.Warn("Target does not serve requested type, skipping",
					zap.String("target", dst.Name()),
					zap.String("type", t.Name()),
				)
			}
		}
	}
}

// servedBy returns the records of page whose type dst serves.
func servedBy(dst *store.Store, page []*record.Record) []*record.Record {
	served := make(map[*record.Type]bool)
	for _, t := range dst.Types() {
		served[t] = true
	}
	out := page[:0:0]
	for _, rec := range page {
		if served[rec.Type()] {
			out = append(out, rec)
		}
	}
	return out
}

// Run synchronizes once, then every interval until ctx is done. Failures of
// periodic runs are logged. With a non positive interval only the first run
// happens and its error is returned.
func (r *Registry) Run(ctx context.Context, interval time.Duration, opts SyncOptions) error {
	if _, err := r.Synchronize(ctx, opts); err != nil {
		if interval <= 0 {
			return err
		}
		r.logger.Warn("Periodic synchronization failed", zap.Error(err))
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Synchronize(ctx, opts); err != nil && ctx.Err() == nil {
				r.logger.Warn("Periodic synchronization failed", zap.Error(err))
			}
		}
	}
}
