package syncapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"storesync/core/accessor"
	"storesync/core/reconcile"
	"storesync/core/record"
	"storesync/core/replication"
	"storesync/core/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StoreInfo describes a managed store.
type StoreInfo struct {
	Name      string   `json:"name"`
	Connected bool     `json:"connected"`
	Types     []string `json:"types"`
}

// SyncRequest selects what a synchronize run replicates. Empty lists mean
// every store or type.
type SyncRequest struct {
	Types   []string `json:"types"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	Count   int      `json:"count"`
}

// key identifies equivalent requests.
func (r SyncRequest) key() string {
	norm := SyncRequest{
		Types:   sortedCopy(r.Types),
		Sources: sortedCopy(r.Sources),
		Targets: sortedCopy(r.Targets),
		Count:   r.Count,
	}
	b, _ := json.Marshal(norm)
	return string(b)
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// ReconcileRequest selects what a reconciliation compares and plans.
type ReconcileRequest struct {
	Types     []string `json:"types"`
	Stores    []string `json:"stores"`
	Reference string   `json:"reference"`
	Purge     bool     `json:"purge"`
	Repair    bool     `json:"repair"`
	// Apply executes the planned actions. Otherwise the plan is only
	// reported.
	Apply bool `json:"apply"`
}

// ReconcileResponse is a plan and the number of actions executed.
type ReconcileResponse struct {
	Plan     *reconcile.Plan `json:"plan"`
	Executed int             `json:"executed"`
}

// Service exposes the replication registry to HTTP handlers.
type Service struct {
	registry *replication.Registry
	engine   *reconcile.Engine
	logger   *zap.Logger
	group    singleflight.Group
}

// NewService creates a service on registry.
func NewService(registry *replication.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, engine: reconcile.NewEngine(logger), logger: logger}
}

// Stores describes every managed store in registry order.
func (s *Service) Stores() []StoreInfo {
	stores := s.registry.Stores()
	out := make([]StoreInfo, 0, len(stores))
	for _, st := range stores {
		types := st.Types()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = t.Name()
		}
		out = append(out, StoreInfo{Name: st.Name(), Connected: st.IsConnected(), Types: names})
	}
	return out
}

func (s *Service) resolve(storeName, typeName string) (*store.Store, *record.Type, error) {
	st, ok := s.registry.Store(storeName)
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", replication.ErrUnknownStore, storeName)
	}
	for _, t := range st.Types() {
		if t.Name() == typeName {
			return st, t, nil
		}
	}
	return nil, nil, fmt.Errorf("store %s: %w %q", storeName, record.ErrUnknownType, typeName)
}

// Records returns a page of raw records of one type from one store.
func (s *Service) Records(ctx context.Context, storeName, typeName string, limit, skip int) ([]map[string]any, error) {
	st, rtype, err := s.resolve(storeName, typeName)
	if err != nil {
		return nil, err
	}
	recs, err := st.Find(ctx, store.Query{Types: []*record.Type{rtype}, Limit: limit, Skip: skip})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = rec.Raw(true)
	}
	return out, nil
}

// Record returns the raw record of one type with the given key.
func (s *Service) Record(ctx context.Context, storeName, typeName, key string) (map[string]any, error) {
	st, rtype, err := s.resolve(storeName, typeName)
	if err != nil {
		return nil, err
	}
	probe, err := rtype.FromKey(key)
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrValidation, err)
	}
	rec, err := st.Get(ctx, probe)
	if err != nil {
		return nil, err
	}
	return rec.Raw(true), nil
}

// Sync runs a synchronization. Concurrent identical requests share one run.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (replication.Report, error) {
	v, err, shared := s.group.Do(req.key(), func() (any, error) {
		opts, err := s.options(req)
		if err != nil {
			return replication.Report{}, err
		}
		return s.registry.Synchronize(ctx, opts)
	})
	if shared {
		s.logger.Debug("Synchronization shared", zap.String("request", req.key()))
	}
	return v.(replication.Report), err
}

func (s *Service) options(req SyncRequest) (replication.SyncOptions, error) {
	var opts replication.SyncOptions
	var err error
	if len(req.Sources) > 0 {
		if opts.Sources, err = s.registry.Lookup(req.Sources...); err != nil {
			return opts, err
		}
	}
	if len(req.Targets) > 0 {
		if opts.Targets, err = s.registry.Lookup(req.Targets...); err != nil {
			return opts, err
		}
	}
	if opts.Types, err = s.types(req.Types); err != nil {
		return opts, err
	}
	opts.Count = req.Count
	return opts, nil
}

// types resolves names against the types served by any managed store.
func (s *Service) types(names []string) ([]*record.Type, error) {
	if len(names) == 0 {
		return nil, nil
	}
	schema := record.NewSchema(replication.Types(s.registry.Stores())...)
	return schema.Lookup(names...)
}

// Reconcile plans a reconciliation of the selected stores and, when
// req.Apply is set, executes the plan.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileResponse, error) {
	spec := &reconcile.Spec{Reference: req.Reference, Count: s.registry.Count()}

	var err error
	if spec.Stores, err = s.registry.Lookup(req.Stores...); err != nil {
		return ReconcileResponse{}, err
	}
	if req.Reference != "" {
		if _, err := s.registry.Lookup(req.Reference); err != nil {
			return ReconcileResponse{}, err
		}
	}
	if spec.Types, err = s.types(req.Types); err != nil {
		return ReconcileResponse{}, err
	}

	opts := reconcile.Options{
		DoPurge:   req.Purge,
		DoRepair:  req.Repair,
		DryRun:    !req.Apply,
		Confirmed: req.Apply,
	}
	plan, executed, err := s.engine.ReconcileAndApply(ctx, spec, opts)
	return ReconcileResponse{Plan: plan, Executed: executed}, err
}
