// Package reconcile compares the records held by several stores and plans
// the writes that bring them back in line.
//
// Synchronization copies everything everywhere. Reconciliation answers a
// narrower question first: for every record identity (type and key), which
// stores hold it, and do they hold the same version?
//
// # Indices
//
// Each store is scanned page by page into an Index of type, key and content
// hash. Stores are scanned concurrently. Only stores serving a type take part
// in its comparison. An Engine keeps built indices for Spec.CacheTTL and
// collapses concurrent builds of the same spec.
//
// # Results
//
// A Result lists per store whether the record is present, and which stores
// hold a version different from the reference. The reference is
// Spec.Reference when set, else the first store in Spec.Stores holding the
// record.
//
// # Plans
//
// A Plan turns results into actions:
//
//   - purge removes a record from every store holding it when any store
//     misses it;
//   - repair writes the reference version into stores missing it or holding a
//     different version.
//
// Purge takes precedence over repair for the same record. ApplyPlan only
// writes when Options.Confirmed is set and Options.DryRun is not.
//
//	engine := reconcile.NewEngine(logger)
//	spec := &reconcile.Spec{Stores: stores, CacheTTL: time.Minute}
//	plan, n, err := engine.ReconcileAndApply(ctx, spec, reconcile.Options{DoRepair: true, Confirmed: true})
package reconcile
