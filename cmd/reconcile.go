package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"storesync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcilePurge     bool
	reconcileRepair    bool
	reconcileDryRun    bool
	reconcileYes       bool
	reconcileReference string
	reconcileTypes     []string
	reconcileStores    []string
	reconcileCount     int
)

// reconcileCmd compares the configured stores with optional purge/repair.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stores (report + optionally purge/repair)",
	Long: `Compare the records held by the configured stores.

Reports records missing in some stores and records whose versions differ.
Optionally purge (remove) records missing in any store, or repair stores from
the reference version.

Examples:
  # Report only
  storesync reconcile

  # Repair every store from primary (with interactive confirmation)
  storesync reconcile --repair --reference primary

  # Purge records missing in any store, non-interactive
  storesync reconcile --purge --yes

  # Restrict to users in two stores
  storesync reconcile --type user --store primary,cache`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcilePurge, "purge", false, "Enable purge (remove records missing in any store)")
	reconcileCmd.Flags().BoolVar(&reconcileRepair, "repair", false, "Enable repair (copy the reference version where missing or different)")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	reconcileCmd.Flags().BoolVar(&reconcileYes, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	reconcileCmd.Flags().StringVar(&reconcileReference, "reference", "", "Authoritative store (default: first store holding the record)")
	reconcileCmd.Flags().StringSliceVarP(&reconcileTypes, "type", "t", nil, "Record types to compare (default: every served type)")
	reconcileCmd.Flags().StringSliceVar(&reconcileStores, "store", nil, "Stores to compare, in priority order (default: every store)")
	reconcileCmd.Flags().IntVar(&reconcileCount, "count", 0, "Page size used to scan stores (default: sync.count)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := loadRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.close(ctx)
	l := rt.logger

	spec, err := rt.reconcileSpec(reconcileStores, reconcileTypes, reconcileReference, reconcileCount)
	if err != nil {
		return err
	}

	opts := reconcile.Options{
		DoPurge:   reconcilePurge,
		DoRepair:  reconcileRepair,
		DryRun:    reconcileDryRun,
		Confirmed: false, // Set after confirmation prompt
	}

	engine := reconcile.NewEngine(l)

	// Step 1: Plan (always runs)
	l.Info("Planning reconciliation...")
	plan, err := engine.Plan(ctx, spec, opts)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}

	// Step 2: Print report
	printReconcileReport(l, plan)

	// Step 3: Check if actions are requested
	if !reconcilePurge && !reconcileRepair {
		l.Info("No actions requested. Use --purge to remove incomplete records or --repair to copy the reference version.")
		return nil
	}

	// Step 4: Apply (if confirmed)
	if reconcileDryRun {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(plan.Actions) == 0 {
		l.Info("No actions required based on current flags.")
		return nil
	}

	if !confirmDestructiveAction(cmd.InOrStdin(), cmd.OutOrStdout(), reconcileYes) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}
	opts.Confirmed = true

	l.Info("Applying actions...")
	executed, err := engine.ApplyPlan(ctx, spec, plan, opts)
	if err != nil {
		return fmt.Errorf("failed to apply plan (%d actions executed): %w", executed, err)
	}

	l.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// reconcileSpec resolves store and type names against the runtime.
func (rt *runtime) reconcileSpec(stores, types []string, reference string, count int) (*reconcile.Spec, error) {
	spec := &reconcile.Spec{Reference: reference, Count: count}
	if spec.Count <= 0 {
		spec.Count = rt.registry.Count()
	}

	var err error
	if spec.Stores, err = rt.registry.Lookup(stores...); err != nil {
		return nil, err
	}
	if spec.Types, err = rt.schema.Lookup(types...); err != nil {
		return nil, err
	}
	if reference != "" {
		if _, err := rt.registry.Lookup(reference); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("total_items", s.TotalItems),
		zap.Any("missing", s.Missing),
		zap.Int("mismatches", s.Mismatches),
	)

	if len(plan.Actions) == 0 {
		return
	}

	l.Info("Planned actions",
		zap.Int("purge_actions", s.PurgeActions),
		zap.Int("repair_actions", s.RepairActions),
		zap.Int("total_actions", len(plan.Actions)),
	)

	// Show sample of actions (max 5 for logger)
	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("store", action.Store),
			zap.String("record_type", action.RecordType),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(in io.Reader, out io.Writer, yes bool) bool {
	if yes {
		fmt.Fprintln(out, "\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprint(out, "\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
