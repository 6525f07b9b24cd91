package reconcile

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"storesync/core/accessor"
	"storesync/core/record"
	"storesync/core/store"
	"storesync/core/utils"
)

// Result is the reconciliation of one record identity across stores.
type Result struct {
	// Type is the record type name.
	Type string `json:"type"`

	// Key is the record key.
	Key string `json:"key"`

	// Present maps every compared store name to whether it holds the record.
	Present map[string]bool `json:"present"`

	// Mismatch lists the stores holding a version that differs from the
	// reference store.
	Mismatch []string `json:"mismatch"`

	// Reference is the store whose version is authoritative for this record,
	// empty when no eligible store holds it.
	Reference string `json:"reference,omitempty"`
}

// Missing returns the names of the stores not holding the record, sorted.
func (r Result) Missing() []string {
	var out []string
	for name, ok := range r.Present {
		if !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Complete reports whether every store holds the same version.
func (r Result) Complete() bool {
	return len(r.Missing()) == 0 && len(r.Mismatch) == 0
}

// Spec defines the scope of a reconciliation.
type Spec struct {
	// Stores are the compared stores, in priority order.
	Stores []*store.Store

	// Types restricts the compared record types. Empty means every type
	// served by any store.
	Types []*record.Type

	// Filter restricts the compared records.
	Filter accessor.Filter

	// Reference names the authoritative store. Empty means the first store,
	// in Stores order, holding the record.
	Reference string

	// Count is the page size used to scan stores. Zero means 5000.
	Count int

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a key identifying the indices a spec needs.
func (s *Spec) CacheKey() string {
	var b strings.Builder
	for _, st := range s.Stores {
		b.WriteString(st.Name())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, t := range s.types() {
		b.WriteString(t.Name())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	keys := make([]string, 0, len(s.Filter))
	for k := range s.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(utils.ToString(s.Filter[k]))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.count()))
	return b.String()
}

func (s *Spec) types() []*record.Type {
	if len(s.Types) > 0 {
		return s.Types
	}
	seen := make(map[*record.Type]bool)
	var out []*record.Type
	for _, st := range s.Stores {
		for _, t := range st.Types() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	record.SortTypes(out)
	return out
}

func (s *Spec) count() int {
	if s.Count > 0 {
		return s.Count
	}
	return 5000
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionRemove removes a record from a store.
	ActionRemove ActionType = "remove"
	// ActionRepair upserts the reference version of a record into a store.
	ActionRepair ActionType = "repair"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Store is the store to mutate.
	Store string `json:"store"`

	// RecordType is the record type name.
	RecordType string `json:"record_type"`

	// Key is the record key.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Record is the record to remove, or the reference version to write.
	Record *record.Record `json:"-"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	// Results contains one entry per record identity, sorted by type then
	// key.
	Results []Result `json:"results"`

	// Actions contains planned mutation operations.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`
}

// Summary provides aggregate statistics for a plan.
type Summary struct {
	// TotalItems is the number of distinct record identities.
	TotalItems int `json:"total_items"`

	// Missing counts the records missing per store.
	Missing map[string]int `json:"missing"`

	// Mismatches counts records with at least one differing version.
	Mismatches int `json:"mismatches"`

	// PurgeActions counts planned remove actions.
	PurgeActions int `json:"purge_actions"`

	// RepairActions counts planned repair actions.
	RepairActions int `json:"repair_actions"`
}

// Options controls planning and application of mutations.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoPurge removes records missing in any store from every store holding
	// them.
	DoPurge bool

	// DoRepair copies the reference version into stores missing the record
	// or holding a different version.
	DoRepair bool

	// Confirmed indicates user has confirmed destructive actions.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
