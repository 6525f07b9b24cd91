package replication

import (
	"storesync/core/record"
	"storesync/core/store"
)

// DefaultCount is the default synchronize page size.
const DefaultCount = 5000

// Config holds configuration for synchronization.
type Config struct {
	// Count is the number of records read per page.
	Count int `mapstructure:"count" default:"5000"`
	// IntervalSeconds is the delay between periodic runs. Zero runs once.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"0"`
	// Watch enables live propagation between stores.
	Watch bool `mapstructure:"watch" default:"false"`
	// Types declares the record types.
	Types []record.TypeSpec `mapstructure:"types"`
	// Stores declares the managed stores, in order.
	Stores []store.Spec `mapstructure:"stores"`
}
