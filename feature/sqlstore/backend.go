package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storesync/core/database"
	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Row is one stored record.
type Row struct {
	Type      string    `gorm:"column:record_type;primaryKey;size:64"`
	Key       string    `gorm:"column:record_key;primaryKey;size:191"`
	Data      []byte    `gorm:"column:data"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// Options holds the settings of one SQL store.
type Options struct {
	// Table is the table holding the records.
	Table string `mapstructure:"table"`
	// Driver overrides the configured database driver.
	Driver string `mapstructure:"driver"`
	// Name overrides the configured database name.
	Name string `mapstructure:"name"`
	// SkipMigrate disables table creation and the column check on connect.
	SkipMigrate bool `mapstructure:"skip_migrate"`
}

const defaultTable = "records"

// Backend is the connection of a SQL store.
type Backend struct {
	cfg  database.Config
	opts Options
	log  *zap.Logger

	mu        sync.RWMutex
	db        *gorm.DB
	owned     bool
	connected bool
}

// NewBackend returns a backend opening its own connection from cfg.
func NewBackend(cfg database.Config, opts Options, logger *zap.Logger) *Backend {
	if opts.Driver != "" {
		cfg.Driver = opts.Driver
	}
	if opts.Name != "" {
		cfg.Name = opts.Name
	}
	return newBackend(cfg, opts, logger)
}

// WithDB returns a backend using an already open connection, which it never
// closes.
func WithDB(db *gorm.DB, opts Options, logger *zap.Logger) *Backend {
	b := newBackend(database.Config{}, opts, logger)
	b.db = db
	return b
}

func newBackend(cfg database.Config, opts Options, logger *zap.Logger) *Backend {
	if opts.Table == "" {
		opts.Table = defaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{cfg: cfg, opts: opts, log: logger}
}

// Table returns the records table name.
func (b *Backend) Table() string {
	return b.opts.Table
}

func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}
	if b.db == nil {
		db, err := database.Connect(ctx, b.cfg)
		if err != nil {
			return err
		}
		b.db = db
		b.owned = true
	}

	if !b.opts.SkipMigrate {
		if err := b.migrate(ctx); err != nil {
			return err
		}
	}

	b.connected = true
	b.log.Debug("SQL backend connected", zap.String("table", b.opts.Table), zap.String("driver", b.db.Dialector.Name()))
	return nil
}

func (b *Backend) migrate(ctx context.Context) error {
	db := b.db.WithContext(ctx)
	if err := db.Table(b.opts.Table).AutoMigrate(&Row{}); err != nil {
		return fmt.Errorf("migrate table %s: %w", b.opts.Table, err)
	}

	missing, err := database.MissingColumns(db, b.opts.Table, "record_type", "record_key", "data", "updated_at")
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", b.opts.Table, strings.Join(missing, ", "))
	}
	return nil
}

func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connected = false
	if b.owned && b.db != nil {
		err := database.Close(b.db)
		b.db = nil
		b.owned = false
		return err
	}
	return nil
}

func (b *Backend) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// session returns the connection bound to ctx, or nil when disconnected.
func (b *Backend) session(ctx context.Context) *gorm.DB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.connected || b.db == nil {
		return nil
	}
	return b.db.WithContext(ctx)
}

// Factory builds SQL stores from the database configuration. Spec options
// decode into Options.
func Factory(cfg database.Config, logger *zap.Logger) store.Factory {
	return func(ctx context.Context, spec store.Spec, types []*record.Type) (*store.Store, error) {
		var opts Options
		if err := spec.DecodeOptions(&opts); err != nil {
			return nil, err
		}
		b := NewBackend(cfg, opts, logger)
		return store.New(spec.Name, b, logger, NewAccessor(b, types...)), nil
	}
}
