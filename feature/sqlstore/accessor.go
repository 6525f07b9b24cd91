package sqlstore

import (
	"context"
	"errors"
	"math"
	"time"

	"storesync/core/accessor"
	"storesync/core/codec"
	"storesync/core/record"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errDisconnected = errors.New("sql backend not connected")

// Accessor serves record types from a Backend table.
type Accessor struct {
	backend *Backend
	types   []*record.Type
	served  map[string]*record.Type
}

var _ accessor.Accessor = (*Accessor)(nil)

// NewAccessor returns an accessor for types backed by b.
func NewAccessor(b *Backend, types ...*record.Type) *Accessor {
	served := make(map[string]*record.Type, len(types))
	for _, t := range types {
		served[t.Name()] = t
	}
	return &Accessor{backend: b, types: types, served: served}
}

func (a *Accessor) Types() []*record.Type {
	return a.types
}

func (a *Accessor) serves(t *record.Type) bool {
	return t != nil && a.served[t.Name()] == t
}

func (a *Accessor) db(ctx context.Context) (*gorm.DB, error) {
	db := a.backend.session(ctx)
	if db == nil {
		return nil, accessor.Wrap(accessor.ErrBackend, errDisconnected)
	}
	return db, nil
}

func (a *Accessor) Create(ctx context.Context, rtype *record.Type, data map[string]any) (*record.Record, error) {
	if !a.serves(rtype) {
		return nil, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	return accessor.Materialize(rtype, data)
}

func (a *Accessor) rows(records []*record.Record) ([]Row, error) {
	now := time.Now().UTC()
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if !a.serves(rec.Type()) {
			return nil, accessor.NewError(accessor.ErrValidation, rec.Type().Name(), rec.Key())
		}
		data, err := codec.Encode(rec)
		if err != nil {
			return nil, accessor.Wrap(accessor.ErrValidation, err)
		}
		rows = append(rows, Row{Type: rec.Type().Name(), Key: rec.Key(), Data: data, UpdatedAt: now})
	}
	return rows, nil
}

// existing returns the rows among rows already stored, as type/key pairs.
func (a *Accessor) existing(tx *gorm.DB, rows []Row) (map[[2]string]bool, error) {
	keys := make(map[string][]string)
	for _, r := range rows {
		keys[r.Type] = append(keys[r.Type], r.Key)
	}

	found := make(map[[2]string]bool)
	for typeName, batch := range keys {
		var stored []string
		err := tx.Table(a.backend.Table()).
			Where("record_type = ? AND record_key IN ?", typeName, batch).
			Pluck("record_key", &stored).Error
		if err != nil {
			return nil, accessor.Wrap(accessor.ErrBackend, err)
		}
		for _, k := range stored {
			found[[2]string{typeName, k}] = true
		}
	}
	return found, nil
}

func (a *Accessor) Add(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	rows, err := a.rows(records)
	if err != nil || len(rows) == 0 {
		return records, err
	}
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		found, err := a.existing(tx, rows)
		if err != nil {
			return err
		}
		seen := make(map[[2]string]bool, len(rows))
		for _, r := range rows {
			id := [2]string{r.Type, r.Key}
			if found[id] || seen[id] {
				return accessor.NewError(accessor.ErrAlreadyExists, r.Type, r.Key)
			}
			seen[id] = true
		}
		if err := tx.Table(a.backend.Table()).Create(&rows).Error; err != nil {
			return accessor.Wrap(accessor.ErrBackend, err)
		}
		return nil
	})
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrBackend, err)
	}
	return records, nil
}

func (a *Accessor) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	rows, err := a.rows(records)
	if err != nil || len(rows) == 0 {
		return records, err
	}
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if !upsert {
			found, err := a.existing(tx, rows)
			if err != nil {
				return err
			}
			for _, r := range rows {
				if !found[[2]string{r.Type, r.Key}] {
					return accessor.NewError(accessor.ErrNotFound, r.Type, r.Key)
				}
			}
		}
		err := tx.Table(a.backend.Table()).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&rows).Error
		if err != nil {
			return accessor.Wrap(accessor.ErrBackend, err)
		}
		return nil
	})
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrBackend, err)
	}
	return records, nil
}

func (a *Accessor) decode(row Row) (*record.Record, error) {
	t, ok := a.served[row.Type]
	if !ok {
		return nil, accessor.NewError(accessor.ErrValidation, row.Type, row.Key)
	}
	rec, err := codec.Decode(t, row.Data)
	if err != nil {
		return nil, &accessor.Error{Kind: accessor.ErrValidation, Type: row.Type, Key: row.Key, Err: err}
	}
	return rec, nil
}

func (a *Accessor) Get(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if !a.serves(rec.Type()) {
		return nil, accessor.NewError(accessor.ErrValidation, rec.Type().Name(), rec.Key())
	}
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	var row Row
	err = db.Table(a.backend.Table()).
		Where("record_type = ? AND record_key = ?", rec.Type().Name(), rec.Key()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
	}
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrBackend, err)
	}
	return a.decode(row)
}

// scan returns the records of rtype matching filter in key order. Without a
// filter the page is applied by the database.
func (a *Accessor) scan(db *gorm.DB, rtype *record.Type, filter accessor.Filter, page accessor.Page) ([]*record.Record, error) {
	q := db.Table(a.backend.Table()).
		Where("record_type = ?", rtype.Name()).
		Order("record_key")
	if len(filter) == 0 {
		switch {
		case page.Limit > 0:
			q = q.Limit(page.Limit)
		case page.Skip > 0:
			// OFFSET needs a LIMIT in MySQL.
			q = q.Limit(math.MaxInt32)
		}
		if page.Skip > 0 {
			q = q.Offset(page.Skip)
		}
	}

	var rows []Row
	if err := q.Find(&rows).Error; err != nil {
		return nil, accessor.Wrap(accessor.ErrBackend, err)
	}

	out := make([]*record.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := a.decode(row)
		if err != nil {
			return nil, err
		}
		if accessor.Match(rec, filter) {
			out = append(out, rec)
		}
	}
	if len(filter) > 0 {
		out = accessor.Paginate(out, page)
	}
	return out, nil
}

func (a *Accessor) Find(ctx context.Context, rtype *record.Type, filter accessor.Filter, page accessor.Page) ([]*record.Record, error) {
	if !a.serves(rtype) {
		return nil, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}
	return a.scan(db, rtype, filter, page)
}

func (a *Accessor) Count(ctx context.Context, rtype *record.Type, filter accessor.Filter) (int, error) {
	if !a.serves(rtype) {
		return 0, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	db, err := a.db(ctx)
	if err != nil {
		return 0, err
	}

	if len(filter) == 0 {
		var n int64
		err := db.Table(a.backend.Table()).Where("record_type = ?", rtype.Name()).Count(&n).Error
		if err != nil {
			return 0, accessor.Wrap(accessor.ErrBackend, err)
		}
		return int(n), nil
	}

	recs, err := a.scan(db, rtype, filter, accessor.Page{})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (a *Accessor) Remove(ctx context.Context, records []*record.Record, rtype *record.Type, filter accessor.Filter) ([]*record.Record, error) {
	db, err := a.db(ctx)
	if err != nil {
		return nil, err
	}

	var removed []*record.Record
	err = db.Transaction(func(tx *gorm.DB) error {
		targets := records
		if len(targets) == 0 {
			if rtype == nil {
				return nil
			}
			if !a.serves(rtype) {
				return accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
			}
			var err error
			if targets, err = a.scan(tx, rtype, filter, accessor.Page{}); err != nil {
				return err
			}
		}

		rows := make([]Row, 0, len(targets))
		for _, rec := range targets {
			if !a.serves(rec.Type()) {
				return accessor.NewError(accessor.ErrValidation, rec.Type().Name(), rec.Key())
			}
			rows = append(rows, Row{Type: rec.Type().Name(), Key: rec.Key()})
		}
		found, err := a.existing(tx, rows)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if !found[[2]string{r.Type, r.Key}] {
				return accessor.NewError(accessor.ErrNotFound, r.Type, r.Key)
			}
			err := tx.Table(a.backend.Table()).
				Where("record_type = ? AND record_key = ?", r.Type, r.Key).
				Delete(&Row{}).Error
			if err != nil {
				return accessor.Wrap(accessor.ErrBackend, err)
			}
		}
		removed = targets
		return nil
	})
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrBackend, err)
	}
	return removed, nil
}
