package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"

	"storesync/core/accessor"
	"storesync/core/codec"
	"storesync/core/record"
	"storesync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/multierr"
)

const contentType = "application/cbor"

var errDisconnected = errors.New("object backend not connected")

// Accessor serves record types from a Backend bucket.
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

func (a *Accessor) check(records []*record.Record) error {
	if !a.backend.IsConnected() {
		return accessor.Wrap(accessor.ErrBackend, errDisconnected)
	}
	for _, rec := range records {
		if !a.serves(rec.Type()) {
			return accessor.NewError(accessor.ErrValidation, rec.Type().Name(), rec.Key())
		}
	}
	return nil
}

func (a *Accessor) checkType(rtype *record.Type) error {
	if !a.backend.IsConnected() {
		return accessor.Wrap(accessor.ErrBackend, errDisconnected)
	}
	if !a.serves(rtype) {
		return accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	return nil
}

func (a *Accessor) Create(ctx context.Context, rtype *record.Type, data map[string]any) (*record.Record, error) {
	if !a.serves(rtype) {
		return nil, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	return accessor.Materialize(rtype, data)
}

func (a *Accessor) exists(ctx context.Context, rec *record.Record) (bool, error) {
	name := a.backend.ObjectName(rec.Type().Name(), rec.Key())
	_, err := a.backend.client.StatObject(ctx, a.backend.bucket, name, minio.StatObjectOptions{})
	if storage.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, accessor.Wrap(accessor.ErrBackend, err)
	}
	return true, nil
}

func (a *Accessor) put(ctx context.Context, rec *record.Record) error {
	data, err := codec.Encode(rec)
	if err != nil {
		return accessor.Wrap(accessor.ErrValidation, err)
	}
	name := a.backend.ObjectName(rec.Type().Name(), rec.Key())
	_, err = a.backend.client.PutObject(ctx, a.backend.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return accessor.Wrap(accessor.ErrBackend, err)
	}
	return nil
}

func (a *Accessor) Add(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if err := a.check(records); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		id := rec.Type().Name() + "/" + rec.Key()
		found, err := a.exists(ctx, rec)
		if err != nil {
			return nil, err
		}
		if found || seen[id] {
			return nil, accessor.NewError(accessor.ErrAlreadyExists, rec.Type().Name(), rec.Key())
		}
		seen[id] = true
	}
	for _, rec := range records {
		if err := a.put(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (a *Accessor) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	if err := a.check(records); err != nil {
		return nil, err
	}
	if !upsert {
		for _, rec := range records {
			found, err := a.exists(ctx, rec)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
			}
		}
	}
	for _, rec := range records {
		if err := a.put(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// read fetches and decodes one object. A missing object yields ErrNotFound.
func (a *Accessor) read(ctx context.Context, rtype *record.Type, key string) (*record.Record, error) {
	name := a.backend.ObjectName(rtype.Name(), key)
	obj, err := a.backend.client.GetObject(ctx, a.backend.bucket, name, minio.GetObjectOptions{})
	if err == nil {
		defer obj.Close()
		var data []byte
		if data, err = io.ReadAll(obj); err == nil {
			rec, err := codec.Decode(rtype, data)
			if err != nil {
				return nil, &accessor.Error{Kind: accessor.ErrValidation, Type: rtype.Name(), Key: key, Err: err}
			}
			return rec, nil
		}
	}
	if storage.IsNotFound(err) {
		return nil, accessor.NewError(accessor.ErrNotFound, rtype.Name(), key)
	}
	return nil, accessor.Wrap(accessor.ErrBackend, err)
}

func (a *Accessor) Get(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if err := a.check([]*record.Record{rec}); err != nil {
		return nil, err
	}
	return a.read(ctx, rec.Type(), rec.Key())
}

// keys lists the record keys of rtype in ascending order.
func (a *Accessor) keys(ctx context.Context, rtype *record.Type) ([]string, error) {
	dir := a.backend.dir(rtype.Name())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for info := range a.backend.client.ListObjects(ctx, a.backend.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true}) {
		if info.Err != nil {
			return nil, accessor.Wrap(accessor.ErrBackend, info.Err)
		}
		if key, ok := keyOf(dir, info.Key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// scan returns the records of rtype matching filter in key order. Without a
// filter only the objects of the page are fetched.
func (a *Accessor) scan(ctx context.Context, rtype *record.Type, filter accessor.Filter, page accessor.Page) ([]*record.Record, error) {
	keys, err := a.keys(ctx, rtype)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		keys = accessor.Paginate(keys, page)
	}

	out := make([]*record.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := a.read(ctx, rtype, key)
		if errors.Is(err, accessor.ErrNotFound) {
			// Removed since listed.
			continue
		}
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
	if err := a.checkType(rtype); err != nil {
		return nil, err
	}
	return a.scan(ctx, rtype, filter, page)
}

func (a *Accessor) Count(ctx context.Context, rtype *record.Type, filter accessor.Filter) (int, error) {
	if err := a.checkType(rtype); err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		keys, err := a.keys(ctx, rtype)
		return len(keys), err
	}
	recs, err := a.scan(ctx, rtype, filter, accessor.Page{})
	return len(recs), err
}

func (a *Accessor) Remove(ctx context.Context, records []*record.Record, rtype *record.Type, filter accessor.Filter) ([]*record.Record, error) {
	if len(records) > 0 {
		if err := a.check(records); err != nil {
			return nil, err
		}
		for _, rec := range records {
			found, err := a.exists(ctx, rec)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
			}
		}
		for _, rec := range records {
			name := a.backend.ObjectName(rec.Type().Name(), rec.Key())
			if err := a.backend.client.RemoveObject(ctx, a.backend.bucket, name, minio.RemoveObjectOptions{}); err != nil {
				return nil, accessor.Wrap(accessor.ErrBackend, err)
			}
		}
		return records, nil
	}

	if rtype == nil {
		return nil, nil
	}
	if err := a.checkType(rtype); err != nil {
		return nil, err
	}
	matched, err := a.scan(ctx, rtype, filter, accessor.Page{})
	if err != nil || len(matched) == 0 {
		return matched, err
	}
	if err := a.removeAll(ctx, matched); err != nil {
		return nil, err
	}
	return matched, nil
}

// removeAll deletes the objects of records in one bulk request.
func (a *Accessor) removeAll(ctx context.Context, records []*record.Record) error {
	objects := make(chan minio.ObjectInfo, len(records))
	for _, rec := range records {
		objects <- minio.ObjectInfo{Key: a.backend.ObjectName(rec.Type().Name(), rec.Key())}
	}
	close(objects)

	var errs error
	for e := range a.backend.client.RemoveObjects(ctx, a.backend.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = multierr.Append(errs, e.Err)
	}
	if errs != nil {
		return accessor.Wrap(accessor.ErrBackend, errs)
	}
	return nil
}
