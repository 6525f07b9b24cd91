package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"storesync/core/record"
	"storesync/core/storage"
	"storesync/core/store"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const extension = ".cbor"

// Options holds the settings of one object store.
type Options struct {
	// Bucket overrides the configured bucket.
	Bucket string `mapstructure:"bucket"`
	// Prefix is prepended to every object name.
	Prefix string `mapstructure:"prefix"`
	// CreateBucket makes the bucket on connect when it does not exist.
	CreateBucket bool `mapstructure:"create_bucket"`
}

// Backend is the bucket of an object store.
type Backend struct {
	client storage.Client
	bucket string
	prefix string
	region string
	create bool
	log    *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewBackend returns a backend using client on the bucket of cfg, unless opts
// names another one.
func NewBackend(client storage.Client, cfg storage.Config, opts Options, logger *zap.Logger) *Backend {
	bucket := cfg.Bucket
	if opts.Bucket != "" {
		bucket = opts.Bucket
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		region: cfg.Region,
		create: opts.CreateBucket,
		log:    logger,
	}
}

// Bucket returns the bucket name.
func (b *Backend) Bucket() string {
	return b.bucket
}

func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}

	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if !exists {
		if !b.create {
			return fmt.Errorf("bucket %s does not exist", b.bucket)
		}
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", b.bucket, err)
		}
		b.log.Info("Bucket created", zap.String("bucket", b.bucket))
	}

	b.connected = true
	return nil
}

func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Backend) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// dir returns the object name prefix of a record type, with a trailing slash.
func (b *Backend) dir(typeName string) string {
	return path.Join(b.prefix, typeName) + "/"
}

// ObjectName returns the name of the object holding the record typeName/key.
func (b *Backend) ObjectName(typeName, key string) string {
	return b.dir(typeName) + url.PathEscape(key) + extension
}

// keyOf returns the record key of an object listed under dir, or false for
// foreign objects.
func keyOf(dir, name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, dir)
	if !ok || strings.Contains(rest, "/") {
		return "", false
	}
	escaped, ok := strings.CutSuffix(rest, extension)
	if !ok {
		return "", false
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	return key, true
}

// Factory builds object stores sharing one client. Spec options decode into
// Options.
func Factory(client storage.Client, cfg storage.Config, logger *zap.Logger) store.Factory {
	return func(ctx context.Context, spec store.Spec, types []*record.Type) (*store.Store, error) {
		var opts Options
		if err := spec.DecodeOptions(&opts); err != nil {
			return nil, err
		}
		b := NewBackend(client, cfg, opts, logger)
		return store.New(spec.Name, b, logger, NewAccessor(b, types...)), nil
	}
}
