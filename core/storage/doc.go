// Package storage wraps the MinIO client used by object stores.
//
// Client narrows minio.Client to the calls object stores make, so tests can
// substitute mocks.Client. NewClient applies strict transport timeouts since
// MinIO connects lazily and a dead endpoint would otherwise hang the first
// request.
//
//	client, err := storage.NewClient(cfg)
//	exists, err := client.BucketExists(ctx, cfg.Bucket)
package storage
