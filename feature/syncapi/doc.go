// Package syncapi exposes the managed stores and synchronization over HTTP.
//
// # Routes
//
//   - GET  /stores: managed stores, connection state and served types.
//   - GET  /stores/:store/records/:type?limit=&skip=: a page of raw records.
//   - GET  /stores/:store/records/:type/:key: one raw record; key is the
//     URL escaped composite id ("p1::2::a").
//   - POST /sync: synchronize, body {"types", "sources", "targets", "count"}.
//   - POST /reconcile: compare stores and plan purge or repair actions, body
//     {"types", "stores", "reference", "purge", "repair", "apply"}.
//   - GET  /metrics: Prometheus exposition, mounted by RegisterMetrics.
//
// Unknown stores, types and records map to 404, invalid records to 400 and
// backend failures to 500. A failed sync responds with the partial report.
package syncapi
