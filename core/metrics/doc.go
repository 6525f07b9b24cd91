// Package metrics defines the Prometheus collectors of the synchronization
// engine. Collectors are owned by a Metrics value registered on a caller
// supplied registry; a nil *Metrics records nothing.
package metrics
