// Package logger builds the zap logger shared by stores, the replication
// registry and the HTTP API.
//
// Level debug selects the development configuration (ISO8601 times, caller
// info), anything else the production one. Format console switches to the
// colored console encoder, the default is JSON.
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Synchronization finished", zap.Int("records", n))
//
// In request handlers WithRayID correlates entries with the rayid middleware:
//
//	l := logger.WithRayID(log, c)
package logger
