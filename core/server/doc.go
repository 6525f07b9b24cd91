// Package server holds the HTTP API configuration.
//
// The start command listens on Config.Address and protects every route with
// the auth middleware when ApiKey is set. PublicMetrics leaves /metrics open
// for scrapers without the key.
package server
