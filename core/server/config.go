package server

import "strings"

// Config holds configuration for the HTTP API.
type Config struct {
	// Port is the port the API listens on.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the key required in the X-API-Key header. Empty disables
	// authentication.
	ApiKey string `mapstructure:"api_key" default:""`
	// Enabled starts the API with the start command.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// PublicMetrics exposes /metrics without the API key.
	PublicMetrics bool `mapstructure:"public_metrics" default:"false"`
}

// Address returns the listen address for Port.
func (c Config) Address() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
