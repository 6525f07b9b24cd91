package syncapi

import (
	"storesync/core/replication"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the sync API feature on registry.
func NewFeature(registry *replication.Registry, gatherer prometheus.Gatherer, logger *zap.Logger) *Feature {
	svc := NewService(registry, logger)
	return &Feature{service: svc, handler: NewHandler(svc, gatherer)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "sync"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Handler returns the feature handler, used to mount /metrics outside auth.
func (f *Feature) Handler() *Handler {
	return f.handler
}
