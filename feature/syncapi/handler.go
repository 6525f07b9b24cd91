package syncapi

import (
	"errors"
	"net/url"

	"storesync/core/accessor"
	"storesync/core/logger"
	"storesync/core/record"
	"storesync/core/replication"
	"storesync/core/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler handles HTTP requests on the managed stores.
type Handler struct {
	service  *Service
	gatherer prometheus.Gatherer
}

// NewHandler creates a handler. A nil gatherer disables /metrics.
func NewHandler(service *Service, gatherer prometheus.Gatherer) *Handler {
	return &Handler{service: service, gatherer: gatherer}
}

// RegisterRoutes registers the store and sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/stores")
	group.Get("/", h.HandleListStores)
	group.Get("/:store/records/:type", h.HandleListRecords)
	group.Get("/:store/records/:type/:key", h.HandleGetRecord)
	app.Post("/sync", h.HandleSync)
	app.Post("/reconcile", h.HandleReconcile)
}

// RegisterMetrics registers the Prometheus endpoint.
func (h *Handler) RegisterMetrics(app fiber.Router) {
	if h.gatherer == nil {
		return
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

// status maps an error to its HTTP status code.
func status(err error) int {
	switch {
	case errors.Is(err, replication.ErrUnknownStore),
		errors.Is(err, record.ErrUnknownType),
		errors.Is(err, accessor.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, accessor.ErrValidation),
		errors.Is(err, store.ErrNoAccessor):
		return fiber.StatusBadRequest
	case errors.Is(err, accessor.ErrAlreadyExists):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	code := status(err)
	l := logger.WithRayID(h.service.logger, c)
	if code == fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Debug(msg, zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// HandleListStores lists the managed stores.
// @Summary List Stores
// @Description List the managed stores with their connection state and served record types.
// @Tags stores
// @Produce json
// @Success 200 {array} StoreInfo "Stores"
// @Router /stores [get]
func (h *Handler) HandleListStores(c *fiber.Ctx) error {
	return c.JSON(h.service.Stores())
}

// HandleListRecords returns a page of records.
// @Summary List Records
// @Description Return raw records of one type held by one store, in store order.
// @Tags stores
// @Produce json
// @Param store path string true "Store name"
// @Param type path string true "Record type"
// @Param limit query int false "Page size (0 = all)"
// @Param skip query int false "Records to skip"
// @Success 200 {array} map[string]interface{} "Records"
// @Failure 400 {object} map[string]string "Invalid paging"
// @Failure 404 {object} map[string]string "Unknown store or type"
// @Router /stores/{store}/records/{type} [get]
func (h *Handler) HandleListRecords(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	skip := c.QueryInt("skip", 0)
	if limit < 0 || skip < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit and skip must not be negative"})
	}

	records, err := h.service.Records(c.UserContext(), c.Params("store"), c.Params("type"), limit, skip)
	if err != nil {
		return h.fail(c, "List records failed", err)
	}
	return c.JSON(records)
}

// HandleGetRecord returns one record.
// @Summary Get Record
// @Description Return the raw record of one type whose composite key is given, e.g. "p1::2::a".
// @Tags stores
// @Produce json
// @Param store path string true "Store name"
// @Param type path string true "Record type"
// @Param key path string true "Record key (URL escaped)"
// @Success 200 {object} map[string]interface{} "Record"
// @Failure 404 {object} map[string]string "Not found"
// @Router /stores/{store}/records/{type}/{key} [get]
func (h *Handler) HandleGetRecord(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rec, err := h.service.Record(c.UserContext(), c.Params("store"), c.Params("type"), key)
	if err != nil {
		return h.fail(c, "Get record failed", err)
	}
	return c.JSON(rec)
}

// HandleSync triggers a synchronization.
// @Summary Synchronize Stores
// @Description Replicate records from source stores to target stores. Identical concurrent requests share one run.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body SyncRequest false "Selection"
// @Success 200 {object} replication.Report "Report"
// @Failure 404 {object} map[string]string "Unknown store or type"
// @Failure 500 {object} map[string]interface{} "Failed run with partial report"
// @Router /sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	var req SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	l := logger.WithRayID(h.service.logger, c)
	l.Info("Synchronization requested",
		zap.Strings("types", req.Types),
		zap.Strings("sources", req.Sources),
		zap.Strings("targets", req.Targets),
	)

	report, err := h.service.Sync(c.UserContext(), req)
	if err != nil {
		code := status(err)
		if code == fiber.StatusInternalServerError {
			l.Error("Synchronization failed", zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error(), "report": report})
	}
	return c.JSON(report)
}

// HandleReconcile compares stores and optionally purges or repairs them.
// @Summary Reconcile Stores
// @Description Compare the records held by the selected stores and plan purge or repair actions. Actions run only when apply is set.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body ReconcileRequest false "Selection and actions"
// @Success 200 {object} ReconcileResponse "Plan"
// @Failure 404 {object} map[string]string "Unknown store or type"
// @Failure 500 {object} map[string]interface{} "Failed run with plan"
// @Router /reconcile [post]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	l := logger.WithRayID(h.service.logger, c)
	l.Info("Reconciliation requested",
		zap.Strings("types", req.Types),
		zap.Strings("stores", req.Stores),
		zap.Bool("purge", req.Purge),
		zap.Bool("repair", req.Repair),
		zap.Bool("apply", req.Apply),
	)

	resp, err := h.service.Reconcile(c.UserContext(), req)
	if err != nil {
		code := status(err)
		if code == fiber.StatusInternalServerError {
			l.Error("Reconciliation failed", zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error(), "plan": resp.Plan, "executed": resp.Executed})
	}
	return c.JSON(resp)
}
