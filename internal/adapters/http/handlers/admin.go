package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/dto"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// AdminHandler exposes operator endpoints for dataset and archive inspection,
// subscriber upkeep, and triggering a delivery run outside the schedule.
type AdminHandler struct {
	resolver      *app.ResolverService
	archive       *app.ArchiveService
	delivery      *app.DeliveryService
	subscriptions *app.SubscriptionService
}

// AdminHandlerConfig contains the services backing the admin endpoints.
type AdminHandlerConfig struct {
	Resolver      *app.ResolverService
	Archive       *app.ArchiveService
	Delivery      *app.DeliveryService
	Subscriptions *app.SubscriptionService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminHandlerConfig) *AdminHandler {
	return &AdminHandler{
		resolver:      cfg.Resolver,
		archive:       cfg.Archive,
		delivery:      cfg.Delivery,
		subscriptions: cfg.Subscriptions,
	}
}

// TriggerDeliveryRequest is the JSON body for a manual delivery run.
type TriggerDeliveryRequest struct {
	// Date selects the dataset day to deliver, in YYYY-MM-DD form.
	// Empty means the current UTC date.
	Date string `json:"date,omitempty"`
}

// GetDatasetIntegrity handles GET /api/v1/admin/dataset/integrity
// Reports whether every calendar day has exactly one quote.
//
// @Summary Check quote dataset integrity
// @Description Reports missing and duplicated calendar days in the dataset
// @Tags admin
// @Produce json
// @Success 200 {object} domain.IntegrityReport
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/dataset/integrity [get]
func (h *AdminHandler) GetDatasetIntegrity(c *gin.Context) {
	report, err := h.resolver.Integrity(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetArchiveStats handles GET /api/v1/admin/archive/stats
// Summarizes the reflection archive.
//
// @Summary Get archive statistics
// @Description Returns entry count, date range, and unparsable entry count
// @Tags admin
// @Produce json
// @Success 200 {object} domain.ArchiveStats
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/archive/stats [get]
func (h *AdminHandler) GetArchiveStats(c *gin.Context) {
	stats, err := h.archive.Stats(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListArchiveEntries handles GET /api/v1/admin/archive/entries
// Returns archived reflections as a cursor-paginated list, oldest first.
//
// @Summary List archived reflections
// @Description Returns archive entries sorted by date with cursor pagination
// @Tags admin
// @Produce json
// @Param cursor query string false "Cursor from a previous response"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} dto.PaginatedResponse[domain.ReflectionEntry]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/archive/entries [get]
func (h *AdminHandler) ListArchiveEntries(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"invalid pagination parameters",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	entries, err := h.archive.Entries(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	// Dates sort lexicographically in YYYY-MM-DD form, so a plain string
	// sort gives chronological order with unparsable dates grouped first.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})

	start := 0

	cursor, err := page.DecodeCursor()

	switch {
	case err == nil:
		// Resume after the last date the previous page returned. The
		// archive holds one entry per day, so the date alone is a key.
		for start < len(entries) && entries[start].Date <= cursor.Date {
			start++
		}
	case errors.Is(err, dto.ErrNoCursor):
		// First page.
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"invalid cursor",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	limit := page.GetLimit()

	window := entries[start:]
	if len(window) > limit+1 {
		window = window[:limit+1]
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(window, limit,
		func(e domain.ReflectionEntry) *dto.Cursor {
			return dto.NewCursor(e.Date)
		}))
}

// TriggerDelivery handles POST /api/v1/admin/delivery/run
// Runs the full delivery pipeline immediately instead of waiting for the
// schedule. The body is optional; an empty body delivers today's quote.
//
// @Summary Trigger a delivery run
// @Description Generates, archives, and delivers the reflection for a date
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TriggerDeliveryRequest false "Run parameters"
// @Success 200 {object} app.DeliveryReport
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/delivery/run [post]
func (h *AdminHandler) TriggerDelivery(c *gin.Context) {
	var req TriggerDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrorCodeBadRequest,
				"invalid trigger request",
			).WithTraceID(dto.GetTraceID(c)))
			return
		}
	}

	var (
		report app.DeliveryReport
		err    error
	)

	if req.Date == "" {
		report, err = h.delivery.Run(c.Request.Context())
	} else {
		date, parseErr := time.Parse(domain.DateFormat, req.Date)
		if parseErr != nil {
			dto.HandleError(c, domain.NewInvalidDateError(req.Date))
			return
		}

		report, err = h.delivery.RunForDate(c.Request.Context(), date)
	}

	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetSubscriberCounts handles GET /api/v1/admin/subscribers/counts
// Returns subscriber totals grouped by status.
//
// @Summary Get subscriber counts
// @Description Returns pending, active, and unsubscribed totals
// @Tags admin
// @Produce json
// @Success 200 {object} domain.SubscriberCounts
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/subscribers/counts [get]
func (h *AdminHandler) GetSubscriberCounts(c *gin.Context) {
	counts, err := h.subscriptions.Counts(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// ReconcileSubscribers handles POST /api/v1/admin/subscribers/reconcile
// Repairs drift between the subscriber roster and the send list.
//
// @Summary Reconcile the send list
// @Description Adds missing active subscribers and removes unsubscribed ones
// @Tags admin
// @Produce json
// @Success 200 {object} app.ReconcileResult
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/admin/subscribers/reconcile [post]
func (h *AdminHandler) ReconcileSubscribers(c *gin.Context) {
	result, err := h.subscriptions.Reconcile(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterAdminRoutes registers operator routes on the given router group.
// Callers are expected to attach authentication middleware to the group.
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.GET("/dataset/integrity", h.GetDatasetIntegrity)
	admin.GET("/archive/stats", h.GetArchiveStats)
	admin.GET("/archive/entries", h.ListArchiveEntries)
	admin.POST("/delivery/run", h.TriggerDelivery)
	admin.GET("/subscribers/counts", h.GetSubscriberCounts)
	admin.POST("/subscribers/reconcile", h.ReconcileSubscribers)
}
