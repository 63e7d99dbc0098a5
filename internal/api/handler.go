package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cargomatch/internal/models"
	"cargomatch/internal/service"
	"cargomatch/internal/status"
	"cargomatch/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers. It is a thin adapter: requests are
// decoded, the actor identity is lifted from headers and every outcome
// comes from an engine operation.
type Handler struct {
	onboarding *service.OnboardingService
	listing    *service.ListingService
	booking    *service.BookingService
	shipment   *service.ShipmentService
	complaint  *service.ComplaintService
	reconciler *service.Reconciler
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	onboarding *service.OnboardingService,
	listing *service.ListingService,
	booking *service.BookingService,
	shipment *service.ShipmentService,
	complaint *service.ComplaintService,
	reconciler *service.Reconciler,
) *Handler {
	return &Handler{
		onboarding: onboarding,
		listing:    listing,
		booking:    booking,
		shipment:   shipment,
		complaint:  complaint,
		reconciler: reconciler,
	}
}

// SetupRoutes sets up HTTP routes.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/lsps", h.registerLSP)
		v1.POST("/traders", h.registerTrader)
		v1.GET("/lsps/:id", h.getLSP)
		v1.POST("/lsps/:id/approve", h.approveLSP)
		v1.POST("/lsps/:id/reject", h.rejectLSP)
		v1.GET("/users/:id/can-login", h.canLogin)
		v1.GET("/users/lookup", h.lookupAccount)

		v1.POST("/containers", h.createContainer)
		v1.GET("/containers", h.listContainers)
		v1.GET("/containers/:id", h.getContainer)
		v1.POST("/containers/:id/approve", h.approveContainer)
		v1.POST("/containers/:id/reject", h.rejectContainer)

		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings/:id", h.getBooking)
		v1.POST("/bookings/:id/approve", h.approveBooking)
		v1.POST("/bookings/:id/cancel", h.cancelBooking)

		v1.GET("/shipments/:id", h.getShipment)
		v1.POST("/shipments/:id/advance", h.advanceShipment)
		v1.POST("/shipments/:id/delay", h.reportDelay)
		v1.POST("/shipments/:id/incident", h.reportIncident)

		v1.POST("/complaints", h.fileComplaint)
		v1.GET("/complaints/:id", h.getComplaint)
		v1.POST("/complaints/:id/start", h.startComplaint)
		v1.POST("/complaints/:id/resolve", h.resolveComplaint)
		v1.POST("/complaints/:id/close", h.closeComplaint)

		v1.POST("/admin/reconcile", h.reconcile)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// actor lifts the identity validated by the auth layer in front of
// this service. The core trusts, it does not authenticate.
func actor(c *gin.Context) service.Actor {
	id, _ := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
	return service.Actor{
		ID:   id,
		Role: status.Role(c.GetHeader("X-Actor-Role")),
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondErr maps engine error kinds to HTTP status codes.
func respondErr(c *gin.Context, err error) {
	kind := service.KindOf(err)
	var code int
	switch kind {
	case service.KindNotFound:
		code = http.StatusNotFound
	case service.KindForbidden:
		code = http.StatusForbidden
	case service.KindValidation:
		code = http.StatusUnprocessableEntity
	case service.KindInvalidState, service.KindConflict:
		code = http.StatusConflict
	default:
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func (h *Handler) registerLSP(c *gin.Context) {
	var req service.RegisterLSPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	profile, user, err := h.onboarding.RegisterLSP(c.Request.Context(), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"profile":     profile,
		"is_verified": profile.Verified(),
		"user_id":     user.ID,
		"is_active":   user.Active(),
	})
}

func (h *Handler) registerTrader(c *gin.Context) {
	var req service.RegisterTraderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	user, err := h.onboarding.RegisterTrader(c.Request.Context(), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "is_active": user.Active()})
}

func (h *Handler) getLSP(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	profile, err := h.onboarding.GetLSP(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "is_verified": profile.Verified()})
}

func (h *Handler) approveLSP(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	profile, err := h.onboarding.ApproveLSP(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "is_verified": profile.Verified()})
}

func (h *Handler) rejectLSP(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	profile, err := h.onboarding.RejectLSP(c.Request.Context(), id, body.Reason, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "is_verified": profile.Verified()})
}

func (h *Handler) canLogin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	allowed, err := h.onboarding.CanLogin(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "can_login": allowed})
}

func (h *Handler) lookupAccount(c *gin.Context) {
	user, err := h.onboarding.LookupAccount(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) createContainer(c *gin.Context) {
	var req service.CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	container, err := h.listing.CreateContainer(c.Request.Context(), &req, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"container": container})
}

func (h *Handler) listContainers(c *gin.Context) {
	containers, err := h.listing.ListBookable(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"containers": containers})
}

func (h *Handler) getContainer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	container, err := h.listing.GetContainer(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"container": container})
}

func (h *Handler) approveContainer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	container, err := h.listing.ApproveContainer(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"container": container})
}

func (h *Handler) rejectContainer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	container, err := h.listing.RejectContainer(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"container": container})
}

func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	booking, err := h.booking.CreateBooking(c.Request.Context(), &req, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.booking.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (h *Handler) approveBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, shipment, err := h.booking.ApproveBooking(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "shipment": shipment})
}

func (h *Handler) cancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.booking.CancelBooking(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (h *Handler) getShipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	shipment, events, err := h.shipment.GetShipment(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipment": shipment, "events": events})
}

func (h *Handler) advanceShipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	shipment, err := h.shipment.AdvanceShipment(c.Request.Context(), id, status.ShipmentStatus(body.Status), actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipment": shipment})
}

func (h *Handler) reportDelay(c *gin.Context) {
	h.report(c, h.shipment.ReportDelay)
}

func (h *Handler) reportIncident(c *gin.Context) {
	h.report(c, h.shipment.ReportIncident)
}

func (h *Handler) report(c *gin.Context, fn func(ctx context.Context, id int64, note string, actor service.Actor) (*models.ShipmentEvent, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Note string `json:"note" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	event, err := fn(c.Request.Context(), id, body.Note, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (h *Handler) fileComplaint(c *gin.Context) {
	var req service.FileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	complaint, err := h.complaint.FileComplaint(c.Request.Context(), &req, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"complaint": complaint})
}

func (h *Handler) getComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	complaint, err := h.complaint.GetComplaint(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

func (h *Handler) startComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	complaint, err := h.complaint.StartComplaint(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

func (h *Handler) resolveComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Resolution string `json:"resolution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	complaint, err := h.complaint.ResolveComplaint(c.Request.Context(), id, body.Resolution, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

func (h *Handler) closeComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	complaint, err := h.complaint.CloseComplaint(c.Request.Context(), id, actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

func (h *Handler) reconcile(c *gin.Context) {
	if !actor(c).IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required", "kind": string(service.KindForbidden)})
		return
	}
	report, err := h.reconciler.ReconcileAccounts(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, code).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, code).Inc()
	}
}
