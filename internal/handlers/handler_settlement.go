package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/gin-gonic/gin"
)

// settlementHandler handles HTTP requests related to lease revenue settlements.
type settlementHandler struct {
	settlementService portssvc.SettlementSvcFacade
}

func newSettlementHandler(ss portssvc.SettlementSvcFacade) *settlementHandler {
	return &settlementHandler{settlementService: ss}
}

// RegisterSettlementRoutes registers routes related to lease revenue settlements.
func RegisterSettlementRoutes(rg *gin.RouterGroup, settlementService portssvc.SettlementSvcFacade) {
	h := newSettlementHandler(settlementService)

	settlements := rg.Group("/lease-settlements")
	{
		settlements.POST("", h.createSettlement)
		settlements.POST("/preview", h.previewSettlement)
		settlements.POST("/import", h.importSettlement)
		settlements.GET("/:id", h.getSettlement)
		settlements.POST("/:id/calculate", h.calculateSettlement)
		settlements.POST("/:id/settle", h.settleSettlement)
		settlements.POST("/:id/close", h.closeSettlement)
	}
}

// createSettlement godoc
// @Summary Create or merge a lease revenue settlement
// @Description Creates an OPEN settlement for the period, or updates the inputs of an OPEN/CALCULATED one with the same period
// @Tags lease-settlements
// @Accept  json
// @Produce  json
// @Param   settlement body dto.CreateSettlementRequest true "Settlement period and inputs"
// @Success 201 {object} domain.LeaseRevenueSettlement "Created"
// @Success 200 {object} domain.LeaseRevenueSettlement "Merged into existing settlement"
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Park not found"
// @Failure 409 {object} dto.ErrorResponse "Period already settled or closed"
// @Security BearerAuth
// @Router /lease-settlements [post]
func (h *settlementHandler) createSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateSettlement")
		return
	}
	in, err := req.ToInput()
	if err != nil {
		bindError(c, err, "CreateSettlement date")
		return
	}

	st, created, err := h.settlementService.CreateSettlement(c.Request.Context(), tenantID, userID, in)
	if err != nil {
		respondError(c, err, "Failed to create settlement")
		return
	}

	logger.Info("Settlement stored", slog.String("settlement_id", st.ID), slog.Bool("created", created))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, st)
}

// previewSettlement godoc
// @Summary Preview a lease revenue settlement
// @Description Computes the per-lessor fees for the period without storing anything
// @Tags lease-settlements
// @Accept  json
// @Produce  json
// @Param   settlement body dto.CreateSettlementRequest true "Settlement period and inputs"
// @Success 200 {object} domain.LeaseRevenueSettlement
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Park not found"
// @Security BearerAuth
// @Router /lease-settlements/preview [post]
func (h *settlementHandler) previewSettlement(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "PreviewSettlement")
		return
	}
	in, err := req.ToInput()
	if err != nil {
		bindError(c, err, "PreviewSettlement date")
		return
	}

	st, err := h.settlementService.PreviewSettlement(c.Request.Context(), tenantID, in)
	if err != nil {
		respondError(c, err, "Failed to preview settlement")
		return
	}
	c.JSON(http.StatusOK, st)
}

// getSettlement godoc
// @Summary Get a lease revenue settlement
// @Tags lease-settlements
// @Produce  json
// @Param   id path string true "Settlement ID"
// @Success 200 {object} domain.LeaseRevenueSettlement
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Settlement not found"
// @Security BearerAuth
// @Router /lease-settlements/{id} [get]
func (h *settlementHandler) getSettlement(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	st, err := h.settlementService.GetSettlement(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve settlement")
		return
	}
	c.JSON(http.StatusOK, st)
}

// calculateSettlement godoc
// @Summary Calculate a lease revenue settlement
// @Description Computes fees per lessor and moves the settlement to CALCULATED
// @Tags lease-settlements
// @Produce  json
// @Param   id path string true "Settlement ID"
// @Success 200 {object} domain.LeaseRevenueSettlement
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Settlement not found"
// @Failure 409 {object} dto.ErrorResponse "Settlement is already settled or closed"
// @Security BearerAuth
// @Router /lease-settlements/{id}/calculate [post]
func (h *settlementHandler) calculateSettlement(c *gin.Context) {
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	st, err := h.settlementService.CalculateSettlement(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to calculate settlement")
		return
	}
	c.JSON(http.StatusOK, st)
}

// settleSettlement godoc
// @Summary Settle a lease revenue settlement
// @Description Emits credit notes or invoices for every lessor with a non-zero balance and moves the settlement to SETTLED
// @Tags lease-settlements
// @Produce  json
// @Param   id path string true "Settlement ID"
// @Success 200 {object} dto.SettleSettlementResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Settlement not found"
// @Failure 409 {object} dto.ErrorResponse "Settlement is not calculated"
// @Failure 500 {object} dto.ErrorResponse "Failed to settle settlement"
// @Security BearerAuth
// @Router /lease-settlements/{id}/settle [post]
func (h *settlementHandler) settleSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	st, invoices, err := h.settlementService.SettleSettlement(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to settle settlement")
		return
	}

	logger.Info("Settlement settled", slog.String("settlement_id", st.ID), slog.Int("invoices", len(invoices)))
	c.JSON(http.StatusOK, dto.SettleSettlementResponse{Settlement: st, Invoices: invoices})
}

// closeSettlement godoc
// @Summary Close a lease revenue settlement
// @Tags lease-settlements
// @Produce  json
// @Param   id path string true "Settlement ID"
// @Success 200 {object} domain.LeaseRevenueSettlement
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Settlement not found"
// @Failure 409 {object} dto.ErrorResponse "Settlement is not settled"
// @Security BearerAuth
// @Router /lease-settlements/{id}/close [post]
func (h *settlementHandler) closeSettlement(c *gin.Context) {
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	st, err := h.settlementService.CloseSettlement(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to close settlement")
		return
	}
	c.JSON(http.StatusOK, st)
}

// importSettlement godoc
// @Summary Import a historical settlement
// @Description Stores an externally computed settlement as CLOSED without recalculation
// @Tags lease-settlements
// @Accept  json
// @Produce  json
// @Param   settlement body dto.ImportHistoricalSettlementRequest true "Historical settlement"
// @Success 201 {object} domain.LeaseRevenueSettlement
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Park not found"
// @Failure 409 {object} dto.ErrorResponse "A settlement for the period already exists"
// @Security BearerAuth
// @Router /lease-settlements/import [post]
func (h *settlementHandler) importSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.ImportHistoricalSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "ImportHistoricalSettlement")
		return
	}
	in, err := req.ToInput()
	if err != nil {
		bindError(c, err, "ImportHistoricalSettlement date")
		return
	}

	st, err := h.settlementService.ImportHistoricalSettlement(c.Request.Context(), tenantID, userID, in)
	if err != nil {
		respondError(c, err, "Failed to import settlement")
		return
	}

	logger.Info("Historical settlement imported", slog.String("settlement_id", st.ID))
	c.JSON(http.StatusCreated, st)
}
