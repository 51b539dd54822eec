package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/gin-gonic/gin"
)

// distributionHandler handles HTTP requests related to fund distributions.
type distributionHandler struct {
	distributionService portssvc.DistributionSvcFacade
}

func newDistributionHandler(ds portssvc.DistributionSvcFacade) *distributionHandler {
	return &distributionHandler{distributionService: ds}
}

// RegisterDistributionRoutes registers routes related to distributions.
func RegisterDistributionRoutes(rg *gin.RouterGroup, distributionService portssvc.DistributionSvcFacade) {
	h := newDistributionHandler(distributionService)

	distributions := rg.Group("/distributions")
	{
		distributions.POST("", h.createDistribution)
		distributions.POST("/preview", h.previewDistribution)
		distributions.GET("/:id", h.getDistribution)
		distributions.POST("/:id/execute", h.executeDistribution)
		distributions.DELETE("/:id", h.deleteDistribution)
	}
	rg.GET("/funds/:fundId/distributions", h.listDistributions)
}

func (h *distributionHandler) bindCreate(c *gin.Context) (dto.CreateDistributionRequest, bool) {
	var req dto.CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateDistribution")
		return req, false
	}
	return req, true
}

// createDistribution godoc
// @Summary Create a distribution
// @Description Splits the total among the fund's active shareholders and stores a DRAFT distribution
// @Tags distributions
// @Accept  json
// @Produce  json
// @Param   distribution body dto.CreateDistributionRequest true "Distribution details"
// @Success 201 {object} domain.Distribution
// @Failure 400 {object} dto.ErrorResponse "Invalid input or no active shareholders"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Fund not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to create distribution"
// @Security BearerAuth
// @Router /distributions [post]
func (h *distributionHandler) createDistribution(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}
	req, ok := h.bindCreate(c)
	if !ok {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		bindError(c, err, "CreateDistribution date")
		return
	}

	d, err := h.distributionService.CreateDistribution(c.Request.Context(), tenantID, userID, in)
	if err != nil {
		respondError(c, err, "Failed to create distribution")
		return
	}

	logger.Info("Distribution created", slog.String("distribution_id", d.ID), slog.String("number", d.DistributionNumber))
	c.JSON(http.StatusCreated, d)
}

// previewDistribution godoc
// @Summary Preview a distribution
// @Description Computes the per-shareholder amounts without storing anything
// @Tags distributions
// @Accept  json
// @Produce  json
// @Param   distribution body dto.CreateDistributionRequest true "Distribution details"
// @Success 200 {object} domain.Distribution
// @Failure 400 {object} dto.ErrorResponse "Invalid input or no active shareholders"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Fund not found"
// @Security BearerAuth
// @Router /distributions/preview [post]
func (h *distributionHandler) previewDistribution(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	req, ok := h.bindCreate(c)
	if !ok {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		bindError(c, err, "PreviewDistribution date")
		return
	}

	d, err := h.distributionService.PreviewDistribution(c.Request.Context(), tenantID, in)
	if err != nil {
		respondError(c, err, "Failed to preview distribution")
		return
	}
	c.JSON(http.StatusOK, d)
}

// getDistribution godoc
// @Summary Get a distribution
// @Tags distributions
// @Produce  json
// @Param   id path string true "Distribution ID"
// @Success 200 {object} domain.Distribution
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Distribution not found"
// @Security BearerAuth
// @Router /distributions/{id} [get]
func (h *distributionHandler) getDistribution(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	d, err := h.distributionService.GetDistribution(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve distribution")
		return
	}
	c.JSON(http.StatusOK, d)
}

// listDistributions godoc
// @Summary List the distributions of a fund
// @Tags distributions
// @Produce  json
// @Param   fundId path string true "Fund ID"
// @Success 200 {array} domain.Distribution
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Fund not found"
// @Security BearerAuth
// @Router /funds/{fundId}/distributions [get]
func (h *distributionHandler) listDistributions(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	list, err := h.distributionService.ListDistributions(c.Request.Context(), tenantID, c.Param("fundId"))
	if err != nil {
		respondError(c, err, "Failed to list distributions")
		return
	}
	c.JSON(http.StatusOK, list)
}

// executeDistribution godoc
// @Summary Execute a distribution
// @Description Issues one credit note per shareholder and marks the distribution EXECUTED
// @Tags distributions
// @Produce  json
// @Param   id path string true "Distribution ID"
// @Success 200 {object} dto.ExecuteDistributionResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Distribution not found"
// @Failure 409 {object} dto.ErrorResponse "Distribution already executed"
// @Failure 500 {object} dto.ErrorResponse "Failed to execute distribution"
// @Security BearerAuth
// @Router /distributions/{id}/execute [post]
func (h *distributionHandler) executeDistribution(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	d, invoices, err := h.distributionService.ExecuteDistribution(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to execute distribution")
		return
	}

	logger.Info("Distribution executed", slog.String("distribution_id", d.ID), slog.Int("credit_notes", len(invoices)))
	c.JSON(http.StatusOK, dto.ExecuteDistributionResponse{Distribution: d, Invoices: invoices})
}

// deleteDistribution godoc
// @Summary Delete a draft distribution
// @Tags distributions
// @Param   id path string true "Distribution ID"
// @Success 204 "No Content"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Distribution not found"
// @Failure 409 {object} dto.ErrorResponse "Executed distributions cannot be deleted"
// @Security BearerAuth
// @Router /distributions/{id} [delete]
func (h *distributionHandler) deleteDistribution(c *gin.Context) {
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.distributionService.DeleteDistribution(c.Request.Context(), tenantID, userID, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete distribution")
		return
	}
	c.Status(http.StatusNoContent)
}
