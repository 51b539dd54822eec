package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/gin-gonic/gin"
)

// billingRuleHandler handles HTTP requests related to billing rules.
type billingRuleHandler struct {
	ruleService portssvc.BillingRuleSvcFacade
}

func newBillingRuleHandler(rs portssvc.BillingRuleSvcFacade) *billingRuleHandler {
	return &billingRuleHandler{ruleService: rs}
}

// RegisterBillingRuleRoutes registers routes related to billing rules. executeLimit
// guards manual execution and may be nil.
func RegisterBillingRuleRoutes(rg *gin.RouterGroup, ruleService portssvc.BillingRuleSvcFacade, executeLimit gin.HandlerFunc) {
	h := newBillingRuleHandler(ruleService)

	executeChain := []gin.HandlerFunc{h.executeRule}
	if executeLimit != nil {
		executeChain = append([]gin.HandlerFunc{executeLimit}, executeChain...)
	}

	rules := rg.Group("/billing-rules")
	{
		rules.POST("", h.createRule)
		rules.GET("", h.listRules)
		rules.GET("/:id", h.getRule)
		rules.PUT("/:id", h.updateRule)
		rules.POST("/:id/execute", executeChain...)
		rules.GET("/:id/executions", h.listExecutions)
	}
}

// createRule godoc
// @Summary Create a billing rule
// @Description Creates a recurring billing rule and schedules its first run
// @Tags billing-rules
// @Accept  json
// @Produce  json
// @Param   rule body dto.CreateBillingRuleRequest true "Rule details"
// @Success 201 {object} domain.BillingRule
// @Failure 400 {object} dto.ErrorResponse "Invalid input or parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to create billing rule"
// @Security BearerAuth
// @Router /billing-rules [post]
func (h *billingRuleHandler) createRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateBillingRule")
		return
	}

	logger.Info("Received request to create billing rule", slog.String("rule_type", string(req.RuleType)), slog.String("frequency", string(req.Frequency)))
	rule, err := h.ruleService.CreateRule(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, err, "Failed to create billing rule")
		return
	}

	logger.Info("Billing rule created", slog.String("rule_id", rule.ID))
	c.JSON(http.StatusCreated, rule)
}

// listRules godoc
// @Summary List billing rules
// @Tags billing-rules
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token of the next page"
// @Success 200 {object} dto.ListBillingRulesResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to list billing rules"
// @Security BearerAuth
// @Router /billing-rules [get]
func (h *billingRuleHandler) listRules(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "ListBillingRules query")
		return
	}

	resp, err := h.ruleService.ListRules(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, err, "Failed to list billing rules")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getRule godoc
// @Summary Get a billing rule
// @Tags billing-rules
// @Produce  json
// @Param   id path string true "Rule ID"
// @Success 200 {object} domain.BillingRule
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Billing rule not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to retrieve billing rule"
// @Security BearerAuth
// @Router /billing-rules/{id} [get]
func (h *billingRuleHandler) getRule(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve billing rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// updateRule godoc
// @Summary Update a billing rule
// @Description Changes schedule, parameters or activation; the next run is recomputed when the schedule changes
// @Tags billing-rules
// @Accept  json
// @Produce  json
// @Param   id path string true "Rule ID"
// @Param   rule body dto.UpdateBillingRuleRequest true "Fields to change"
// @Success 200 {object} domain.BillingRule
// @Failure 400 {object} dto.ErrorResponse "Invalid input or parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Billing rule not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to update billing rule"
// @Security BearerAuth
// @Router /billing-rules/{id} [put]
func (h *billingRuleHandler) updateRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}
	ruleID := c.Param("id")

	var req dto.UpdateBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "UpdateBillingRule")
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), tenantID, userID, ruleID, req)
	if err != nil {
		respondError(c, err, "Failed to update billing rule")
		return
	}

	logger.Info("Billing rule updated", slog.String("rule_id", ruleID))
	c.JSON(http.StatusOK, rule)
}

// executeRule godoc
// @Summary Execute a billing rule now
// @Description Runs the rule immediately. dryRun previews without writing; forceRun bypasses the per-period guard.
// @Tags billing-rules
// @Accept  json
// @Produce  json
// @Param   id path string true "Rule ID"
// @Param   options body dto.ExecuteBillingRuleRequest false "Execution switches"
// @Success 200 {object} domain.ExecutionResult
// @Failure 400 {object} dto.ErrorResponse "Invalid rule parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Billing rule not found"
// @Failure 409 {object} dto.ErrorResponse "Already executed for the current period"
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Failure 500 {object} dto.ErrorResponse "Failed to execute billing rule"
// @Security BearerAuth
// @Router /billing-rules/{id}/execute [post]
func (h *billingRuleHandler) executeRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}
	ruleID := c.Param("id")

	var req dto.ExecuteBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err, "ExecuteBillingRule")
		return
	}

	logger = logger.With(slog.String("rule_id", ruleID))
	logger.Info("Received request to execute billing rule", slog.Bool("dry_run", req.DryRun), slog.Bool("force_run", req.ForceRun))

	result, err := h.ruleService.ExecuteRule(c.Request.Context(), tenantID, userID, ruleID, domain.ExecuteOptions{
		DryRun:   req.DryRun,
		ForceRun: req.ForceRun,
	})
	if err != nil {
		respondError(c, err, "Failed to execute billing rule")
		return
	}

	logger.Info("Billing rule executed", slog.String("status", string(result.Status)), slog.Int("invoices_created", result.InvoicesCreated))
	c.JSON(http.StatusOK, result)
}

// listExecutions godoc
// @Summary List executions of a billing rule
// @Tags billing-rules
// @Produce  json
// @Param   id path string true "Rule ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token of the next page"
// @Success 200 {object} dto.ListExecutionsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Billing rule not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to list executions"
// @Security BearerAuth
// @Router /billing-rules/{id}/executions [get]
func (h *billingRuleHandler) listExecutions(c *gin.Context) {
	tenantID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err, "ListExecutions query")
		return
	}

	resp, err := h.ruleService.ListExecutions(c.Request.Context(), tenantID, c.Param("id"), params)
	if err != nil {
		respondError(c, err, "Failed to list executions")
		return
	}
	c.JSON(http.StatusOK, resp)
}
