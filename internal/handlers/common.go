package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/gin-gonic/gin"
)

// callerIdentity returns the authenticated tenant and user, writing 401 when either is missing.
func callerIdentity(c *gin.Context) (tenantID, userID string, ok bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, tok := middleware.GetTenantIDFromContext(c)
	userID, uok := middleware.GetUserIDFromContext(c)
	if !tok || !uok {
		logger.Error("Caller identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	return tenantID, userID, true
}

// respondError maps a service error to its status code. Client errors echo the
// message; server errors are logged and replaced by fallback.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	logger.Warn("Request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindError(c *gin.Context, err error, what string) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
}
