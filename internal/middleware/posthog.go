package middleware

import (
	"net/http"
	"strings"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// PosthogMiddleware tracks successful API calls per user, tagged with the tenant.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return
		}

		// "/api/v1/billing-rules/:id/execute" -> "api_v1_billing-rules_:id_execute"
		eventName := strings.ReplaceAll(strings.TrimPrefix(c.FullPath(), "/"), "/", "_")
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"status_code": c.Writer.Status(),
		}
		if tenantID, ok := GetTenantIDFromContext(c); ok {
			props["tenant_id"] = tenantID
		}
		posthogClient.Enqueue(userID, eventName, props)
	}
}
