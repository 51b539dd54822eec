package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = contextKey("userID")
	tenantIDKey = contextKey("tenantID")
)

// WithIdentity returns a copy of ctx carrying the caller's tenant and user.
func WithIdentity(ctx context.Context, tenantID, userID string) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext retrieves the authenticated user ID from the request context.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetTenantIDFromContext retrieves the authenticated tenant ID from the request context.
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	tenantID, ok := c.Request.Context().Value(tenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}
