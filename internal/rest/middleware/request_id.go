package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/types"
)

// RequestIDMiddleware attaches a request ID to the context, reusing the
// caller's X-Request-ID header when present so IDs correlate across services.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(types.HeaderRequestID)
		if requestID == "" {
			requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
		}

		ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(types.HeaderRequestID, requestID)
		c.Next()
	}
}
