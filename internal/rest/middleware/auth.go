package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// IdentityMiddleware lifts the authenticated identity headers set by the
// upstream gateway into the request context. The surrounding platform owns
// authentication; this service only consumes its result.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userID := c.GetHeader(types.HeaderUserID); userID != "" {
			ctx = context.WithValue(ctx, types.CtxUserID, userID)
		}
		if role := c.GetHeader(types.HeaderUserRole); role != "" {
			ctx = context.WithValue(ctx, types.CtxUserRole, types.UserRole(role))
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireBillingRole rejects requests whose role may not mutate billing state
func RequireBillingRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := types.GetUserRole(c.Request.Context())
		if !role.CanManageBilling() {
			c.Error(ierr.NewError("role may not manage billing").
				WithHint("You do not have permission to manage billing").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin rejects requests whose role may not manage the local
// admin pool.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := types.GetUserRole(c.Request.Context())
		if !role.CanManageAssignments() {
			c.Error(ierr.NewError("role may not manage local admins").
				WithHint("You do not have permission to manage local admins").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}
