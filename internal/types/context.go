package types

import "context"

type contextKey string

const (
	CtxRequestID contextKey = "ctx_request_id"
	CtxUserID    contextKey = "ctx_user_id"
	CtxUserRole  contextKey = "ctx_user_role"
)

// GetRequestID returns the request ID from context, if any
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxRequestID).(string); ok {
		return id
	}
	return ""
}

// GetUserID returns the acting user ID from context, if any
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxUserID).(string); ok {
		return id
	}
	return ""
}

// GetUserRole returns the acting user's role from context
func GetUserRole(ctx context.Context) UserRole {
	if role, ok := ctx.Value(CtxUserRole).(UserRole); ok {
		return role
	}
	return UserRoleUnknown
}
