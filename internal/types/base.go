package types

import (
	"context"
	"time"
)

// UserRole gates access to billing operations. Authorization policy beyond
// this lookup lives with the surrounding applications.
type UserRole string

const (
	UserRoleUnknown     UserRole = ""
	UserRoleMasjidAdmin UserRole = "masjid_admin"
	UserRoleLocalAdmin  UserRole = "local_admin"
	UserRoleSuperAdmin  UserRole = "super_admin"
)

// CanManageBilling reports whether the role may invoke billing mutations
func (r UserRole) CanManageBilling() bool {
	return r == UserRoleMasjidAdmin || r == UserRoleSuperAdmin
}

// CanManageAssignments reports whether the role may assign local admins
func (r UserRole) CanManageAssignments() bool {
	return r == UserRoleSuperAdmin
}

// BaseModel carries the audit columns shared by all persisted entities
type BaseModel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// GetDefaultBaseModel stamps the audit columns for a newly created entity
// from the request context.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	userID := GetUserID(ctx)
	return BaseModel{
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}

// QueryFilter contains pagination parameters shared by list queries
type QueryFilter struct {
	Limit  *int `json:"limit,omitempty" form:"limit"`
	Offset *int `json:"offset,omitempty" form:"offset"`
}

// GetLimit returns the effective limit, defaulting to 50
func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil || *f.Limit <= 0 {
		return 50
	}
	return *f.Limit
}

// GetOffset returns the effective offset
func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil || *f.Offset < 0 {
		return 0
	}
	return *f.Offset
}
