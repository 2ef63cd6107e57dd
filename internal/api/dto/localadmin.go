package dto

import (
	"context"

	"github.com/masjid-suite/billing/internal/domain/localadmin"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/masjid-suite/billing/internal/validator"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type CreateLocalAdminRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	WhatsAppNumber string `json:"whatsapp_number,omitempty"`

	// MaxCapacity defaults to the platform-wide cap when omitted
	MaxCapacity *int `json:"max_capacity,omitempty" validate:"omitempty,gt=0"`
}

func (r *CreateLocalAdminRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateLocalAdminRequest) ToLocalAdmin(ctx context.Context) *localadmin.LocalAdmin {
	capacity := types.DefaultLocalAdminCapacity
	if r.MaxCapacity != nil {
		capacity = *r.MaxCapacity
	}
	return &localadmin.LocalAdmin{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LOCAL_ADMIN),
		UserID:             r.UserID,
		FullName:           r.FullName,
		Email:              r.Email,
		WhatsAppNumber:     r.WhatsAppNumber,
		MaxCapacity:        capacity,
		AvailabilityStatus: types.AvailabilityStatusAvailable,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

type UpdateAvailabilityRequest struct {
	AvailabilityStatus types.AvailabilityStatus `json:"availability_status" validate:"required"`
}

func (r *UpdateAvailabilityRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.AvailabilityStatus.Validate() {
		return ierr.NewErrorf("unknown availability status %q", r.AvailabilityStatus).
			WithHint("Unknown availability status").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type AssignLocalAdminRequest struct {
	MasjidID     string `json:"masjid_id" validate:"required"`
	LocalAdminID string `json:"local_admin_id" validate:"required"`
}

func (r *AssignLocalAdminRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ListLocalAdminsRequest struct {
	AvailabilityStatuses []types.AvailabilityStatus `json:"availability_statuses,omitempty" form:"availability_status"`
	Limit                *int                       `json:"limit,omitempty" form:"limit"`
	Offset               *int                       `json:"offset,omitempty" form:"offset"`
}

// ToFilter converts the request into the repository filter
func (r *ListLocalAdminsRequest) ToFilter() *localadmin.Filter {
	return &localadmin.Filter{
		QueryFilter:          &types.QueryFilter{Limit: r.Limit, Offset: r.Offset},
		AvailabilityStatuses: r.AvailabilityStatuses,
	}
}

type LocalAdminResponse struct {
	*localadmin.LocalAdmin

	// ActiveAssignments is the current tenant count against MaxCapacity
	ActiveAssignments int `json:"active_assignments"`
}

type ListLocalAdminsResponse struct {
	Items []*LocalAdminResponse `json:"items"`
	Total int                   `json:"total"`
}

type AssignmentResponse struct {
	*localadmin.Assignment

	LocalAdmin *LocalAdminResponse `json:"local_admin,omitempty"`
}

type EarningsResponse struct {
	LocalAdminID    string                     `json:"local_admin_id"`
	FullName        string                     `json:"full_name"`
	AssignedMasjids int                        `json:"assigned_masjids"`
	Earnings        localadmin.EarningsSummary `json:"earnings_summary"`
}
