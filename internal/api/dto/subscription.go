package dto

import (
	"context"

	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/masjid-suite/billing/internal/validator"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type CreateSubscriptionRequest struct {
	MasjidID     string             `json:"masjid_id" validate:"required"`
	Tier         types.TierID       `json:"tier" validate:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`

	BillingContactName string `json:"billing_contact_name,omitempty"`
	BillingEmail       string `json:"billing_email,omitempty" validate:"omitempty,email"`
	BillingPhone       string `json:"billing_phone,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Tier.Validate(); err != nil {
		return err
	}
	return r.BillingCycle.Validate()
}

// ToSubscription builds the subscription skeleton. The service fills in
// status, pricing and period fields from the catalog and its clock.
func (r *CreateSubscriptionRequest) ToSubscription(ctx context.Context) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		MasjidID:           r.MasjidID,
		Tier:               r.Tier,
		BillingCycle:       r.BillingCycle,
		BillingContactName: r.BillingContactName,
		BillingEmail:       r.BillingEmail,
		BillingPhone:       r.BillingPhone,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

type TransitionSubscriptionRequest struct {
	Status types.SubscriptionStatus `json:"status" validate:"required"`
	Reason string                   `json:"reason,omitempty"`
}

func (r *TransitionSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Status.Validate() {
		return ierr.NewErrorf("unknown subscription status %q", r.Status).
			WithHint("Unknown subscription status").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ListSubscriptionsRequest struct {
	MasjidIDs []string                   `json:"masjid_ids,omitempty" form:"masjid_id"`
	Tiers     []types.TierID             `json:"tiers,omitempty" form:"tier"`
	Statuses  []types.SubscriptionStatus `json:"statuses,omitempty" form:"status"`
	Limit     *int                       `json:"limit,omitempty" form:"limit"`
	Offset    *int                       `json:"offset,omitempty" form:"offset"`
}

// ToFilter converts the request into the repository filter
func (r *ListSubscriptionsRequest) ToFilter() *subscription.Filter {
	return &subscription.Filter{
		QueryFilter: &types.QueryFilter{Limit: r.Limit, Offset: r.Offset},
		MasjidIDs:   r.MasjidIDs,
		Tiers:       r.Tiers,
		Statuses:    r.Statuses,
	}
}

type SubscriptionResponse struct {
	*subscription.Subscription
}

type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}
