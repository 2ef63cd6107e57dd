package dto

import (
	"context"

	"github.com/masjid-suite/billing/internal/domain/payment"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/masjid-suite/billing/internal/validator"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type CreatePaymentRequest struct {
	SubscriptionID string              `json:"subscription_id" validate:"required"`
	PaymentMethod  types.PaymentMethod `json:"payment_method" validate:"required"`
}

func (r *CreatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.PaymentMethod.Validate() {
		return ierr.NewErrorf("unknown payment method %q", r.PaymentMethod).
			WithHint("Unknown payment method").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToPaymentTransaction builds the pending ledger row skeleton. The service
// fills in amount, currency and split details from the subscription and the
// tier catalog.
func (r *CreatePaymentRequest) ToPaymentTransaction(ctx context.Context) *payment.PaymentTransaction {
	return &payment.PaymentTransaction{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		SubscriptionID: r.SubscriptionID,
		Status:         types.PaymentStatusPending,
		PaymentMethod:  r.PaymentMethod,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// RecordManualPaymentRequest records an out-of-band payment outcome, used by
// super admins for bank transfers and adjustments.
type RecordManualPaymentRequest struct {
	SubscriptionID string               `json:"subscription_id" validate:"required"`
	Outcome        types.GatewayOutcome `json:"outcome" validate:"required"`
	Reference      string               `json:"reference,omitempty"`
	Reason         string               `json:"reason,omitempty"`
}

func (r *RecordManualPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Outcome.Validate() {
		return ierr.NewErrorf("unknown payment outcome %q", r.Outcome).
			WithHint("Unknown payment outcome").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type ListPaymentsRequest struct {
	SubscriptionIDs []string              `json:"subscription_ids,omitempty" form:"subscription_id"`
	MasjidIDs       []string              `json:"masjid_ids,omitempty" form:"masjid_id"`
	Statuses        []types.PaymentStatus `json:"statuses,omitempty" form:"status"`
	Limit           *int                  `json:"limit,omitempty" form:"limit"`
	Offset          *int                  `json:"offset,omitempty" form:"offset"`
}

// ToFilter converts the request into the repository filter
func (r *ListPaymentsRequest) ToFilter() *payment.Filter {
	return &payment.Filter{
		QueryFilter:     &types.QueryFilter{Limit: r.Limit, Offset: r.Offset},
		SubscriptionIDs: r.SubscriptionIDs,
		MasjidIDs:       r.MasjidIDs,
		Statuses:        r.Statuses,
	}
}

type PaymentResponse struct {
	*payment.PaymentTransaction

	// PaymentURL is the hosted checkout page for pending gateway payments
	PaymentURL string `json:"payment_url,omitempty"`
}

type ListPaymentsResponse struct {
	Items []*PaymentResponse `json:"items"`
	Total int                `json:"total"`
}
