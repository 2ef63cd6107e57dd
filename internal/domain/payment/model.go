package payment

import (
	"time"

	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// SplitBillingDetails records how a premium payment divides between the
// masjid admin and the assigned local admin. Amounts always reconcile
// exactly: MasjidAdminAmount + LocalAdminAmount == TotalAmount.
type SplitBillingDetails struct {
	MasjidAdminAmount     decimal.Decimal `json:"masjid_admin_amount"`
	MasjidAdminPercentage decimal.Decimal `json:"masjid_admin_percentage"`
	LocalAdminAmount      decimal.Decimal `json:"local_admin_amount"`
	LocalAdminPercentage  decimal.Decimal `json:"local_admin_percentage"`
	TotalAmount           decimal.Decimal `json:"total_amount"`

	// LocalAdminID is filled in when earnings are credited
	LocalAdminID string `json:"local_admin_id,omitempty"`
}

// Validate re-checks the reconciliation invariants
func (d *SplitBillingDetails) Validate() error {
	if !d.MasjidAdminPercentage.Add(d.LocalAdminPercentage).Equal(decimal.NewFromInt(100)) {
		return ierr.NewErrorf("split percentages must sum to 100, got %s + %s",
			d.MasjidAdminPercentage, d.LocalAdminPercentage).
			Mark(ierr.ErrValidation)
	}
	if !d.MasjidAdminAmount.Add(d.LocalAdminAmount).Equal(d.TotalAmount) {
		return ierr.NewErrorf("split amounts %s + %s do not reconcile against total %s",
			d.MasjidAdminAmount, d.LocalAdminAmount, d.TotalAmount).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentTransaction is one row of the append-mostly payment ledger. Rows
// are never deleted; completed, failed and refunded rows are terminal.
type PaymentTransaction struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	MasjidID       string `json:"masjid_id"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	Status        types.PaymentStatus `json:"status"`
	PaymentMethod types.PaymentMethod `json:"payment_method"`

	// GatewayBillCode is the ToyyibPay bill identifier created for this
	// transaction; GatewayReference is the gateway's payment reference
	// (refno), unique per transaction and the idempotency key for
	// callback processing.
	GatewayBillCode  string `json:"gateway_bill_code,omitempty"`
	GatewayReference string `json:"gateway_reference,omitempty"`

	SplitBilling *SplitBillingDetails `json:"split_billing_details,omitempty"`

	FailureReason string     `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`

	types.BaseModel
}

// Validate checks the structural invariants of a ledger row
func (t *PaymentTransaction) Validate() error {
	if t.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").Mark(ierr.ErrValidation)
	}
	if t.MasjidID == "" {
		return ierr.NewError("masjid_id is required").Mark(ierr.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if !t.Status.Validate() {
		return ierr.NewErrorf("unknown payment status %q", t.Status).
			Mark(ierr.ErrValidation)
	}
	if !t.PaymentMethod.Validate() {
		return ierr.NewErrorf("unknown payment method %q", t.PaymentMethod).
			Mark(ierr.ErrValidation)
	}
	if t.SplitBilling != nil {
		if err := t.SplitBilling.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsPremiumCompleted reports whether the row is a completed payment carrying
// a split, i.e. one that should credit a local admin exactly once.
func (t *PaymentTransaction) IsPremiumCompleted() bool {
	return t.Status == types.PaymentStatusCompleted &&
		t.SplitBilling != nil &&
		t.SplitBilling.LocalAdminAmount.IsPositive()
}
