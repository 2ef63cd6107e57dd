package subscription

import (
	"time"

	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// Subscription is a masjid's subscription record. At most one non-cancelled
// subscription exists per masjid; cancelled rows are retained for audit.
type Subscription struct {
	ID       string                   `json:"id"`
	MasjidID string                   `json:"masjid_id"`
	Tier     types.TierID             `json:"tier"`
	Status   types.SubscriptionStatus `json:"status"`

	BillingCycle types.BillingCycle `json:"billing_cycle"`
	// Price is snapshotted at creation so later catalog changes never
	// reprice an existing subscription.
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`

	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	NextBillingDate    *time.Time `json:"next_billing_date,omitempty"`

	TrialStart *time.Time `json:"trial_start,omitempty"`
	TrialEnd   *time.Time `json:"trial_end,omitempty"`

	// Grace period tracking, set only while status is grace_period
	GracePeriodStart      *time.Time `json:"grace_period_start,omitempty"`
	GracePeriodEnd        *time.Time `json:"grace_period_end,omitempty"`
	FailedPaymentAttempts int        `json:"failed_payment_attempts"`
	LastFailedAt          *time.Time `json:"last_failed_at,omitempty"`

	// Soft-lock tracking, set only while status is soft_locked
	SoftLockedAt   *time.Time `json:"soft_locked_at,omitempty"`
	SoftLockReason string     `json:"soft_lock_reason,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	// Billing contact forwarded to the payment gateway
	BillingContactName string `json:"billing_contact_name,omitempty"`
	BillingEmail       string `json:"billing_email,omitempty"`
	BillingPhone       string `json:"billing_phone,omitempty"`

	// Version is the optimistic concurrency token. Every update must carry
	// the version it read; the repository rejects stale writes.
	Version int `json:"version"`

	types.BaseModel
}

// Validate checks the structural invariants of a subscription record
func (s *Subscription) Validate() error {
	if s.MasjidID == "" {
		return ierr.NewError("masjid_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.Tier.Validate(); err != nil {
		return err
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return err
	}
	if !s.Status.Validate() {
		return ierr.NewErrorf("unknown subscription status %q", s.Status).
			Mark(ierr.ErrValidation)
	}
	if s.Price.IsNegative() {
		return ierr.NewError("price cannot be negative").Mark(ierr.ErrValidation)
	}
	return nil
}

// IsBillable reports whether the subscription may accept payments. Late
// payments on soft-locked subscriptions reactivate them, so soft_locked is
// billable too.
func (s *Subscription) IsBillable() bool {
	switch s.Status {
	case types.SubscriptionStatusTrial, types.SubscriptionStatusActive,
		types.SubscriptionStatusGracePeriod, types.SubscriptionStatusSoftLocked:
		return true
	default:
		return false
	}
}

// PeriodLength returns the duration helper for advancing billing periods
func (s *Subscription) advancePeriod(from time.Time) time.Time {
	if s.BillingCycle == types.BillingCycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// StartPeriod initializes the billing period fields from the given instant
func (s *Subscription) StartPeriod(now time.Time) {
	end := s.advancePeriod(now)
	s.CurrentPeriodStart = &now
	s.CurrentPeriodEnd = &end
	s.NextBillingDate = &end
}

// RenewPeriod advances the billing period by one cycle from the current
// period end, or from now if the subscription never had a period.
func (s *Subscription) RenewPeriod(now time.Time) {
	from := now
	if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now) {
		from = *s.CurrentPeriodEnd
	}
	end := s.advancePeriod(from)
	s.CurrentPeriodStart = &from
	s.CurrentPeriodEnd = &end
	s.NextBillingDate = &end
}

// ClearGracePeriod resets the grace/failure tracking fields after recovery
func (s *Subscription) ClearGracePeriod() {
	s.GracePeriodStart = nil
	s.GracePeriodEnd = nil
	s.FailedPaymentAttempts = 0
	s.LastFailedAt = nil
}

// ClearSoftLock resets the soft-lock fields after a late payment succeeds
func (s *Subscription) ClearSoftLock() {
	s.SoftLockedAt = nil
	s.SoftLockReason = ""
}
