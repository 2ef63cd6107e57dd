package types

import ierr "github.com/masjid-suite/billing/internal/errors"

// TierID identifies one of the three subscription tiers. The set is closed:
// anything else is rejected at the boundary.
type TierID string

const (
	TierRakyat  TierID = "rakyat"
	TierPro     TierID = "pro"
	TierPremium TierID = "premium"
)

// Validate rejects unknown tier identifiers
func (t TierID) Validate() error {
	switch t {
	case TierRakyat, TierPro, TierPremium:
		return nil
	default:
		return ierr.NewErrorf("unknown tier %q", t).
			WithHint("Tier must be one of: rakyat, pro, premium").
			Mark(ierr.ErrValidation)
	}
}

// BillingCycle is the subscription billing interval
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Validate rejects unknown billing cycles
func (c BillingCycle) Validate() error {
	switch c {
	case BillingCycleMonthly, BillingCycleYearly:
		return nil
	default:
		return ierr.NewErrorf("unknown billing cycle %q", c).
			WithHint("Billing cycle must be monthly or yearly").
			Mark(ierr.ErrValidation)
	}
}
