package payment

import (
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

var hundred = decimal.NewFromInt(100)

// ComputeSplit divides a payment amount between the masjid admin and the
// local admin according to the tier's configured shares.
//
// Non-premium tiers get the identity split: the full amount on the masjid
// admin side, zero for the local admin. For share-bearing tiers the local
// admin amount is rounded down to the smallest currency unit (sen) and the
// remainder goes to the masjid admin side, so the two amounts always sum to
// the input exactly.
//
// Shares must sum to 100; a split that does not is rejected before it can
// reach the ledger.
func ComputeSplit(amount decimal.Decimal, def *tier.TierDefinition) (*SplitBillingDetails, error) {
	if def == nil {
		return nil, ierr.NewError("tier definition is required").Mark(ierr.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, ierr.NewErrorf("split amount must be positive, got %s", amount).
			Mark(ierr.ErrValidation)
	}
	if !def.LocalAdminSharePercent.Add(def.PlatformSharePercent).Equal(hundred) {
		return nil, ierr.NewErrorf("tier %s split shares corrupted: %s + %s != 100",
			def.ID, def.LocalAdminSharePercent, def.PlatformSharePercent).
			Mark(ierr.ErrValidation)
	}

	localShare := def.LocalAdminSharePercent
	masjidShare := hundred.Sub(localShare)

	// Round the local admin side down to sen; the remainder stays with the
	// masjid admin so totals reconcile deterministically.
	localAmount := amount.Mul(localShare).Div(hundred).RoundDown(2)
	masjidAmount := amount.Sub(localAmount)

	details := &SplitBillingDetails{
		MasjidAdminAmount:     masjidAmount,
		MasjidAdminPercentage: masjidShare,
		LocalAdminAmount:      localAmount,
		LocalAdminPercentage:  localShare,
		TotalAmount:           amount,
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return details, nil
}
