package payment

import (
	"testing"

	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func premiumDef(t *testing.T) *tier.TierDefinition {
	t.Helper()
	def, err := tier.DefaultCatalog().GetTier(types.TierPremium)
	require.NoError(t, err)
	return def
}

func TestComputeSplitPremiumMonthly(t *testing.T) {
	split, err := ComputeSplit(decimal.NewFromInt(300), premiumDef(t))
	require.NoError(t, err)

	assert.True(t, split.LocalAdminAmount.Equal(decimal.NewFromInt(150)), "local admin gets %s", split.LocalAdminAmount)
	assert.True(t, split.MasjidAdminAmount.Equal(decimal.NewFromInt(150)))
	assert.True(t, split.TotalAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, split.LocalAdminPercentage.Equal(decimal.NewFromInt(50)))
	assert.True(t, split.MasjidAdminPercentage.Equal(decimal.NewFromInt(50)))
}

func TestComputeSplitRoundsDownLocalSide(t *testing.T) {
	// 0.01 MYR cannot split evenly: the local side rounds down to zero sen
	// and the remainder stays with the masjid admin.
	split, err := ComputeSplit(decimal.RequireFromString("0.01"), premiumDef(t))
	require.NoError(t, err)

	assert.True(t, split.LocalAdminAmount.IsZero())
	assert.True(t, split.MasjidAdminAmount.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, split.LocalAdminAmount.Add(split.MasjidAdminAmount).Equal(split.TotalAmount))
}

func TestComputeSplitOddAmountsReconcile(t *testing.T) {
	amounts := []string{"0.03", "99.99", "123.45", "300.01", "3600.00"}
	def := premiumDef(t)
	for _, raw := range amounts {
		amount := decimal.RequireFromString(raw)
		split, err := ComputeSplit(amount, def)
		require.NoError(t, err, "amount %s", raw)

		assert.True(t, split.LocalAdminAmount.Add(split.MasjidAdminAmount).Equal(amount),
			"amount %s: %s + %s", raw, split.LocalAdminAmount, split.MasjidAdminAmount)
		// Local side never exceeds its exact share
		exact := amount.Div(decimal.NewFromInt(2))
		assert.True(t, split.LocalAdminAmount.LessThanOrEqual(exact))
	}
}

func TestComputeSplitNonPremiumTier(t *testing.T) {
	def, err := tier.DefaultCatalog().GetTier(types.TierPro)
	require.NoError(t, err)

	split, err := ComputeSplit(decimal.NewFromInt(30), def)
	require.NoError(t, err)
	assert.True(t, split.LocalAdminAmount.IsZero())
	assert.True(t, split.MasjidAdminAmount.Equal(decimal.NewFromInt(30)))
}

func TestComputeSplitRejectsNonPositiveAmount(t *testing.T) {
	def := premiumDef(t)

	_, err := ComputeSplit(decimal.Zero, def)
	assert.Error(t, err)

	_, err = ComputeSplit(decimal.NewFromInt(-10), def)
	assert.Error(t, err)
}

func TestComputeSplitRejectsNilDefinition(t *testing.T) {
	_, err := ComputeSplit(decimal.NewFromInt(300), nil)
	assert.Error(t, err)
}

func TestSplitBillingDetailsValidate(t *testing.T) {
	details := &SplitBillingDetails{
		MasjidAdminAmount:     decimal.NewFromInt(150),
		MasjidAdminPercentage: decimal.NewFromInt(50),
		LocalAdminAmount:      decimal.NewFromInt(140),
		LocalAdminPercentage:  decimal.NewFromInt(50),
		TotalAmount:           decimal.NewFromInt(300),
	}
	assert.Error(t, details.Validate(), "amounts that do not reconcile must fail")

	details.LocalAdminAmount = decimal.NewFromInt(150)
	assert.NoError(t, details.Validate())
}
