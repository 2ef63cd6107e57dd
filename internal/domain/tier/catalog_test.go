package tier

import (
	"testing"

	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.NotNil(t, catalog)
	assert.Equal(t, "2025-01", catalog.Version())

	tiers := catalog.ListTiers()
	require.Len(t, tiers, 3)
	assert.Equal(t, types.TierRakyat, tiers[0].ID)
	assert.Equal(t, types.TierPro, tiers[1].ID)
	assert.Equal(t, types.TierPremium, tiers[2].ID)

	rakyat, err := catalog.GetTier(types.TierRakyat)
	require.NoError(t, err)
	assert.True(t, rakyat.IsFree())
	assert.Equal(t, 1, rakyat.Features.MaxTVDisplays)
	assert.True(t, rakyat.Features.ContentApprovalRequired)

	pro, err := catalog.GetTier(types.TierPro)
	require.NoError(t, err)
	assert.True(t, pro.MonthlyPrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, pro.YearlyPrice.Equal(decimal.NewFromInt(300)))
	assert.True(t, pro.LocalAdminSharePercent.IsZero())

	premium, err := catalog.GetTier(types.TierPremium)
	require.NoError(t, err)
	assert.True(t, premium.MonthlyPrice.Equal(decimal.NewFromInt(300)))
	assert.True(t, premium.YearlyPrice.Equal(decimal.NewFromInt(3600)))
	assert.True(t, premium.LocalAdminSharePercent.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, -1, premium.Features.MaxTVDisplays)
	assert.True(t, premium.Features.LocalAdminSupport)
}

func TestGetTierUnknown(t *testing.T) {
	catalog := DefaultCatalog()
	_, err := catalog.GetTier(types.TierID("platinum"))
	assert.Error(t, err)
}

func TestPriceFor(t *testing.T) {
	catalog := DefaultCatalog()
	pro, err := catalog.GetTier(types.TierPro)
	require.NoError(t, err)

	assert.True(t, pro.PriceFor(types.BillingCycleMonthly).Equal(decimal.NewFromInt(30)))
	assert.True(t, pro.PriceFor(types.BillingCycleYearly).Equal(decimal.NewFromInt(300)))
}

func TestRecommendTierFor(t *testing.T) {
	catalog := DefaultCatalog()

	// api_access first appears on Pro
	recommended, ok := catalog.RecommendTierFor(types.FeatureAPIAccess)
	require.True(t, ok)
	assert.Equal(t, types.TierPro, recommended)

	// local admin support is premium only
	recommended, ok = catalog.RecommendTierFor(types.FeatureLocalAdminSupport)
	require.True(t, ok)
	assert.Equal(t, types.TierPremium, recommended)

	// every tier has displays
	recommended, ok = catalog.RecommendTierFor(types.FeatureMaxTVDisplays)
	require.True(t, ok)
	assert.Equal(t, types.TierRakyat, recommended)
}

func TestGrants(t *testing.T) {
	catalog := DefaultCatalog()
	rakyat, err := catalog.GetTier(types.TierRakyat)
	require.NoError(t, err)

	assert.False(t, rakyat.Grants(types.FeatureAPIAccess))
	assert.True(t, rakyat.Grants(types.FeatureMaxTVDisplays))

	premium, err := catalog.GetTier(types.TierPremium)
	require.NoError(t, err)
	// -1 means unlimited, which still grants
	assert.True(t, premium.Grants(types.FeatureMaxTVDisplays))
	assert.True(t, premium.Grants(types.FeatureWhiteLabel))
}

func TestNewCatalogRejectsBadShares(t *testing.T) {
	_, err := NewCatalog("test",
		&TierDefinition{
			ID:                     types.TierPro,
			MonthlyPrice:           decimal.NewFromInt(30),
			YearlyPrice:            decimal.NewFromInt(300),
			Currency:               CurrencyMYR,
			LocalAdminSharePercent: decimal.NewFromInt(60),
			PlatformSharePercent:   decimal.NewFromInt(60),
		},
	)
	assert.Error(t, err)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	def := &TierDefinition{
		ID:                   types.TierRakyat,
		Currency:             CurrencyMYR,
		PlatformSharePercent: decimal.NewFromInt(100),
	}
	_, err := NewCatalog("test", def, def)
	assert.Error(t, err)
}

func TestNewCatalogRejectsSupportWithoutShare(t *testing.T) {
	_, err := NewCatalog("test",
		&TierDefinition{
			ID:                   types.TierPremium,
			Currency:             CurrencyMYR,
			PlatformSharePercent: decimal.NewFromInt(100),
			Features:             FeatureSet{LocalAdminSupport: true},
		},
	)
	assert.Error(t, err)
}
