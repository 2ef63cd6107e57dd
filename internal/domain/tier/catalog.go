package tier

import (
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// CurrencyMYR is the only currency the suite bills in today
const CurrencyMYR = "MYR"

// Catalog is an immutable, versioned set of tier definitions. Construction
// validates every definition, so a catalog that exists is a catalog that is
// internally consistent.
type Catalog struct {
	version string
	tiers   map[types.TierID]*TierDefinition
	order   []types.TierID
}

// NewCatalog builds a catalog from the given definitions, failing fast on
// any invariant violation (unknown tier id, split shares not summing to 100,
// duplicate definitions).
func NewCatalog(version string, defs ...*TierDefinition) (*Catalog, error) {
	if version == "" {
		return nil, ierr.NewError("catalog version is required").
			Mark(ierr.ErrValidation)
	}
	if len(defs) == 0 {
		return nil, ierr.NewError("catalog requires at least one tier definition").
			Mark(ierr.ErrValidation)
	}

	c := &Catalog{
		version: version,
		tiers:   make(map[types.TierID]*TierDefinition, len(defs)),
		order:   make([]types.TierID, 0, len(defs)),
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.tiers[def.ID]; exists {
			return nil, ierr.NewErrorf("duplicate tier definition for %s", def.ID).
				Mark(ierr.ErrValidation)
		}
		c.tiers[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

// Version returns the catalog version identifier
func (c *Catalog) Version() string {
	return c.version
}

// GetTier resolves a tier definition. An unknown id is a programmer error
// given the closed enum, but it is still surfaced as a typed error rather
// than a panic.
func (c *Catalog) GetTier(id types.TierID) (*TierDefinition, error) {
	def, ok := c.tiers[id]
	if !ok {
		return nil, ierr.NewErrorf("tier %q not in catalog version %s", id, c.version).
			WithHint("Unknown subscription tier").
			Mark(ierr.ErrNotFound)
	}
	return def, nil
}

// ListTiers returns the definitions in declaration order (cheapest first in
// the default catalog).
func (c *Catalog) ListTiers() []*TierDefinition {
	out := make([]*TierDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tiers[id])
	}
	return out
}

// RecommendTierFor returns the cheapest tier granting the feature, if any.
// Used by the feature gate to suggest an upgrade path.
func (c *Catalog) RecommendTierFor(key types.FeatureKey) (types.TierID, bool) {
	for _, id := range c.order {
		if c.tiers[id].Grants(key) {
			return id, true
		}
	}
	return "", false
}

// DefaultCatalog returns the current production catalog. Values mirror the
// published e-Masjid pricing page: Rakyat is free, Pro is RM30/month, Premium
// is RM300/month with a 50/50 split between platform and local admin. Yearly
// pricing gives two months free.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog("2025-01",
		&TierDefinition{
			ID:             types.TierRakyat,
			DisplayName:    "Rakyat",
			Description:    "Pelan percuma untuk semua masjid",
			RecommendedFor: "Small masjids getting started with digital displays",
			Features: FeatureSet{
				MaxTVDisplays:           1,
				MaxContentItems:         10,
				RetentionDays:           30,
				ContentApprovalRequired: true,
			},
			MonthlyPrice:           decimal.Zero,
			YearlyPrice:            decimal.Zero,
			Currency:               CurrencyMYR,
			LocalAdminSharePercent: decimal.Zero,
			PlatformSharePercent:   decimal.NewFromInt(100),
		},
		&TierDefinition{
			ID:             types.TierPro,
			DisplayName:    "Pro",
			Description:    "Untuk masjid yang aktif dengan kandungan digital",
			RecommendedFor: "Masjids running several displays with frequent content updates",
			Features: FeatureSet{
				MaxTVDisplays:        5,
				MaxContentItems:      50,
				RetentionDays:        90,
				APIAccess:            true,
				WebhookNotifications: true,
				AdvancedAnalytics:    true,
				ExportCapabilities:   true,
			},
			MonthlyPrice:           decimal.NewFromInt(30),
			YearlyPrice:            decimal.NewFromInt(300),
			Currency:               CurrencyMYR,
			LocalAdminSharePercent: decimal.Zero,
			PlatformSharePercent:   decimal.NewFromInt(100),
		},
		&TierDefinition{
			ID:             types.TierPremium,
			DisplayName:    "Premium",
			Description:    "Perkhidmatan penuh dengan sokongan local admin",
			RecommendedFor: "Large masjids wanting managed service and dedicated support",
			Features: FeatureSet{
				MaxTVDisplays:        -1,
				MaxContentItems:      -1,
				RetentionDays:        365,
				CustomBranding:       true,
				CustomDomain:         true,
				WhiteLabel:           true,
				APIAccess:            true,
				WebhookNotifications: true,
				DedicatedDatabase:    true,
				PrioritySupport:      true,
				LocalAdminSupport:    true,
				OnboardingAssistance: true,
				AdvancedAnalytics:    true,
				ExportCapabilities:   true,
			},
			MonthlyPrice:           decimal.NewFromInt(300),
			YearlyPrice:            decimal.NewFromInt(3600),
			Currency:               CurrencyMYR,
			LocalAdminSharePercent: decimal.NewFromInt(50),
			PlatformSharePercent:   decimal.NewFromInt(50),
		},
	)
	if err != nil {
		// The default catalog is compile-time data; failing to build it is
		// a programming error.
		panic(err)
	}
	return catalog
}
