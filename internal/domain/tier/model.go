package tier

import (
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// FeatureSet holds the numeric limits and capability flags of a tier.
// Numeric limits use -1 for unlimited.
type FeatureSet struct {
	MaxTVDisplays   int `json:"max_tv_displays"`
	MaxContentItems int `json:"max_content_items"`
	RetentionDays   int `json:"retention_days"`

	ContentApprovalRequired bool `json:"content_approval_required"`
	CustomBranding          bool `json:"custom_branding"`
	CustomDomain            bool `json:"custom_domain"`
	WhiteLabel              bool `json:"white_label"`
	APIAccess               bool `json:"api_access"`
	WebhookNotifications    bool `json:"webhook_notifications"`
	DedicatedDatabase       bool `json:"dedicated_database"`
	PrioritySupport         bool `json:"priority_support"`
	LocalAdminSupport       bool `json:"local_admin_support"`
	OnboardingAssistance    bool `json:"onboarding_assistance"`
	AdvancedAnalytics       bool `json:"advanced_analytics"`
	ExportCapabilities      bool `json:"export_capabilities"`
}

// TierDefinition is the immutable description of one subscription tier.
// Definitions are constructed at catalog load time and never mutated; a new
// catalog version supersedes them wholesale.
type TierDefinition struct {
	ID             types.TierID `json:"id"`
	DisplayName    string       `json:"display_name"`
	Description    string       `json:"description"`
	RecommendedFor string       `json:"recommended_for"`

	Features FeatureSet `json:"features"`

	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	Currency     string          `json:"currency"`

	// Split billing shares. Non-premium tiers are trivially 0/100; the two
	// must always sum to exactly 100.
	LocalAdminSharePercent decimal.Decimal `json:"local_admin_share_percent"`
	PlatformSharePercent   decimal.Decimal `json:"platform_share_percent"`
}

// PriceFor returns the tier price for the given billing cycle
func (d *TierDefinition) PriceFor(cycle types.BillingCycle) decimal.Decimal {
	if cycle == types.BillingCycleYearly {
		return d.YearlyPrice
	}
	return d.MonthlyPrice
}

// IsFree reports whether the tier has no charge on any cycle
func (d *TierDefinition) IsFree() bool {
	return d.MonthlyPrice.IsZero() && d.YearlyPrice.IsZero()
}

// FeatureValue resolves a feature key against the tier. Boolean capabilities
// return their flag; numeric limits return the limit value. The second return
// is false for keys the catalog does not know.
func (d *TierDefinition) FeatureValue(key types.FeatureKey) (any, bool) {
	switch key {
	case types.FeatureMaxTVDisplays:
		return d.Features.MaxTVDisplays, true
	case types.FeatureMaxContentItems:
		return d.Features.MaxContentItems, true
	case types.FeatureRetentionDays:
		return d.Features.RetentionDays, true
	case types.FeatureContentApprovalRequired:
		return d.Features.ContentApprovalRequired, true
	case types.FeatureCustomBranding:
		return d.Features.CustomBranding, true
	case types.FeatureCustomDomain:
		return d.Features.CustomDomain, true
	case types.FeatureWhiteLabel:
		return d.Features.WhiteLabel, true
	case types.FeatureAPIAccess:
		return d.Features.APIAccess, true
	case types.FeatureWebhookNotifications:
		return d.Features.WebhookNotifications, true
	case types.FeatureDedicatedDatabase:
		return d.Features.DedicatedDatabase, true
	case types.FeaturePrioritySupport:
		return d.Features.PrioritySupport, true
	case types.FeatureLocalAdminSupport:
		return d.Features.LocalAdminSupport, true
	case types.FeatureOnboardingAssistance:
		return d.Features.OnboardingAssistance, true
	case types.FeatureAdvancedAnalytics:
		return d.Features.AdvancedAnalytics, true
	case types.FeatureExportCapabilities:
		return d.Features.ExportCapabilities, true
	default:
		return nil, false
	}
}

// Grants reports whether the tier grants the feature at all. Boolean flags
// grant when true; numeric limits grant when non-zero.
func (d *TierDefinition) Grants(key types.FeatureKey) bool {
	value, ok := d.FeatureValue(key)
	if !ok {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	default:
		return false
	}
}

// Validate checks the invariants a definition must hold before it may enter
// a catalog.
func (d *TierDefinition) Validate() error {
	if err := d.ID.Validate(); err != nil {
		return err
	}
	if d.MonthlyPrice.IsNegative() || d.YearlyPrice.IsNegative() {
		return ierr.NewErrorf("tier %s has negative pricing", d.ID).
			Mark(ierr.ErrValidation)
	}
	if d.LocalAdminSharePercent.IsNegative() || d.PlatformSharePercent.IsNegative() {
		return ierr.NewErrorf("tier %s has negative split shares", d.ID).
			Mark(ierr.ErrValidation)
	}
	if !d.LocalAdminSharePercent.Add(d.PlatformSharePercent).Equal(decimal.NewFromInt(100)) {
		return ierr.NewErrorf("tier %s split shares must sum to 100, got %s + %s",
			d.ID, d.LocalAdminSharePercent, d.PlatformSharePercent).
			Mark(ierr.ErrValidation)
	}
	if d.Features.LocalAdminSupport && d.LocalAdminSharePercent.IsZero() {
		return ierr.NewErrorf("tier %s supports local admins but allocates them no share", d.ID).
			Mark(ierr.ErrValidation)
	}
	return nil
}
