package types

// FeatureKey identifies a gated capability or limit. The set mirrors the
// tier catalog; unknown keys are rejected at the boundary.
type FeatureKey string

const (
	// Display management
	FeatureMaxTVDisplays           FeatureKey = "max_tv_displays"
	FeatureMaxContentItems         FeatureKey = "max_content_items"
	FeatureContentApprovalRequired FeatureKey = "content_approval_required"

	// Branding
	FeatureCustomBranding FeatureKey = "custom_branding"
	FeatureCustomDomain   FeatureKey = "custom_domain"
	FeatureWhiteLabel     FeatureKey = "white_label"

	// Technical
	FeatureAPIAccess            FeatureKey = "api_access"
	FeatureWebhookNotifications FeatureKey = "webhook_notifications"
	FeatureDedicatedDatabase    FeatureKey = "dedicated_database"

	// Support
	FeaturePrioritySupport      FeatureKey = "priority_support"
	FeatureLocalAdminSupport    FeatureKey = "local_admin_support"
	FeatureOnboardingAssistance FeatureKey = "onboarding_assistance"

	// Analytics
	FeatureAdvancedAnalytics   FeatureKey = "advanced_analytics"
	FeatureExportCapabilities  FeatureKey = "export_capabilities"
	FeatureRetentionDays       FeatureKey = "retention_days"
)

var allFeatureKeys = map[FeatureKey]struct{}{
	FeatureMaxTVDisplays:           {},
	FeatureMaxContentItems:         {},
	FeatureContentApprovalRequired: {},
	FeatureCustomBranding:          {},
	FeatureCustomDomain:            {},
	FeatureWhiteLabel:              {},
	FeatureAPIAccess:               {},
	FeatureWebhookNotifications:    {},
	FeatureDedicatedDatabase:       {},
	FeaturePrioritySupport:         {},
	FeatureLocalAdminSupport:       {},
	FeatureOnboardingAssistance:    {},
	FeatureAdvancedAnalytics:       {},
	FeatureExportCapabilities:      {},
	FeatureRetentionDays:           {},
}

// readOnlyFeatures remain allowed while a subscription is soft-locked or
// cancelled so the tenant can still view and export existing data.
var readOnlyFeatures = map[FeatureKey]struct{}{
	FeatureExportCapabilities: {},
	FeatureRetentionDays:      {},
}

// Validate rejects unknown feature keys
func (k FeatureKey) Validate() bool {
	_, ok := allFeatureKeys[k]
	return ok
}

// IsReadOnly reports whether the feature survives a soft lock
func (k FeatureKey) IsReadOnly() bool {
	_, ok := readOnlyFeatures[k]
	return ok
}
