package dto

import (
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type TierResponse struct {
	*tier.TierDefinition
}

type ListTiersResponse struct {
	Version string          `json:"version"`
	Items   []*TierResponse `json:"items"`
}

type FeatureAccessRequest struct {
	MasjidID string           `json:"masjid_id" form:"masjid_id" validate:"required"`
	Feature  types.FeatureKey `json:"feature" form:"feature" validate:"required"`
}

func (r *FeatureAccessRequest) Validate() error {
	if r.MasjidID == "" {
		return ierr.NewError("masjid_id is required").
			WithHint("Masjid ID is required").
			Mark(ierr.ErrValidation)
	}
	if !r.Feature.Validate() {
		return ierr.NewErrorf("unknown feature key %q", r.Feature).
			WithHint("Unknown feature key").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FeatureAccessResponse is the feature gate's decision. Value carries the
// limit for numeric features and the flag for boolean ones. RecommendedTier
// points at the cheapest tier granting the feature when access is denied.
type FeatureAccessResponse struct {
	MasjidID string           `json:"masjid_id"`
	Feature  types.FeatureKey `json:"feature"`
	Allowed  bool             `json:"allowed"`
	Value    interface{}      `json:"value,omitempty"`
	Reason   string           `json:"reason,omitempty"`

	CurrentTier     types.TierID `json:"current_tier,omitempty"`
	RecommendedTier types.TierID `json:"recommended_tier,omitempty"`
}
