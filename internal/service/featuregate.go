package service

import (
	"context"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// Feature gate denial reasons returned to callers
const (
	DenialNoSubscription    = "no_subscription"
	DenialSubscriptionState = "subscription_not_active"
	DenialTierNotIncluded   = "tier_does_not_include_feature"
)

// FeatureGateService answers "may this masjid use feature X right now".
// Lookups are hot path for the surrounding applications, so the subscription
// read goes through a short-TTL cache.
type FeatureGateService interface {
	CanUse(ctx context.Context, req dto.FeatureAccessRequest) (*dto.FeatureAccessResponse, error)

	ListTiers(ctx context.Context) (*dto.ListTiersResponse, error)
	GetTier(ctx context.Context, id types.TierID) (*dto.TierResponse, error)
}

type featureGateService struct {
	ServiceParams
}

// NewFeatureGateService creates a feature gate service
func NewFeatureGateService(params ServiceParams) FeatureGateService {
	return &featureGateService{ServiceParams: params}
}

func (s *featureGateService) CanUse(ctx context.Context, req dto.FeatureAccessRequest) (*dto.FeatureAccessResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp := &dto.FeatureAccessResponse{
		MasjidID: req.MasjidID,
		Feature:  req.Feature,
	}

	sub, err := s.subscriptionForMasjid(ctx, req.MasjidID)
	if err != nil {
		if ierr.IsNotFound(err) {
			resp.Reason = DenialNoSubscription
			if recommended, ok := s.Catalog.RecommendTierFor(req.Feature); ok {
				resp.RecommendedTier = recommended
			}
			return resp, nil
		}
		return nil, err
	}
	resp.CurrentTier = sub.Tier

	// Soft-locked and cancelled tenants keep read-only access to their
	// existing data; everything else is gated off.
	switch sub.Status {
	case types.SubscriptionStatusSoftLocked, types.SubscriptionStatusCancelled:
		if !req.Feature.IsReadOnly() {
			resp.Reason = DenialSubscriptionState
			return resp, nil
		}
	}

	def, err := s.Catalog.GetTier(sub.Tier)
	if err != nil {
		return nil, err
	}

	value, ok := def.FeatureValue(req.Feature)
	if !ok || !def.Grants(req.Feature) {
		resp.Reason = DenialTierNotIncluded
		if recommended, recOK := s.Catalog.RecommendTierFor(req.Feature); recOK {
			resp.RecommendedTier = recommended
		}
		return resp, nil
	}

	resp.Allowed = true
	resp.Value = value
	return resp, nil
}

// subscriptionForMasjid resolves the masjid's subscription through the cache
func (s *featureGateService) subscriptionForMasjid(ctx context.Context, masjidID string) (*subscription.Subscription, error) {
	key := subscriptionCacheKeyPrefix + masjidID
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			if sub, ok := cached.(*subscription.Subscription); ok {
				return sub, nil
			}
		}
	}

	sub, err := s.SubRepo.GetByMasjid(ctx, masjidID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, key, sub, s.Config.Cache.SubscriptionTTL)
	}
	return sub, nil
}

func (s *featureGateService) ListTiers(ctx context.Context) (*dto.ListTiersResponse, error) {
	defs := s.Catalog.ListTiers()
	resp := &dto.ListTiersResponse{
		Version: s.Catalog.Version(),
		Items:   make([]*dto.TierResponse, len(defs)),
	}
	for i, def := range defs {
		resp.Items[i] = &dto.TierResponse{TierDefinition: def}
	}
	return resp, nil
}

func (s *featureGateService) GetTier(ctx context.Context, id types.TierID) (*dto.TierResponse, error) {
	def, err := s.Catalog.GetTier(id)
	if err != nil {
		return nil, err
	}
	return &dto.TierResponse{TierDefinition: def}, nil
}
