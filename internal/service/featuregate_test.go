package service

import (
	"testing"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/cache"
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/testutil"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/stretchr/testify/suite"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type FeatureGateServiceSuite struct {
	testutil.BaseServiceTestSuite
	service FeatureGateService
	subSvc  SubscriptionService
	params  ServiceParams
}

func TestFeatureGateService(t *testing.T) {
	suite.Run(t, new(FeatureGateServiceSuite))
}

func (s *FeatureGateServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		Catalog:        tier.DefaultCatalog(),
		SubRepo:        s.GetStores().SubscriptionRepo,
		PaymentRepo:    s.GetStores().PaymentRepo,
		LocalAdminRepo: s.GetStores().LocalAdminRepo,
		AssignmentRepo: s.GetStores().AssignmentRepo,
		Gateway:        s.GetGateway(),
		Cache:          cache.GetInMemoryCache(),
		Now:            s.GetClock().Now,
	}
	s.service = NewFeatureGateService(s.params)
	s.subSvc = NewSubscriptionService(s.params)
}

func (s *FeatureGateServiceSuite) subscribe(masjidID string, tierID types.TierID) *dto.SubscriptionResponse {
	resp, err := s.subSvc.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     masjidID,
		Tier:         tierID,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().NoError(err)
	return resp
}

func (s *FeatureGateServiceSuite) check(masjidID string, feature types.FeatureKey) *dto.FeatureAccessResponse {
	resp, err := s.service.CanUse(s.GetContext(), dto.FeatureAccessRequest{
		MasjidID: masjidID,
		Feature:  feature,
	})
	s.Require().NoError(err)
	return resp
}

func (s *FeatureGateServiceSuite) TestGrantedFeatureWithValue() {
	s.subscribe("masjid_1", types.TierPro)

	resp := s.check("masjid_1", types.FeatureMaxTVDisplays)
	s.True(resp.Allowed)
	s.Equal(5, resp.Value)
	s.Equal(types.TierPro, resp.CurrentTier)
	s.Empty(resp.Reason)
}

func (s *FeatureGateServiceSuite) TestUnlimitedLimitPassesThrough() {
	s.subscribe("masjid_1", types.TierPremium)

	resp := s.check("masjid_1", types.FeatureMaxTVDisplays)
	s.True(resp.Allowed)
	s.Equal(-1, resp.Value)
}

func (s *FeatureGateServiceSuite) TestTierWithoutFeatureDeniesWithUpgrade() {
	s.subscribe("masjid_1", types.TierRakyat)

	resp := s.check("masjid_1", types.FeatureAPIAccess)
	s.False(resp.Allowed)
	s.Equal(DenialTierNotIncluded, resp.Reason)
	s.Equal(types.TierRakyat, resp.CurrentTier)
	s.Equal(types.TierPro, resp.RecommendedTier)
}

func (s *FeatureGateServiceSuite) TestNoSubscriptionDeniesWithRecommendation() {
	resp := s.check("masjid_unknown", types.FeatureLocalAdminSupport)
	s.False(resp.Allowed)
	s.Equal(DenialNoSubscription, resp.Reason)
	s.Equal(types.TierPremium, resp.RecommendedTier)
}

func (s *FeatureGateServiceSuite) TestSoftLockedTenantIsGatedOff() {
	created := s.subscribe("masjid_1", types.TierPro)
	_, err := s.subSvc.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	_, err = s.subSvc.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusGracePeriod,
	})
	s.Require().NoError(err)
	_, err = s.subSvc.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusSoftLocked,
	})
	s.Require().NoError(err)

	resp := s.check("masjid_1", types.FeatureAPIAccess)
	s.False(resp.Allowed)
	s.Equal(DenialSubscriptionState, resp.Reason)
}

func (s *FeatureGateServiceSuite) TestReadOnlyFeatureSurvivesSoftLock() {
	created := s.subscribe("masjid_1", types.TierPro)
	_, err := s.subSvc.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	_, err = s.subSvc.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusGracePeriod,
	})
	s.Require().NoError(err)
	_, err = s.subSvc.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusSoftLocked,
	})
	s.Require().NoError(err)

	resp := s.check("masjid_1", types.FeatureExportCapabilities)
	s.True(resp.Allowed)
	s.Equal(true, resp.Value)
}

func (s *FeatureGateServiceSuite) TestTrialTenantHasFullAccess() {
	s.subscribe("masjid_1", types.TierPremium)

	resp := s.check("masjid_1", types.FeatureWhiteLabel)
	s.True(resp.Allowed)
}

func (s *FeatureGateServiceSuite) TestRejectsUnknownFeature() {
	s.subscribe("masjid_1", types.TierPro)

	_, err := s.service.CanUse(s.GetContext(), dto.FeatureAccessRequest{
		MasjidID: "masjid_1",
		Feature:  types.FeatureKey("time_travel"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FeatureGateServiceSuite) TestCacheInvalidatedOnTransition() {
	created := s.subscribe("masjid_1", types.TierPro)
	_, err := s.subSvc.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)

	// Prime the cache with the active subscription
	resp := s.check("masjid_1", types.FeatureAPIAccess)
	s.True(resp.Allowed)

	// Cancelling must be visible immediately, not after TTL expiry
	_, err = s.subSvc.CancelSubscription(s.GetContext(), created.ID, dto.CancelSubscriptionRequest{})
	s.Require().NoError(err)

	resp = s.check("masjid_1", types.FeatureAPIAccess)
	s.False(resp.Allowed)
	s.Equal(DenialSubscriptionState, resp.Reason)
}

func (s *FeatureGateServiceSuite) TestListTiersReturnsCatalog() {
	resp, err := s.service.ListTiers(s.GetContext())
	s.Require().NoError(err)
	s.Equal("2025-01", resp.Version)
	s.Require().Len(resp.Items, 3)
	s.Equal(types.TierRakyat, resp.Items[0].ID)
	s.Equal(types.TierPremium, resp.Items[2].ID)
}

func (s *FeatureGateServiceSuite) TestGetTierUnknown() {
	_, err := s.service.GetTier(s.GetContext(), types.TierID("platinum"))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
