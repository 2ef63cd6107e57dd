package service

import (
	"testing"
	"time"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/testutil"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	params  ServiceParams
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
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
		Now:            s.GetClock().Now,
	}
	s.service = NewSubscriptionService(s.params)
}

func (s *SubscriptionServiceSuite) createSubscription(masjidID string, tierID types.TierID) *dto.SubscriptionResponse {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     masjidID,
		Tier:         tierID,
		BillingCycle: types.BillingCycleMonthly,
		BillingEmail: "admin@masjid.example",
	})
	s.Require().NoError(err)
	return resp
}

func (s *SubscriptionServiceSuite) TestCreateFreeTierActivatesImmediately() {
	resp := s.createSubscription("masjid_1", types.TierRakyat)

	s.Equal(types.SubscriptionStatusActive, resp.Status)
	s.True(resp.Price.IsZero())
	s.Nil(resp.TrialEnd)
	s.NotNil(resp.CurrentPeriodEnd)
}

func (s *SubscriptionServiceSuite) TestCreatePaidTierStartsTrial() {
	resp := s.createSubscription("masjid_1", types.TierPremium)

	s.Equal(types.SubscriptionStatusTrial, resp.Status)
	s.True(resp.Price.Equal(decimal.NewFromInt(300)))
	s.Equal("MYR", resp.Currency)
	s.Require().NotNil(resp.TrialEnd)

	expectedEnd := s.GetClock().Now().Add(14 * 24 * time.Hour)
	s.True(resp.TrialEnd.Equal(expectedEnd), "trial end %s, want %s", resp.TrialEnd, expectedEnd)
}

func (s *SubscriptionServiceSuite) TestCreateDuplicateConflicts() {
	s.createSubscription("masjid_1", types.TierPro)

	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     "masjid_1",
		Tier:         types.TierPremium,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateAfterCancelSucceeds() {
	created := s.createSubscription("masjid_1", types.TierPro)
	_, err := s.service.CancelSubscription(s.GetContext(), created.ID, dto.CancelSubscriptionRequest{})
	s.Require().NoError(err)

	s.GetClock().Advance(time.Hour)
	resp := s.createSubscription("masjid_1", types.TierPremium)
	s.Equal(types.TierPremium, resp.Tier)
}

func (s *SubscriptionServiceSuite) TestCreateUnknownTier() {
	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     "masjid_1",
		Tier:         types.TierID("platinum"),
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestTransitionRejectsIllegalEdge() {
	created := s.createSubscription("masjid_1", types.TierPro)

	// trial cannot soft-lock directly
	_, err := s.service.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusSoftLocked,
	})
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *SubscriptionServiceSuite) TestCancelSetsReasonAndTimestamp() {
	created := s.createSubscription("masjid_1", types.TierPro)

	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, dto.CancelSubscriptionRequest{Reason: "switching platforms"})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, resp.Status)
	s.Equal("switching platforms", resp.CancellationReason)
	s.NotNil(resp.CancelledAt)
}

func (s *SubscriptionServiceSuite) TestCancelDefaultsToUserRequested() {
	created := s.createSubscription("masjid_1", types.TierPro)

	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, dto.CancelSubscriptionRequest{})
	s.Require().NoError(err)
	s.Equal(types.CancelReasonUserRequested, resp.CancellationReason)
}

func (s *SubscriptionServiceSuite) TestCancelledIsTerminal() {
	created := s.createSubscription("masjid_1", types.TierPro)
	_, err := s.service.CancelSubscription(s.GetContext(), created.ID, dto.CancelSubscriptionRequest{})
	s.Require().NoError(err)

	_, err = s.service.TransitionSubscription(s.GetContext(), created.ID, dto.TransitionSubscriptionRequest{
		Status: types.SubscriptionStatusActive,
	})
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *SubscriptionServiceSuite) TestCompletedPaymentActivatesTrial() {
	created := s.createSubscription("masjid_1", types.TierPremium)

	sub, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Require().NotNil(sub.CurrentPeriodEnd)

	expectedEnd := s.GetClock().Now().AddDate(0, 1, 0)
	s.True(sub.CurrentPeriodEnd.Equal(expectedEnd))
}

func (s *SubscriptionServiceSuite) TestFailedPaymentStartsGracePeriod() {
	created := s.createSubscription("masjid_1", types.TierPremium)
	_, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)

	sub, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeFailed)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusGracePeriod, sub.Status)
	s.Equal(1, sub.FailedPaymentAttempts)
	s.Require().NotNil(sub.GracePeriodEnd)

	expectedEnd := s.GetClock().Now().Add(7 * 24 * time.Hour)
	s.True(sub.GracePeriodEnd.Equal(expectedEnd))
}

func (s *SubscriptionServiceSuite) TestPaymentDuringGraceRecovers() {
	created := s.createSubscription("masjid_1", types.TierPremium)
	_, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	_, err = s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeFailed)
	s.Require().NoError(err)

	sub, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Nil(sub.GracePeriodEnd)
	s.Equal(0, sub.FailedPaymentAttempts)
}

func (s *SubscriptionServiceSuite) TestLatePaymentUnlocksSoftLocked() {
	created := s.createSubscription("masjid_1", types.TierPremium)
	_, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	_, err = s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeFailed)
	s.Require().NoError(err)

	// Grace runs out, the sweep locks the tenant
	s.GetClock().Advance(8 * 24 * time.Hour)
	moved, err := s.service.ProcessDueTransitions(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, moved)

	sub, err := s.params.SubRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusSoftLocked, sub.Status)
	s.Equal(types.LockReasonGraceExpired, sub.SoftLockReason)

	// A late payment reactivates
	recovered, err := s.service.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, recovered.Status)
	s.Empty(recovered.SoftLockReason)
}

func (s *SubscriptionServiceSuite) TestSweepCancelsExpiredTrials() {
	created := s.createSubscription("masjid_1", types.TierPro)
	s.Equal(types.SubscriptionStatusTrial, created.Status)

	s.GetClock().Advance(15 * 24 * time.Hour)
	moved, err := s.service.ProcessDueTransitions(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, moved)

	sub, err := s.params.SubRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, sub.Status)
	s.Equal(types.CancelReasonTrialExpired, sub.CancellationReason)
}

func (s *SubscriptionServiceSuite) TestSweepIgnoresHealthySubscriptions() {
	s.createSubscription("masjid_1", types.TierPro)
	s.createSubscription("masjid_2", types.TierRakyat)

	moved, err := s.service.ProcessDueTransitions(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, moved)
}

func (s *SubscriptionServiceSuite) TestSweepIsIdempotent() {
	s.createSubscription("masjid_1", types.TierPro)
	s.GetClock().Advance(15 * 24 * time.Hour)

	moved, err := s.service.ProcessDueTransitions(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, moved)

	moved, err = s.service.ProcessDueTransitions(s.GetContext())
	s.Require().NoError(err)
	s.Equal(0, moved)
}

func (s *SubscriptionServiceSuite) TestYearlyCyclePeriodLength() {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     "masjid_1",
		Tier:         types.TierPremium,
		BillingCycle: types.BillingCycleYearly,
	})
	s.Require().NoError(err)
	s.True(resp.Price.Equal(decimal.NewFromInt(3600)))

	sub, err := s.service.ApplyPaymentOutcome(s.GetContext(), resp.ID, types.GatewayOutcomeCompleted)
	s.Require().NoError(err)
	s.Require().NotNil(sub.CurrentPeriodEnd)
	expectedEnd := s.GetClock().Now().AddDate(1, 0, 0)
	s.True(sub.CurrentPeriodEnd.Equal(expectedEnd))
}

func (s *SubscriptionServiceSuite) TestListSubscriptionsByStatus() {
	s.createSubscription("masjid_1", types.TierRakyat)
	s.createSubscription("masjid_2", types.TierPro)

	resp, err := s.service.ListSubscriptions(s.GetContext(), dto.ListSubscriptionsRequest{
		Statuses: []types.SubscriptionStatus{types.SubscriptionStatusTrial},
	})
	s.Require().NoError(err)
	s.Equal(1, resp.Total)
	s.Equal("masjid_2", resp.Items[0].MasjidID)
}
