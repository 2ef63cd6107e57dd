package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
	"github.com/masjid-suite/billing/internal/testutil"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PaymentService
	subSvc   SubscriptionService
	adminSvc LocalAdminService
	params   ServiceParams
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
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
	s.service = NewPaymentService(s.params)
	s.subSvc = NewSubscriptionService(s.params)
	s.adminSvc = NewLocalAdminService(s.params)
}

// createActiveSubscription creates a subscription and settles its first
// payment so it lands in active.
func (s *PaymentServiceSuite) createActiveSubscription(masjidID string, tierID types.TierID) *dto.SubscriptionResponse {
	created, err := s.subSvc.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		MasjidID:     masjidID,
		Tier:         tierID,
		BillingCycle: types.BillingCycleMonthly,
		BillingEmail: "admin@masjid.example",
	})
	s.Require().NoError(err)
	if created.Status == types.SubscriptionStatusTrial {
		_, err = s.subSvc.ApplyPaymentOutcome(s.GetContext(), created.ID, types.GatewayOutcomeCompleted)
		s.Require().NoError(err)
	}
	resp, err := s.subSvc.GetSubscription(s.GetContext(), created.ID)
	s.Require().NoError(err)
	return resp
}

func (s *PaymentServiceSuite) createAssignedAdmin(masjidID string) *dto.LocalAdminResponse {
	admin, err := s.adminSvc.CreateLocalAdmin(s.GetContext(), dto.CreateLocalAdminRequest{
		UserID:   "user_admin_" + masjidID,
		FullName: "Ahmad Zaki",
		Email:    "ahmad@example.com",
	})
	s.Require().NoError(err)
	_, err = s.adminSvc.AssignLocalAdmin(s.GetContext(), dto.AssignLocalAdminRequest{
		MasjidID:     masjidID,
		LocalAdminID: admin.ID,
	})
	s.Require().NoError(err)
	return admin
}

func (s *PaymentServiceSuite) TestCreateGatewayPaymentIssuesBill() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	resp, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	s.Equal(types.PaymentStatusProcessing, resp.Status)
	s.Equal("stub-bill-001", resp.GatewayBillCode)
	s.Equal("https://dev.toyyibpay.com/stub-bill-001", resp.PaymentURL)
	s.True(resp.Amount.Equal(decimal.NewFromInt(300)))

	calls := s.GetGateway().Calls()
	s.Require().Len(calls, 1)
	s.Equal("300.00", calls[0].Amount)
	s.Equal(resp.ID, calls[0].ExternalRefNo)
}

func (s *PaymentServiceSuite) TestPremiumPaymentCarriesSplitSnapshot() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	resp, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	s.Require().NotNil(resp.SplitBilling)
	s.True(resp.SplitBilling.MasjidAdminAmount.Equal(decimal.NewFromInt(150)))
	s.True(resp.SplitBilling.LocalAdminAmount.Equal(decimal.NewFromInt(150)))
	s.Equal(admin.ID, resp.SplitBilling.LocalAdminID)

	calls := s.GetGateway().Calls()
	s.Require().Len(calls, 1)
	s.Require().NotNil(calls[0].Split)
	s.Equal("150.00", calls[0].Split.LocalAdminAmount)
	s.Equal("ahmad@example.com", calls[0].Split.LocalAdminEmail)
}

func (s *PaymentServiceSuite) TestProPaymentHasNoSplit() {
	sub := s.createActiveSubscription("masjid_1", types.TierPro)

	resp, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)
	s.Nil(resp.SplitBilling)
}

func (s *PaymentServiceSuite) TestCreatePaymentRejectsFreeTier() {
	sub := s.createActiveSubscription("masjid_1", types.TierRakyat)

	_, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestCreatePaymentRejectsCancelled() {
	sub := s.createActiveSubscription("masjid_1", types.TierPro)
	_, err := s.subSvc.CancelSubscription(s.GetContext(), sub.ID, dto.CancelSubscriptionRequest{})
	s.Require().NoError(err)

	_, err = s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) callback(txnID, refno, status string) *toyyibpay.CallbackPayload {
	return &toyyibpay.CallbackPayload{
		RefNo:    refno,
		BillCode: "stub-bill-001",
		OrderID:  txnID,
		Status:   status,
		Amount:   "300.00",
	}
}

func (s *PaymentServiceSuite) TestCallbackSettlesCompletedPayment() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	resp, err := s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.Status)
	s.Equal("TP2506010001", resp.GatewayReference)
	s.NotNil(resp.PaidAt)

	earnings, err := s.adminSvc.GetEarnings(s.GetContext(), admin.ID)
	s.Require().NoError(err)
	s.True(earnings.Earnings.TotalEarnings.Equal(decimal.NewFromInt(150)))
	s.True(earnings.Earnings.PendingTransfers.Equal(decimal.NewFromInt(150)))
}

func (s *PaymentServiceSuite) TestDuplicateCallbackIsIdempotent() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	_, err = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)

	settled, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	periodEnd := *settled.CurrentPeriodEnd

	// The gateway retries the webhook
	resp, err := s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.Status)
	s.Equal(created.ID, resp.ID)

	// No double credit and no double renewal
	earnings, err := s.adminSvc.GetEarnings(s.GetContext(), admin.ID)
	s.Require().NoError(err)
	s.True(earnings.Earnings.TotalEarnings.Equal(decimal.NewFromInt(150)))

	after, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.True(after.CurrentPeriodEnd.Equal(periodEnd))
}

func (s *PaymentServiceSuite) TestConcurrentDuplicateCallbacksSettleOnce() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	before, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	periodEnd := *before.CurrentPeriodEnd

	// The gateway delivers the same webhook twice at once
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
		}(i)
	}
	wg.Wait()
	for _, err := range results {
		s.NoError(err)
	}

	after, err := s.service.GetPayment(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, after.Status)

	// Exactly one settlement credited the admin and renewed the period
	earnings, err := s.adminSvc.GetEarnings(s.GetContext(), admin.ID)
	s.Require().NoError(err)
	s.True(earnings.Earnings.TotalEarnings.Equal(decimal.NewFromInt(150)))

	renewed, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.True(renewed.CurrentPeriodEnd.Equal(periodEnd.AddDate(0, 1, 0)))
}

func (s *PaymentServiceSuite) TestSettleGuardRejectsStaleTerminalWrite() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	// A second delivery reads the row while it is still open
	stale, err := s.params.PaymentRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)

	_, err = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)

	// Its write must lose against the settled row
	now := s.GetClock().Now()
	stale.Status = types.PaymentStatusCompleted
	stale.GatewayReference = "TP2506010001"
	stale.PaidAt = &now
	err = s.params.PaymentRepo.UpdateIfSettleable(s.GetContext(), stale)
	s.Error(err)
	s.True(ierr.IsVersionConflict(err))
}

func (s *PaymentServiceSuite) TestFailedFanOutLeavesPaymentSettleable() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	// Wedge the renewal: the subscription row is gone when the callback lands
	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().SubscriptionRepo.InMemoryStore.Delete(s.GetContext(), sub.ID))

	_, err = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Error(err)

	// The row reopened instead of staying terminal with the renewal lost
	after, err := s.service.GetPayment(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusProcessing, after.Status)
	s.Nil(after.PaidAt)

	// Once the subscription is back, the gateway retry settles normally
	s.Require().NoError(s.GetStores().SubscriptionRepo.InMemoryStore.Create(s.GetContext(), stored.ID, stored))
	resp, err := s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.Status)

	earnings, err := s.adminSvc.GetEarnings(s.GetContext(), admin.ID)
	s.Require().NoError(err)
	s.True(earnings.Earnings.TotalEarnings.Equal(decimal.NewFromInt(150)))
}

func (s *PaymentServiceSuite) TestConflictingCallbackOnSettledPayment() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	_, err = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusPaid))
	s.Require().NoError(err)

	// The gateway later reports the same payment as failed
	_, err = s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010001", toyyibpay.BillStatusFailed))
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))

	after, err := s.service.GetPayment(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, after.Status)
}

func (s *PaymentServiceSuite) TestFailedCallbackStartsGracePeriod() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	payload := s.callback(created.ID, "TP2506010002", toyyibpay.BillStatusFailed)
	payload.Reason = "card declined"
	resp, err := s.service.HandleGatewayCallback(s.GetContext(), payload)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFailed, resp.Status)
	s.Equal("card declined", resp.FailureReason)
	s.NotNil(resp.FailedAt)

	after, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusGracePeriod, after.Status)
	s.Equal(1, after.FailedPaymentAttempts)
}

func (s *PaymentServiceSuite) TestPendingCallbackStampsReference() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	resp, err := s.service.HandleGatewayCallback(s.GetContext(), s.callback(created.ID, "TP2506010003", toyyibpay.BillStatusPending))
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusProcessing, resp.Status)
	s.Equal("TP2506010003", resp.GatewayReference)

	after, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, after.Status)
}

func (s *PaymentServiceSuite) TestCallbackRejectsBadSignature() {
	s.GetConfig().ToyyibPay.APIKey = "secret-key"
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	created, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		SubscriptionID: sub.ID,
		PaymentMethod:  types.PaymentMethodToyyibPay,
	})
	s.Require().NoError(err)

	payload := s.callback(created.ID, "TP2506010004", toyyibpay.BillStatusPaid)
	payload.Hash = "deadbeef"
	_, err = s.service.HandleGatewayCallback(s.GetContext(), payload)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	// A correctly signed retry settles
	mac := hmac.New(sha256.New, []byte("secret-key"))
	fmt.Fprintf(mac, "%s|%s|%s|%s", payload.RefNo, payload.BillCode, payload.Status, payload.Amount)
	payload.Hash = hex.EncodeToString(mac.Sum(nil))

	resp, err := s.service.HandleGatewayCallback(s.GetContext(), payload)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.Status)
}

func (s *PaymentServiceSuite) TestCallbackForUnknownTransaction() {
	_, err := s.service.HandleGatewayCallback(s.GetContext(), s.callback("txn_missing", "TP2506010005", toyyibpay.BillStatusPaid))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestManualPaymentSettlesLikeCallback() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)
	admin := s.createAssignedAdmin("masjid_1")

	resp, err := s.service.RecordManualPayment(s.GetContext(), dto.RecordManualPaymentRequest{
		SubscriptionID: sub.ID,
		Outcome:        types.GatewayOutcomeCompleted,
		Reference:      "BANK-TRANSFER-0099",
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.Status)
	s.Equal(types.PaymentMethodManual, resp.PaymentMethod)
	s.Equal("BANK-TRANSFER-0099", resp.GatewayReference)

	// Manual settlement credits the assigned admin the same way
	earnings, err := s.adminSvc.GetEarnings(s.GetContext(), admin.ID)
	s.Require().NoError(err)
	s.True(earnings.Earnings.TotalEarnings.Equal(decimal.NewFromInt(150)))

	// No gateway bill is issued for manual payments
	s.Empty(s.GetGateway().Calls())
}

func (s *PaymentServiceSuite) TestManualRefundLeavesSubscriptionAlone() {
	sub := s.createActiveSubscription("masjid_1", types.TierPremium)

	resp, err := s.service.RecordManualPayment(s.GetContext(), dto.RecordManualPaymentRequest{
		SubscriptionID: sub.ID,
		Outcome:        types.GatewayOutcomeRefunded,
		Reason:         "duplicate charge",
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusRefunded, resp.Status)

	after, err := s.subSvc.GetSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, after.Status)
}

func (s *PaymentServiceSuite) TestListPaymentsBySubscription() {
	sub := s.createActiveSubscription("masjid_1", types.TierPro)
	other := s.createActiveSubscription("masjid_2", types.TierPro)

	for _, id := range []string{sub.ID, other.ID} {
		_, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
			SubscriptionID: id,
			PaymentMethod:  types.PaymentMethodToyyibPay,
		})
		s.Require().NoError(err)
	}

	resp, err := s.service.ListPayments(s.GetContext(), dto.ListPaymentsRequest{
		SubscriptionIDs: []string{sub.ID},
	})
	s.Require().NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(sub.ID, resp.Items[0].SubscriptionID)
}
