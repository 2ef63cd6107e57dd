package service

import (
	"context"
	"fmt"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/payment"
	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// PaymentService owns the payment ledger: initiating gateway payments,
// settling callbacks idempotently, and fanning the outcome into the
// subscription lifecycle and local admin earnings.
type PaymentService interface {
	CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, req dto.ListPaymentsRequest) (*dto.ListPaymentsResponse, error)

	// HandleGatewayCallback settles a ToyyibPay webhook. Callbacks are
	// retried by the gateway, so processing is idempotent on the gateway
	// reference: a repeated callback returns the already-settled row
	// without crediting earnings or moving the subscription again.
	HandleGatewayCallback(ctx context.Context, payload *toyyibpay.CallbackPayload) (*dto.PaymentResponse, error)

	// RecordManualPayment settles an out-of-band payment (bank transfer,
	// operator adjustment) with the same side effects a gateway callback
	// would have.
	RecordManualPayment(ctx context.Context, req dto.RecordManualPaymentRequest) (*dto.PaymentResponse, error)
}

type paymentService struct {
	ServiceParams
	subSvc        SubscriptionService
	localAdminSvc LocalAdminService
}

// NewPaymentService creates a payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		subSvc:        NewSubscriptionService(params),
		localAdminSvc: NewLocalAdminService(params),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsBillable() {
		return nil, ierr.NewErrorf("subscription %s is %s and cannot accept payments", sub.ID, sub.Status).
			WithHint("Subscription is not billable").
			Mark(ierr.ErrInvalidOperation)
	}
	if !sub.Price.IsPositive() {
		return nil, ierr.NewError("free tier subscriptions have nothing to bill").
			WithHint("This subscription has no charge").
			Mark(ierr.ErrInvalidOperation)
	}

	def, err := s.Catalog.GetTier(sub.Tier)
	if err != nil {
		return nil, err
	}

	txn := req.ToPaymentTransaction(ctx)
	txn.MasjidID = sub.MasjidID
	txn.Amount = sub.Price
	txn.Currency = sub.Currency

	// Premium payments carry a split snapshot computed at initiation time,
	// so later tier changes never reshape an in-flight payment.
	if def.LocalAdminSharePercent.IsPositive() {
		split, err := payment.ComputeSplit(txn.Amount, def)
		if err != nil {
			return nil, err
		}
		if assignment, err := s.AssignmentRepo.GetByMasjid(ctx, sub.MasjidID); err == nil {
			split.LocalAdminID = assignment.LocalAdminID
		} else if !ierr.IsNotFound(err) {
			return nil, err
		}
		txn.SplitBilling = split
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	resp := &dto.PaymentResponse{PaymentTransaction: txn}
	if req.PaymentMethod == types.PaymentMethodToyyibPay {
		bill, err := s.createGatewayBill(ctx, sub, txn)
		if err != nil {
			return nil, err
		}
		txn.GatewayBillCode = bill.BillCode
		txn.Status = types.PaymentStatusProcessing
		txn.UpdatedAt = s.now()
		if err := s.PaymentRepo.Update(ctx, txn); err != nil {
			return nil, err
		}
		resp.PaymentURL = bill.PaymentURL
	}

	s.Logger.Infow("created payment",
		"payment_id", txn.ID,
		"subscription_id", txn.SubscriptionID,
		"amount", txn.Amount,
		"method", txn.PaymentMethod,
	)
	return resp, nil
}

func (s *paymentService) createGatewayBill(ctx context.Context, sub *subscription.Subscription, txn *payment.PaymentTransaction) (*toyyibpay.CreateBillResponse, error) {
	req := &toyyibpay.CreateBillRequest{
		BillName:        fmt.Sprintf("%s %s subscription", sub.Tier, sub.BillingCycle),
		BillDescription: fmt.Sprintf("Subscription payment for masjid %s", sub.MasjidID),
		Amount:          txn.Amount.StringFixed(2),
		ExternalRefNo:   txn.ID,
		CustomerName:    sub.BillingContactName,
		CustomerEmail:   sub.BillingEmail,
		CustomerPhone:   sub.BillingPhone,
	}
	if txn.SplitBilling != nil && txn.SplitBilling.LocalAdminID != "" {
		admin, err := s.LocalAdminRepo.Get(ctx, txn.SplitBilling.LocalAdminID)
		if err != nil {
			return nil, err
		}
		req.Split = &toyyibpay.SplitArgs{
			MasjidAdminEmail:  sub.BillingEmail,
			MasjidAdminAmount: txn.SplitBilling.MasjidAdminAmount.StringFixed(2),
			LocalAdminEmail:   admin.Email,
			LocalAdminAmount:  txn.SplitBilling.LocalAdminAmount.StringFixed(2),
		}
	}
	return s.Gateway.CreateBill(ctx, req)
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	txn, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{PaymentTransaction: txn}, nil
}

func (s *paymentService) ListPayments(ctx context.Context, req dto.ListPaymentsRequest) (*dto.ListPaymentsResponse, error) {
	txns, err := s.PaymentRepo.List(ctx, req.ToFilter())
	if err != nil {
		return nil, err
	}
	resp := &dto.ListPaymentsResponse{
		Items: make([]*dto.PaymentResponse, len(txns)),
		Total: len(txns),
	}
	for i, txn := range txns {
		resp.Items[i] = &dto.PaymentResponse{PaymentTransaction: txn}
	}
	return resp, nil
}

func (s *paymentService) HandleGatewayCallback(ctx context.Context, payload *toyyibpay.CallbackPayload) (*dto.PaymentResponse, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := payload.VerifySignature(s.Config.ToyyibPay.APIKey); err != nil {
		return nil, err
	}

	outcome, settled := payload.Outcome()

	// The gateway reference is the idempotency key: a reference we have
	// already settled short-circuits before any side effects.
	if existing, err := s.PaymentRepo.GetByGatewayReference(ctx, payload.RefNo); err == nil {
		if existing.Status.IsTerminal() {
			if settled {
				if err := s.terminalConflict(existing, outcome); err != nil {
					return nil, err
				}
			}
			s.Logger.Infow("duplicate gateway callback ignored",
				"payment_id", existing.ID,
				"refno", payload.RefNo,
			)
			return &dto.PaymentResponse{PaymentTransaction: existing}, nil
		}
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	txn, err := s.PaymentRepo.Get(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if txn.Status.IsTerminal() {
		if settled {
			if err := s.terminalConflict(txn, outcome); err != nil {
				return nil, err
			}
		}
		return &dto.PaymentResponse{PaymentTransaction: txn}, nil
	}

	txn.GatewayReference = payload.RefNo
	if txn.GatewayBillCode == "" {
		txn.GatewayBillCode = payload.BillCode
	}

	if !settled {
		// Pending callback: stamp the reference and wait for the next one.
		// The guard keeps a late pending delivery from reopening a row a
		// concurrent terminal callback has already settled.
		txn.Status = types.PaymentStatusProcessing
		txn.UpdatedAt = s.now()
		if err := s.PaymentRepo.UpdateIfSettleable(ctx, txn); err != nil {
			if ierr.IsVersionConflict(err) {
				return s.alreadySettled(ctx, txn.ID)
			}
			return nil, err
		}
		return &dto.PaymentResponse{PaymentTransaction: txn}, nil
	}

	return s.settle(ctx, txn, outcome, payload.Reason)
}

// terminalConflict rejects an outcome that disagrees with an already settled
// row. A true duplicate (same outcome) passes through idempotently.
func (s *paymentService) terminalConflict(txn *payment.PaymentTransaction, outcome types.GatewayOutcome) error {
	if outcome.ToPaymentStatus() == txn.Status {
		return nil
	}
	return ierr.NewErrorf("payment %s is already %s, callback reports %s", txn.ID, txn.Status, outcome).
		WithHint("Payment already settled with a different outcome").
		WithReportableDetails(map[string]any{
			"payment_id": txn.ID,
			"status":     txn.Status,
			"outcome":    outcome,
		}).
		Mark(ierr.ErrAlreadyExists)
}

func (s *paymentService) RecordManualPayment(ctx context.Context, req dto.RecordManualPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created, err := s.CreatePayment(ctx, dto.CreatePaymentRequest{
		SubscriptionID: req.SubscriptionID,
		PaymentMethod:  types.PaymentMethodManual,
	})
	if err != nil {
		return nil, err
	}

	txn := created.PaymentTransaction
	txn.GatewayReference = req.Reference
	return s.settle(ctx, txn, req.Outcome, req.Reason)
}

// settle applies a terminal outcome to the ledger row, then fans out: the
// subscription moves through its state machine, and a completed premium
// payment credits the assigned local admin exactly once. The terminal write
// is a status compare-and-swap, so of two concurrent deliveries only the
// winner fans out; the loser returns the already-settled row. A fan-out
// failure reopens the row so the gateway's next retry can settle it.
func (s *paymentService) settle(ctx context.Context, txn *payment.PaymentTransaction, outcome types.GatewayOutcome, reason string) (*dto.PaymentResponse, error) {
	now := s.now()
	txn.Status = outcome.ToPaymentStatus()
	txn.UpdatedAt = now

	switch outcome {
	case types.GatewayOutcomeCompleted:
		txn.PaidAt = &now
	case types.GatewayOutcomeFailed:
		txn.FailedAt = &now
		txn.FailureReason = reason
	}

	if err := s.PaymentRepo.UpdateIfSettleable(ctx, txn); err != nil {
		if ierr.IsVersionConflict(err) {
			settled, gerr := s.PaymentRepo.Get(ctx, txn.ID)
			if gerr != nil {
				return nil, gerr
			}
			if cerr := s.terminalConflict(settled, outcome); cerr != nil {
				return nil, cerr
			}
			s.Logger.Infow("concurrent callback already settled payment",
				"payment_id", txn.ID,
				"outcome", outcome,
			)
			return &dto.PaymentResponse{PaymentTransaction: settled}, nil
		}
		return nil, err
	}

	if _, err := s.subSvc.ApplyPaymentOutcome(ctx, txn.SubscriptionID, outcome); err != nil {
		s.reopen(ctx, txn)
		return nil, err
	}

	if txn.IsPremiumCompleted() && txn.SplitBilling.LocalAdminID != "" {
		if err := s.localAdminSvc.CreditEarnings(ctx, txn.SplitBilling.LocalAdminID, txn.SplitBilling.LocalAdminAmount, now); err != nil {
			s.reopen(ctx, txn)
			return nil, err
		}
	}

	s.Logger.Infow("settled payment",
		"payment_id", txn.ID,
		"subscription_id", txn.SubscriptionID,
		"outcome", outcome,
	)
	return &dto.PaymentResponse{PaymentTransaction: txn}, nil
}

// alreadySettled re-reads a row a concurrent delivery settled first and
// returns it as the idempotent response.
func (s *paymentService) alreadySettled(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	settled, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{PaymentTransaction: settled}, nil
}

// reopen reverts a terminal commit whose fan-out did not complete, putting
// the row back where a gateway retry can settle it again.
func (s *paymentService) reopen(ctx context.Context, txn *payment.PaymentTransaction) {
	txn.Status = types.PaymentStatusProcessing
	txn.PaidAt = nil
	txn.FailedAt = nil
	txn.FailureReason = ""
	txn.UpdatedAt = s.now()
	if err := s.PaymentRepo.Update(ctx, txn); err != nil {
		s.Logger.Errorw("failed to reopen payment after settlement error",
			"payment_id", txn.ID,
			"error", err,
		)
	}
}
