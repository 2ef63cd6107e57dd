package service

import (
	"context"
	"time"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// SubscriptionService drives the subscription lifecycle: creation, the
// explicit state machine transitions, and the timed sweep that expires
// trials and grace periods.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	GetSubscriptionByMasjid(ctx context.Context, masjidID string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, req dto.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error)
	TransitionSubscription(ctx context.Context, id string, req dto.TransitionSubscriptionRequest) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, id string, req dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)

	// ApplyPaymentOutcome moves the subscription in response to a settled
	// payment: completed payments activate and renew, failed payments start
	// or extend the grace period. Called by the payment service.
	ApplyPaymentOutcome(ctx context.Context, subscriptionID string, outcome types.GatewayOutcome) (*subscription.Subscription, error)

	// ProcessDueTransitions runs one sweep pass: expired trials cancel,
	// expired grace periods soft-lock. Returns the number of subscriptions
	// moved.
	ProcessDueTransitions(ctx context.Context) (int, error)
}

type subscriptionService struct {
	ServiceParams
}

// NewSubscriptionService creates a subscription service
func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

const subscriptionCacheKeyPrefix = "subscription:masjid:"

func (s *subscriptionService) invalidateCache(ctx context.Context, masjidID string) {
	if s.Cache != nil {
		s.Cache.Delete(ctx, subscriptionCacheKeyPrefix+masjidID)
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	def, err := s.Catalog.GetTier(req.Tier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := req.ToSubscription(ctx)
	sub.Price = def.PriceFor(req.BillingCycle)
	sub.Currency = def.Currency

	if def.IsFree() {
		// Free tiers have nothing to trial; they activate immediately
		sub.Status = types.SubscriptionStatusActive
		sub.StartPeriod(now)
	} else {
		sub.Status = types.SubscriptionStatusTrial
		trialEnd := now.Add(s.Config.Billing.TrialDuration())
		sub.TrialStart = &now
		sub.TrialEnd = &trialEnd
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, sub.MasjidID)

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"masjid_id", sub.MasjidID,
		"tier", sub.Tier,
		"status", sub.Status,
	)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) GetSubscriptionByMasjid(ctx context.Context, masjidID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetByMasjid(ctx, masjidID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, req dto.ListSubscriptionsRequest) (*dto.ListSubscriptionsResponse, error) {
	subs, err := s.SubRepo.List(ctx, req.ToFilter())
	if err != nil {
		return nil, err
	}
	resp := &dto.ListSubscriptionsResponse{
		Items: make([]*dto.SubscriptionResponse, len(subs)),
		Total: len(subs),
	}
	for i, sub := range subs {
		resp.Items[i] = &dto.SubscriptionResponse{Subscription: sub}
	}
	return resp, nil
}

func (s *subscriptionService) TransitionSubscription(ctx context.Context, id string, req dto.TransitionSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.transitionWithRetry(ctx, id, func(sub *subscription.Subscription, now time.Time) error {
		return s.applyTransition(sub, req.Status, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id string, req dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = types.CancelReasonUserRequested
	}
	sub, err := s.transitionWithRetry(ctx, id, func(sub *subscription.Subscription, now time.Time) error {
		return s.applyTransition(sub, types.SubscriptionStatusCancelled, reason, now)
	})
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// transitionWithRetry runs a read-mutate-write cycle under the version CAS,
// refetching and retrying on conflict.
func (s *subscriptionService) transitionWithRetry(ctx context.Context, id string, mutate func(*subscription.Subscription, time.Time) error) (*subscription.Subscription, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		sub, err := s.SubRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if err := mutate(sub, now); err != nil {
			return nil, err
		}
		sub.UpdatedAt = now
		sub.UpdatedBy = types.GetUserID(ctx)

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			if ierr.IsVersionConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.invalidateCache(ctx, sub.MasjidID)
		return sub, nil
	}
	return nil, lastErr
}

// applyTransition validates the state machine edge and applies the status
// change with its side effects.
func (s *subscriptionService) applyTransition(sub *subscription.Subscription, target types.SubscriptionStatus, reason string, now time.Time) error {
	if sub.Status == target {
		return ierr.NewErrorf("subscription is already %s", target).
			WithHint("Subscription is already in the requested state").
			Mark(ierr.ErrInvalidTransition)
	}
	if !sub.Status.CanTransitionTo(target) {
		return ierr.NewErrorf("cannot transition subscription from %s to %s", sub.Status, target).
			WithHint("The requested state change is not allowed").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"from":            sub.Status,
				"to":              target,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	from := sub.Status
	sub.Status = target

	switch target {
	case types.SubscriptionStatusActive:
		sub.ClearGracePeriod()
		sub.ClearSoftLock()
		if from == types.SubscriptionStatusTrial {
			sub.StartPeriod(now)
		} else {
			sub.RenewPeriod(now)
		}
	case types.SubscriptionStatusGracePeriod:
		graceEnd := now.Add(s.Config.Billing.GraceDuration())
		sub.GracePeriodStart = &now
		sub.GracePeriodEnd = &graceEnd
	case types.SubscriptionStatusSoftLocked:
		sub.SoftLockedAt = &now
		if reason == "" {
			reason = types.LockReasonManual
		}
		sub.SoftLockReason = reason
	case types.SubscriptionStatusCancelled:
		sub.CancelledAt = &now
		sub.CancellationReason = reason
	}

	s.Logger.Infow("subscription transition",
		"subscription_id", sub.ID,
		"masjid_id", sub.MasjidID,
		"from", from,
		"to", target,
		"reason", reason,
	)
	return nil
}

func (s *subscriptionService) ApplyPaymentOutcome(ctx context.Context, subscriptionID string, outcome types.GatewayOutcome) (*subscription.Subscription, error) {
	return s.transitionWithRetry(ctx, subscriptionID, func(sub *subscription.Subscription, now time.Time) error {
		switch outcome {
		case types.GatewayOutcomeCompleted:
			return s.applyCompletedPayment(sub, now)
		case types.GatewayOutcomeFailed:
			return s.applyFailedPayment(sub, now)
		case types.GatewayOutcomeRefunded:
			// Refunds adjust the ledger only; the subscription keeps its
			// state until an operator intervenes.
			return nil
		default:
			return ierr.NewErrorf("unknown payment outcome %q", outcome).
				Mark(ierr.ErrValidation)
		}
	})
}

func (s *subscriptionService) applyCompletedPayment(sub *subscription.Subscription, now time.Time) error {
	switch sub.Status {
	case types.SubscriptionStatusActive:
		// Renewal payment on an already-active subscription
		sub.RenewPeriod(now)
		return nil
	case types.SubscriptionStatusTrial:
		sub.Status = types.SubscriptionStatusActive
		sub.TrialEnd = &now
		sub.StartPeriod(now)
		return nil
	case types.SubscriptionStatusGracePeriod:
		sub.Status = types.SubscriptionStatusActive
		sub.ClearGracePeriod()
		sub.RenewPeriod(now)
		return nil
	case types.SubscriptionStatusSoftLocked:
		sub.Status = types.SubscriptionStatusActive
		sub.ClearGracePeriod()
		sub.ClearSoftLock()
		sub.RenewPeriod(now)
		return nil
	default:
		return ierr.NewErrorf("subscription %s cannot accept payments while %s", sub.ID, sub.Status).
			WithHint("Subscription is not billable").
			Mark(ierr.ErrInvalidOperation)
	}
}

func (s *subscriptionService) applyFailedPayment(sub *subscription.Subscription, now time.Time) error {
	sub.FailedPaymentAttempts++
	sub.LastFailedAt = &now

	switch sub.Status {
	case types.SubscriptionStatusActive:
		sub.Status = types.SubscriptionStatusGracePeriod
		graceEnd := now.Add(s.Config.Billing.GraceDuration())
		sub.GracePeriodStart = &now
		sub.GracePeriodEnd = &graceEnd
	case types.SubscriptionStatusTrial, types.SubscriptionStatusGracePeriod, types.SubscriptionStatusSoftLocked:
		// Trial keeps running until it expires; grace and soft-lock just
		// record the attempt.
	default:
		return ierr.NewErrorf("subscription %s cannot record payment failures while %s", sub.ID, sub.Status).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (s *subscriptionService) ProcessDueTransitions(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.SubRepo.ListDueForTransition(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, candidate := range due {
		var transitionErr error
		switch candidate.Status {
		case types.SubscriptionStatusTrial:
			_, transitionErr = s.transitionWithRetry(ctx, candidate.ID, func(sub *subscription.Subscription, now time.Time) error {
				if sub.Status != types.SubscriptionStatusTrial || sub.TrialEnd == nil || sub.TrialEnd.After(now) {
					// Raced with a payment or another sweep; nothing to do
					return errSweepSkip
				}
				return s.applyTransition(sub, types.SubscriptionStatusCancelled, types.CancelReasonTrialExpired, now)
			})
		case types.SubscriptionStatusGracePeriod:
			_, transitionErr = s.transitionWithRetry(ctx, candidate.ID, func(sub *subscription.Subscription, now time.Time) error {
				if sub.Status != types.SubscriptionStatusGracePeriod || sub.GracePeriodEnd == nil || sub.GracePeriodEnd.After(now) {
					return errSweepSkip
				}
				return s.applyTransition(sub, types.SubscriptionStatusSoftLocked, types.LockReasonGraceExpired, now)
			})
		default:
			continue
		}

		if transitionErr != nil {
			if isSweepSkip(transitionErr) {
				continue
			}
			s.Logger.Errorw("sweep transition failed",
				"subscription_id", candidate.ID,
				"status", candidate.Status,
				"error", transitionErr,
			)
			continue
		}
		moved++
	}
	return moved, nil
}

// errSweepSkip signals that a sweep candidate no longer needs its transition
var errSweepSkip = ierr.NewError("sweep candidate no longer due").Mark(ierr.ErrInvalidOperation)

func isSweepSkip(err error) bool {
	return err == errSweepSkip
}
