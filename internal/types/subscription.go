package types

// SubscriptionStatus is the subscription state machine state
type SubscriptionStatus string

const (
	SubscriptionStatusTrial       SubscriptionStatus = "trial"
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusSoftLocked  SubscriptionStatus = "soft_locked"
	SubscriptionStatusCancelled   SubscriptionStatus = "cancelled"
)

// subscriptionTransitions enumerates the legal state machine edges.
// cancelled is terminal and has no outgoing edges.
var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusTrial:       {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusActive:      {SubscriptionStatusGracePeriod, SubscriptionStatusCancelled},
	SubscriptionStatusGracePeriod: {SubscriptionStatusActive, SubscriptionStatusSoftLocked, SubscriptionStatusCancelled},
	SubscriptionStatusSoftLocked:  {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusCancelled:   {},
}

// CanTransitionTo reports whether the edge from s to target is legal
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges
func (s SubscriptionStatus) IsTerminal() bool {
	return len(subscriptionTransitions[s]) == 0
}

// Validate rejects unknown statuses
func (s SubscriptionStatus) Validate() bool {
	_, ok := subscriptionTransitions[s]
	return ok
}

// Soft-lock and cancellation reason codes set by the sweep and by explicit
// transitions.
const (
	LockReasonGraceExpired    = "grace_period_expired"
	LockReasonManual          = "manual_lock"
	CancelReasonTrialExpired  = "trial_expired"
	CancelReasonUserRequested = "user_requested"
)
