package subscription

import (
	"context"
	"time"

	"github.com/masjid-suite/billing/internal/types"
)

// Repository defines the persistence contract for subscriptions.
//
// Update performs an optimistic compare-and-swap on the Version field: the
// write only succeeds when the stored version equals the version the caller
// read, and the stored version is incremented atomically. Stale writes fail
// with ErrVersionConflict so concurrent transitions for the same masjid
// serialize instead of interleaving.
type Repository interface {
	// Create persists a new subscription. Fails with ErrAlreadyExists when
	// the masjid already holds a non-cancelled subscription.
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by its ID
	Get(ctx context.Context, id string) (*Subscription, error)

	// GetByMasjid retrieves the masjid's most recent subscription,
	// including cancelled rows (they are retained for audit).
	GetByMasjid(ctx context.Context, masjidID string) (*Subscription, error)

	// Update persists the subscription with a version CAS
	Update(ctx context.Context, sub *Subscription) error

	// List retrieves subscriptions matching the filter
	List(ctx context.Context, filter *Filter) ([]*Subscription, error)

	// ListDueForTransition returns subscriptions whose timed transition is
	// due at the given instant: trials past their trial end and grace
	// periods past their grace end. Used by the scheduled sweep.
	ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
}

// Filter defines query parameters for listing subscriptions
type Filter struct {
	QueryFilter *types.QueryFilter

	MasjidIDs []string
	Tiers     []types.TierID
	Statuses  []types.SubscriptionStatus
}

// GetLimit implements the base filter contract
func (f *Filter) GetLimit() int {
	if f == nil {
		return (&types.QueryFilter{}).GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements the base filter contract
func (f *Filter) GetOffset() int {
	if f == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}
