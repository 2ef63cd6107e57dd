package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/samber/lo"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	// mu serializes Update so the version compare-and-swap is atomic
	mu sync.Mutex
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	existing, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *subscription.Subscription, _ interface{}) bool {
		return item.MasjidID == sub.MasjidID && item.Status != types.SubscriptionStatusCancelled
	}, nil)
	if len(existing) > 0 {
		return ierr.NewError("masjid already has an active subscription").
			WithReportableDetails(map[string]interface{}{
				"masjid_id": sub.MasjidID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"id": sub.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByMasjid(ctx context.Context, masjidID string) (*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *subscription.Subscription, _ interface{}) bool {
		return item.MasjidID == masjidID
	}, subscriptionSortFn)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found for masjid").
			WithReportableDetails(map[string]interface{}{
				"masjid_id": masjidID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(subs[0]), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, sub.ID)
	if err != nil {
		return ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{
				"id": sub.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if stored.Version != sub.Version {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription changed while processing, please retry").
			WithReportableDetails(map[string]interface{}{
				"id":      sub.ID,
				"version": sub.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	next := copySubscription(sub)
	next.Version = sub.Version + 1
	if err := s.InMemoryStore.Update(ctx, sub.ID, next); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	sub.Version = next.Version
	return nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, filter, subscriptionFilterFn, subscriptionSortFn)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}

	offset := filter.GetOffset()
	if offset >= len(subs) {
		return []*subscription.Subscription{}, nil
	}
	subs = subs[offset:]
	if limit := filter.GetLimit(); len(subs) > limit {
		subs = subs[:limit]
	}

	out := make([]*subscription.Subscription, len(subs))
	for i, sub := range subs {
		out[i] = copySubscription(sub)
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *subscription.Subscription, _ interface{}) bool {
		switch item.Status {
		case types.SubscriptionStatusTrial:
			return item.TrialEnd != nil && !item.TrialEnd.After(now)
		case types.SubscriptionStatusGracePeriod:
			return item.GracePeriodEnd != nil && !item.GracePeriodEnd.After(now)
		default:
			return false
		}
	}, subscriptionSortFn)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}

	if limit <= 0 {
		limit = 100
	}
	if len(subs) > limit {
		subs = subs[:limit]
	}
	out := make([]*subscription.Subscription, len(subs))
	for i, sub := range subs {
		out[i] = copySubscription(sub)
	}
	return out, nil
}

func subscriptionFilterFn(_ context.Context, sub *subscription.Subscription, filter interface{}) bool {
	if sub == nil {
		return false
	}
	f, ok := filter.(*subscription.Filter)
	if !ok || f == nil {
		return true
	}
	if len(f.MasjidIDs) > 0 && !lo.Contains(f.MasjidIDs, sub.MasjidID) {
		return false
	}
	if len(f.Tiers) > 0 && !lo.Contains(f.Tiers, sub.Tier) {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, sub.Status) {
		return false
	}
	return true
}

func subscriptionSortFn(i, j *subscription.Subscription) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

// Clear clears the subscription store
func (s *InMemorySubscriptionStore) Clear() {
	s.InMemoryStore.Clear()
}
