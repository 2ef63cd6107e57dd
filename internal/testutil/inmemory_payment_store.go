package testutil

import (
	"context"
	"sync"

	"github.com/masjid-suite/billing/internal/domain/payment"
	"github.com/samber/lo"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.PaymentTransaction]

	// mu serializes UpdateIfSettleable so the status compare-and-swap is atomic
	mu sync.Mutex
}

// NewInMemoryPaymentStore creates a new in-memory payment ledger store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.PaymentTransaction](),
	}
}

func copyPaymentTransaction(txn *payment.PaymentTransaction) *payment.PaymentTransaction {
	if txn == nil {
		return nil
	}
	copied := *txn
	if txn.SplitBilling != nil {
		split := *txn.SplitBilling
		copied.SplitBilling = &split
	}
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, txn *payment.PaymentTransaction) error {
	if txn == nil {
		return ierr.NewError("payment transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if txn.GatewayReference != "" {
		dup, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *payment.PaymentTransaction, _ interface{}) bool {
			return item.GatewayReference == txn.GatewayReference
		}, nil)
		if len(dup) > 0 {
			return ierr.NewError("gateway reference already recorded").
				WithReportableDetails(map[string]interface{}{
					"gateway_reference": txn.GatewayReference,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	if err := s.InMemoryStore.Create(ctx, txn.ID, copyPaymentTransaction(txn)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create payment transaction").
			WithReportableDetails(map[string]interface{}{
				"id": txn.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.PaymentTransaction, error) {
	txn, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payment transaction not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPaymentTransaction(txn), nil
}

func (s *InMemoryPaymentStore) GetByGatewayReference(ctx context.Context, ref string) (*payment.PaymentTransaction, error) {
	if ref == "" {
		return nil, ierr.NewError("gateway reference cannot be empty").
			Mark(ierr.ErrValidation)
	}

	txns, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *payment.PaymentTransaction, _ interface{}) bool {
		return item.GatewayReference == ref
	}, nil)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if len(txns) == 0 {
		return nil, ierr.NewError("payment transaction not found").
			WithReportableDetails(map[string]interface{}{
				"gateway_reference": ref,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPaymentTransaction(txns[0]), nil
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, txn *payment.PaymentTransaction) error {
	if txn == nil {
		return ierr.NewError("payment transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if err := s.InMemoryStore.Update(ctx, txn.ID, copyPaymentTransaction(txn)); err != nil {
		return ierr.NewError("payment transaction not found").
			WithReportableDetails(map[string]interface{}{
				"id": txn.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPaymentStore) UpdateIfSettleable(ctx context.Context, txn *payment.PaymentTransaction) error {
	if txn == nil {
		return ierr.NewError("payment transaction cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, txn.ID)
	if err != nil {
		return ierr.NewError("payment transaction not found").
			WithReportableDetails(map[string]interface{}{
				"id": txn.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if stored.Status.IsTerminal() {
		return ierr.NewError("payment was settled concurrently").
			WithHint("Payment was already settled").
			WithReportableDetails(map[string]interface{}{
				"id": txn.ID,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	if err := s.InMemoryStore.Update(ctx, txn.ID, copyPaymentTransaction(txn)); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *payment.Filter) ([]*payment.PaymentTransaction, error) {
	txns, err := s.InMemoryStore.List(ctx, filter, paymentFilterFn, paymentSortFn)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}

	offset := filter.GetOffset()
	if offset >= len(txns) {
		return []*payment.PaymentTransaction{}, nil
	}
	txns = txns[offset:]
	if limit := filter.GetLimit(); len(txns) > limit {
		txns = txns[:limit]
	}

	out := make([]*payment.PaymentTransaction, len(txns))
	for i, txn := range txns {
		out[i] = copyPaymentTransaction(txn)
	}
	return out, nil
}

func paymentFilterFn(_ context.Context, txn *payment.PaymentTransaction, filter interface{}) bool {
	if txn == nil {
		return false
	}
	f, ok := filter.(*payment.Filter)
	if !ok || f == nil {
		return true
	}
	if len(f.SubscriptionIDs) > 0 && !lo.Contains(f.SubscriptionIDs, txn.SubscriptionID) {
		return false
	}
	if len(f.MasjidIDs) > 0 && !lo.Contains(f.MasjidIDs, txn.MasjidID) {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, txn.Status) {
		return false
	}
	if f.CreatedAfter != nil && txn.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && txn.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func paymentSortFn(i, j *payment.PaymentTransaction) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

// Clear clears the payment ledger store
func (s *InMemoryPaymentStore) Clear() {
	s.InMemoryStore.Clear()
}
