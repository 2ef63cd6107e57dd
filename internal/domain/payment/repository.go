package payment

import (
	"context"
	"time"

	"github.com/masjid-suite/billing/internal/types"
)

// Repository defines the persistence contract for the payment ledger.
// Rows are never deleted; Update is only legal for pending/processing rows
// (the service guards this, the repository only persists).
type Repository interface {
	// Create appends a new ledger row
	Create(ctx context.Context, txn *PaymentTransaction) error

	// Get retrieves a transaction by its ID
	Get(ctx context.Context, id string) (*PaymentTransaction, error)

	// GetByGatewayReference retrieves a transaction by the gateway's
	// payment reference, the idempotency key for callbacks.
	GetByGatewayReference(ctx context.Context, ref string) (*PaymentTransaction, error)

	// Update persists changes to a ledger row
	Update(ctx context.Context, txn *PaymentTransaction) error

	// UpdateIfSettleable persists the row only while the stored status is
	// still pending or processing. When the row is already terminal it
	// returns ErrVersionConflict so concurrent callback deliveries settle
	// a payment exactly once.
	UpdateIfSettleable(ctx context.Context, txn *PaymentTransaction) error

	// List retrieves transactions matching the filter, newest first
	List(ctx context.Context, filter *Filter) ([]*PaymentTransaction, error)
}

// Filter defines query parameters for listing ledger rows
type Filter struct {
	QueryFilter *types.QueryFilter

	SubscriptionIDs []string
	MasjidIDs       []string
	Statuses        []types.PaymentStatus

	CreatedAfter  *time.Time
	CreatedBefore *time.Time
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
