package localadmin

import (
	"context"

	"github.com/masjid-suite/billing/internal/types"
)

// Repository defines the persistence contract for local admins. Update
// performs an optimistic compare-and-swap on the Version field, mirroring
// the subscription repository, so concurrent earnings credits for the same
// admin serialize.
type Repository interface {
	Create(ctx context.Context, admin *LocalAdmin) error
	Get(ctx context.Context, id string) (*LocalAdmin, error)
	Update(ctx context.Context, admin *LocalAdmin) error
	List(ctx context.Context, filter *Filter) ([]*LocalAdmin, error)
}

// AssignmentRepository defines the persistence contract for masjid-to-admin
// assignments.
//
// CreateIfUnderCapacity is the single write path for new assignments: it
// must check the admin's active assignment count and insert the row in one
// atomic step (transaction with a re-check at commit, or equivalent), so two
// concurrent assignments cannot both pass a stale capacity read. It fails
// with ErrCapacityExceeded when the admin is full and ErrAlreadyExists when
// the masjid already holds an active assignment.
type AssignmentRepository interface {
	CreateIfUnderCapacity(ctx context.Context, assignment *Assignment, maxCapacity int) error

	// GetByMasjid returns the masjid's active assignment
	GetByMasjid(ctx context.Context, masjidID string) (*Assignment, error)

	// DeleteByMasjid removes the masjid's active assignment and returns
	// it. Returns ErrNotFound when none exists; callers treat that as a
	// no-op for idempotent unassignment.
	DeleteByMasjid(ctx context.Context, masjidID string) (*Assignment, error)

	// CountByLocalAdmin returns the admin's active assignment count
	CountByLocalAdmin(ctx context.Context, localAdminID string) (int, error)

	// ListByLocalAdmin returns the admin's active assignments
	ListByLocalAdmin(ctx context.Context, localAdminID string) ([]*Assignment, error)
}

// Filter defines query parameters for listing local admins
type Filter struct {
	QueryFilter *types.QueryFilter

	AvailabilityStatuses []types.AvailabilityStatus
	UserIDs              []string
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
