package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/masjid-suite/billing/internal/domain/localadmin"
	"github.com/samber/lo"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// InMemoryLocalAdminStore implements localadmin.Repository
type InMemoryLocalAdminStore struct {
	*InMemoryStore[*localadmin.LocalAdmin]

	// mu serializes Update so the version compare-and-swap is atomic
	mu sync.Mutex
}

// NewInMemoryLocalAdminStore creates a new in-memory local admin store
func NewInMemoryLocalAdminStore() *InMemoryLocalAdminStore {
	return &InMemoryLocalAdminStore{
		InMemoryStore: NewInMemoryStore[*localadmin.LocalAdmin](),
	}
}

func copyLocalAdmin(a *localadmin.LocalAdmin) *localadmin.LocalAdmin {
	if a == nil {
		return nil
	}
	copied := *a
	copied.Earnings.MonthlyBreakdown = append(
		[]localadmin.MonthlyEarning(nil), a.Earnings.MonthlyBreakdown...)
	return &copied
}

func (s *InMemoryLocalAdminStore) Create(ctx context.Context, admin *localadmin.LocalAdmin) error {
	if admin == nil {
		return ierr.NewError("local admin cannot be nil").
			Mark(ierr.ErrValidation)
	}

	dup, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *localadmin.LocalAdmin, _ interface{}) bool {
		return item.UserID == admin.UserID
	}, nil)
	if len(dup) > 0 {
		return ierr.NewError("local admin already exists for user").
			WithReportableDetails(map[string]interface{}{
				"user_id": admin.UserID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.InMemoryStore.Create(ctx, admin.ID, copyLocalAdmin(admin)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create local admin").
			WithReportableDetails(map[string]interface{}{
				"id": admin.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryLocalAdminStore) Get(ctx context.Context, id string) (*localadmin.LocalAdmin, error) {
	admin, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("local admin not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyLocalAdmin(admin), nil
}

func (s *InMemoryLocalAdminStore) Update(ctx context.Context, admin *localadmin.LocalAdmin) error {
	if admin == nil {
		return ierr.NewError("local admin cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, admin.ID)
	if err != nil {
		return ierr.NewError("local admin not found").
			WithReportableDetails(map[string]interface{}{
				"id": admin.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if stored.Version != admin.Version {
		return ierr.NewError("local admin was modified concurrently").
			WithHint("The local admin record changed while processing, please retry").
			WithReportableDetails(map[string]interface{}{
				"id":      admin.ID,
				"version": admin.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	next := copyLocalAdmin(admin)
	next.Version = admin.Version + 1
	if err := s.InMemoryStore.Update(ctx, admin.ID, next); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	admin.Version = next.Version
	return nil
}

func (s *InMemoryLocalAdminStore) List(ctx context.Context, filter *localadmin.Filter) ([]*localadmin.LocalAdmin, error) {
	admins, err := s.InMemoryStore.List(ctx, filter, localAdminFilterFn, localAdminSortFn)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}

	offset := filter.GetOffset()
	if offset >= len(admins) {
		return []*localadmin.LocalAdmin{}, nil
	}
	admins = admins[offset:]
	if limit := filter.GetLimit(); len(admins) > limit {
		admins = admins[:limit]
	}

	out := make([]*localadmin.LocalAdmin, len(admins))
	for i, admin := range admins {
		out[i] = copyLocalAdmin(admin)
	}
	return out, nil
}

func localAdminFilterFn(_ context.Context, admin *localadmin.LocalAdmin, filter interface{}) bool {
	if admin == nil {
		return false
	}
	f, ok := filter.(*localadmin.Filter)
	if !ok || f == nil {
		return true
	}
	if len(f.AvailabilityStatuses) > 0 && !lo.Contains(f.AvailabilityStatuses, admin.AvailabilityStatus) {
		return false
	}
	if len(f.UserIDs) > 0 && !lo.Contains(f.UserIDs, admin.UserID) {
		return false
	}
	return true
}

func localAdminSortFn(i, j *localadmin.LocalAdmin) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

// Clear clears the local admin store
func (s *InMemoryLocalAdminStore) Clear() {
	s.InMemoryStore.Clear()
}

// InMemoryAssignmentStore implements localadmin.AssignmentRepository. All
// writes share one mutex so the capacity check and the insert are a single
// atomic step, matching the transactional postgres implementation.
type InMemoryAssignmentStore struct {
	mu          sync.Mutex
	assignments map[string]*localadmin.Assignment // keyed by masjid ID
}

// NewInMemoryAssignmentStore creates a new in-memory assignment store
func NewInMemoryAssignmentStore() *InMemoryAssignmentStore {
	return &InMemoryAssignmentStore{
		assignments: make(map[string]*localadmin.Assignment),
	}
}

func copyAssignment(a *localadmin.Assignment) *localadmin.Assignment {
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}

func (s *InMemoryAssignmentStore) CreateIfUnderCapacity(ctx context.Context, assignment *localadmin.Assignment, maxCapacity int) error {
	if assignment == nil {
		return ierr.NewError("assignment cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[assignment.MasjidID]; ok {
		return ierr.NewError("masjid already has an assigned local admin").
			WithReportableDetails(map[string]interface{}{
				"masjid_id": assignment.MasjidID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	count := 0
	for _, a := range s.assignments {
		if a.LocalAdminID == assignment.LocalAdminID {
			count++
		}
	}
	if count >= maxCapacity {
		return ierr.NewError("local admin is at capacity").
			WithHint("No local admin currently available").
			WithReportableDetails(map[string]interface{}{
				"local_admin_id": assignment.LocalAdminID,
			}).
			Mark(ierr.ErrCapacityExceeded)
	}

	s.assignments[assignment.MasjidID] = copyAssignment(assignment)
	return nil
}

func (s *InMemoryAssignmentStore) GetByMasjid(ctx context.Context, masjidID string) (*localadmin.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[masjidID]
	if !ok {
		return nil, ierr.NewError("no assignment for masjid").
			WithReportableDetails(map[string]interface{}{
				"masjid_id": masjidID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *InMemoryAssignmentStore) DeleteByMasjid(ctx context.Context, masjidID string) (*localadmin.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[masjidID]
	if !ok {
		return nil, ierr.NewError("no assignment for masjid").
			WithReportableDetails(map[string]interface{}{
				"masjid_id": masjidID,
			}).
			Mark(ierr.ErrNotFound)
	}
	delete(s.assignments, masjidID)
	return copyAssignment(a), nil
}

func (s *InMemoryAssignmentStore) CountByLocalAdmin(ctx context.Context, localAdminID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range s.assignments {
		if a.LocalAdminID == localAdminID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryAssignmentStore) ListByLocalAdmin(ctx context.Context, localAdminID string) ([]*localadmin.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*localadmin.Assignment, 0)
	for _, a := range s.assignments {
		if a.LocalAdminID == localAdminID {
			out = append(out, copyAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	return out, nil
}

// Clear clears the assignment store
func (s *InMemoryAssignmentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = make(map[string]*localadmin.Assignment)
}
