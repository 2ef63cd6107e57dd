package service

import (
	"context"
	"time"

	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/domain/localadmin"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// LocalAdminService manages the shared support-staff pool: capacity-checked
// assignment of admins to premium masjids and the earnings summaries fed by
// split billing.
type LocalAdminService interface {
	CreateLocalAdmin(ctx context.Context, req dto.CreateLocalAdminRequest) (*dto.LocalAdminResponse, error)
	GetLocalAdmin(ctx context.Context, id string) (*dto.LocalAdminResponse, error)
	ListLocalAdmins(ctx context.Context, req dto.ListLocalAdminsRequest) (*dto.ListLocalAdminsResponse, error)
	UpdateAvailability(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*dto.LocalAdminResponse, error)

	// AssignLocalAdmin links a premium masjid to an admin. Only premium
	// subscriptions in active or grace_period qualify; the capacity check
	// and the insert are one atomic step.
	AssignLocalAdmin(ctx context.Context, req dto.AssignLocalAdminRequest) (*dto.AssignmentResponse, error)

	// UnassignLocalAdmin removes the masjid's assignment. Unassigning a
	// masjid without one is a no-op.
	UnassignLocalAdmin(ctx context.Context, masjidID string) error

	GetAssignment(ctx context.Context, masjidID string) (*dto.AssignmentResponse, error)

	// CreditEarnings adds a split-billing amount to the admin's earnings
	// summary under the version CAS.
	CreditEarnings(ctx context.Context, localAdminID string, amount decimal.Decimal, paidAt time.Time) error

	GetEarnings(ctx context.Context, localAdminID string) (*dto.EarningsResponse, error)
}

type localAdminService struct {
	ServiceParams
}

// NewLocalAdminService creates a local admin service
func NewLocalAdminService(params ServiceParams) LocalAdminService {
	return &localAdminService{ServiceParams: params}
}

func (s *localAdminService) CreateLocalAdmin(ctx context.Context, req dto.CreateLocalAdminRequest) (*dto.LocalAdminResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	admin := req.ToLocalAdmin(ctx)
	if err := admin.Validate(); err != nil {
		return nil, err
	}
	if err := s.LocalAdminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.Logger.Infow("created local admin",
		"local_admin_id", admin.ID,
		"user_id", admin.UserID,
		"max_capacity", admin.MaxCapacity,
	)
	return &dto.LocalAdminResponse{LocalAdmin: admin}, nil
}

func (s *localAdminService) GetLocalAdmin(ctx context.Context, id string) (*dto.LocalAdminResponse, error) {
	admin, err := s.LocalAdminRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	admin.Earnings.RefreshCurrentMonth(s.now())
	count, err := s.AssignmentRepo.CountByLocalAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.LocalAdminResponse{LocalAdmin: admin, ActiveAssignments: count}, nil
}

func (s *localAdminService) ListLocalAdmins(ctx context.Context, req dto.ListLocalAdminsRequest) (*dto.ListLocalAdminsResponse, error) {
	admins, err := s.LocalAdminRepo.List(ctx, req.ToFilter())
	if err != nil {
		return nil, err
	}
	resp := &dto.ListLocalAdminsResponse{
		Items: make([]*dto.LocalAdminResponse, len(admins)),
		Total: len(admins),
	}
	for i, admin := range admins {
		admin.Earnings.RefreshCurrentMonth(s.now())
		count, err := s.AssignmentRepo.CountByLocalAdmin(ctx, admin.ID)
		if err != nil {
			return nil, err
		}
		resp.Items[i] = &dto.LocalAdminResponse{LocalAdmin: admin, ActiveAssignments: count}
	}
	return resp, nil
}

func (s *localAdminService) UpdateAvailability(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*dto.LocalAdminResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	admin, err := s.updateWithRetry(ctx, id, func(admin *localadmin.LocalAdmin) error {
		admin.AvailabilityStatus = req.AvailabilityStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	admin.Earnings.RefreshCurrentMonth(s.now())
	count, err := s.AssignmentRepo.CountByLocalAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.LocalAdminResponse{LocalAdmin: admin, ActiveAssignments: count}, nil
}

func (s *localAdminService) AssignLocalAdmin(ctx context.Context, req dto.AssignLocalAdminRequest) (*dto.AssignmentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetByMasjid(ctx, req.MasjidID)
	if err != nil {
		return nil, err
	}
	def, err := s.Catalog.GetTier(sub.Tier)
	if err != nil {
		return nil, err
	}
	if !def.Features.LocalAdminSupport {
		return nil, ierr.NewErrorf("tier %s does not include local admin support", sub.Tier).
			WithHint("Local admin support requires a premium subscription").
			Mark(ierr.ErrTenantNotEligible)
	}
	switch sub.Status {
	case types.SubscriptionStatusActive, types.SubscriptionStatusGracePeriod:
	default:
		return nil, ierr.NewErrorf("subscription is %s, local admin assignment requires active or grace_period", sub.Status).
			WithHint("Subscription must be active to receive a local admin").
			Mark(ierr.ErrTenantNotEligible)
	}

	admin, err := s.LocalAdminRepo.Get(ctx, req.LocalAdminID)
	if err != nil {
		return nil, err
	}
	if !admin.AvailabilityStatus.IsAssignable() {
		return nil, ierr.NewErrorf("local admin is %s", admin.AvailabilityStatus).
			WithHint("No local admin currently available").
			WithReportableDetails(map[string]any{
				"local_admin_id": admin.ID,
				"status":         admin.AvailabilityStatus,
			}).
			Mark(ierr.ErrCapacityExceeded)
	}

	assignment := &localadmin.Assignment{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ASSIGNMENT),
		MasjidID:     req.MasjidID,
		LocalAdminID: req.LocalAdminID,
		AssignedAt:   s.now(),
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if err := s.AssignmentRepo.CreateIfUnderCapacity(ctx, assignment, admin.MaxCapacity); err != nil {
		return nil, err
	}

	if err := s.recomputeAvailability(ctx, req.LocalAdminID); err != nil {
		return nil, err
	}

	s.Logger.Infow("assigned local admin",
		"assignment_id", assignment.ID,
		"masjid_id", assignment.MasjidID,
		"local_admin_id", assignment.LocalAdminID,
	)
	return &dto.AssignmentResponse{Assignment: assignment}, nil
}

func (s *localAdminService) UnassignLocalAdmin(ctx context.Context, masjidID string) error {
	removed, err := s.AssignmentRepo.DeleteByMasjid(ctx, masjidID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Already unassigned
			return nil
		}
		return err
	}

	if err := s.recomputeAvailability(ctx, removed.LocalAdminID); err != nil {
		return err
	}

	s.Logger.Infow("unassigned local admin",
		"masjid_id", masjidID,
		"local_admin_id", removed.LocalAdminID,
	)
	return nil
}

func (s *localAdminService) GetAssignment(ctx context.Context, masjidID string) (*dto.AssignmentResponse, error) {
	assignment, err := s.AssignmentRepo.GetByMasjid(ctx, masjidID)
	if err != nil {
		return nil, err
	}
	adminResp, err := s.GetLocalAdmin(ctx, assignment.LocalAdminID)
	if err != nil {
		return nil, err
	}
	return &dto.AssignmentResponse{Assignment: assignment, LocalAdmin: adminResp}, nil
}

func (s *localAdminService) CreditEarnings(ctx context.Context, localAdminID string, amount decimal.Decimal, paidAt time.Time) error {
	if !amount.IsPositive() {
		return ierr.NewErrorf("earnings credit must be positive, got %s", amount).
			Mark(ierr.ErrValidation)
	}

	_, err := s.updateWithRetry(ctx, localAdminID, func(admin *localadmin.LocalAdmin) error {
		admin.Credit(amount, paidAt)
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("credited local admin earnings",
		"local_admin_id", localAdminID,
		"amount", amount,
		"month", paidAt.Format("2006-01"),
	)
	return nil
}

func (s *localAdminService) GetEarnings(ctx context.Context, localAdminID string) (*dto.EarningsResponse, error) {
	admin, err := s.LocalAdminRepo.Get(ctx, localAdminID)
	if err != nil {
		return nil, err
	}
	admin.Earnings.RefreshCurrentMonth(s.now())
	count, err := s.AssignmentRepo.CountByLocalAdmin(ctx, localAdminID)
	if err != nil {
		return nil, err
	}
	return &dto.EarningsResponse{
		LocalAdminID:    admin.ID,
		FullName:        admin.FullName,
		AssignedMasjids: count,
		Earnings:        admin.Earnings,
	}, nil
}

// updateWithRetry runs a read-mutate-write cycle on a local admin under the
// version CAS, refetching and retrying on conflict.
func (s *localAdminService) updateWithRetry(ctx context.Context, id string, mutate func(*localadmin.LocalAdmin) error) (*localadmin.LocalAdmin, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		admin, err := s.LocalAdminRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(admin); err != nil {
			return nil, err
		}
		admin.UpdatedAt = s.now()
		admin.UpdatedBy = types.GetUserID(ctx)

		if err := s.LocalAdminRepo.Update(ctx, admin); err != nil {
			if ierr.IsVersionConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return admin, nil
	}
	return nil, lastErr
}

func (s *localAdminService) recomputeAvailability(ctx context.Context, localAdminID string) error {
	count, err := s.AssignmentRepo.CountByLocalAdmin(ctx, localAdminID)
	if err != nil {
		return err
	}
	_, err = s.updateWithRetry(ctx, localAdminID, func(admin *localadmin.LocalAdmin) error {
		admin.RecomputeAvailability(count)
		return nil
	})
	return err
}
