package gorm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainadmin "github.com/masjid-suite/billing/internal/domain/localadmin"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// localAdminRow is the persisted shape of a local admin
type localAdminRow struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"uniqueIndex;not null"`
	FullName       string `gorm:"not null"`
	Email          string
	WhatsAppNumber string

	MaxCapacity        int    `gorm:"not null"`
	AvailabilityStatus string `gorm:"index;not null"`

	EarningsSummary datatypes.JSON

	Version int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

func (localAdminRow) TableName() string { return "local_admins" }

// assignmentRow is the persisted masjid-to-admin join row. The unique index
// on masjid_id enforces one active assignment per masjid.
type assignmentRow struct {
	ID           string    `gorm:"primaryKey"`
	MasjidID     string    `gorm:"uniqueIndex;not null"`
	LocalAdminID string    `gorm:"index;not null"`
	AssignedAt   time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

func (assignmentRow) TableName() string { return "local_admin_assignments" }

func localAdminToRow(a *domainadmin.LocalAdmin) (*localAdminRow, error) {
	earnings, err := json.Marshal(a.Earnings)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode earnings summary").
			Mark(ierr.ErrValidation)
	}
	return &localAdminRow{
		ID:                 a.ID,
		UserID:             a.UserID,
		FullName:           a.FullName,
		Email:              a.Email,
		WhatsAppNumber:     a.WhatsAppNumber,
		MaxCapacity:        a.MaxCapacity,
		AvailabilityStatus: string(a.AvailabilityStatus),
		EarningsSummary:    datatypes.JSON(earnings),
		Version:            a.Version,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		CreatedBy:          a.CreatedBy,
		UpdatedBy:          a.UpdatedBy,
	}, nil
}

func localAdminFromRow(r *localAdminRow) (*domainadmin.LocalAdmin, error) {
	if r == nil {
		return nil, nil
	}
	admin := &domainadmin.LocalAdmin{
		ID:                 r.ID,
		UserID:             r.UserID,
		FullName:           r.FullName,
		Email:              r.Email,
		WhatsAppNumber:     r.WhatsAppNumber,
		MaxCapacity:        r.MaxCapacity,
		AvailabilityStatus: types.AvailabilityStatus(r.AvailabilityStatus),
		Version:            r.Version,
		BaseModel: types.BaseModel{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
	if len(r.EarningsSummary) > 0 {
		if err := json.Unmarshal(r.EarningsSummary, &admin.Earnings); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Corrupted earnings summary").
				WithReportableDetails(map[string]any{"id": r.ID}).
				Mark(ierr.ErrDatabase)
		}
	}
	return admin, nil
}

func assignmentToRow(a *domainadmin.Assignment) *assignmentRow {
	return &assignmentRow{
		ID:           a.ID,
		MasjidID:     a.MasjidID,
		LocalAdminID: a.LocalAdminID,
		AssignedAt:   a.AssignedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		CreatedBy:    a.CreatedBy,
		UpdatedBy:    a.UpdatedBy,
	}
}

func assignmentFromRow(r *assignmentRow) *domainadmin.Assignment {
	if r == nil {
		return nil
	}
	return &domainadmin.Assignment{
		ID:           r.ID,
		MasjidID:     r.MasjidID,
		LocalAdminID: r.LocalAdminID,
		AssignedAt:   r.AssignedAt,
		BaseModel: types.BaseModel{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

type localAdminRepository struct {
	client *Client
	log    *logger.Logger
}

// NewLocalAdminRepository creates a postgres-backed local admin repository
func NewLocalAdminRepository(client *Client, log *logger.Logger) domainadmin.Repository {
	return &localAdminRepository{client: client, log: log}
}

func (r *localAdminRepository) Create(ctx context.Context, admin *domainadmin.LocalAdmin) error {
	row, err := localAdminToRow(admin)
	if err != nil {
		return err
	}
	if err := r.client.DB(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.NewError("local admin already exists for user").
				WithReportableDetails(map[string]any{"user_id": admin.UserID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create local admin").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *localAdminRepository) Get(ctx context.Context, id string) (*domainadmin.LocalAdmin, error) {
	var row localAdminRow
	err := r.client.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("local admin not found").
				WithReportableDetails(map[string]any{"id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return localAdminFromRow(&row)
}

// Update writes the local admin with an optimistic version check, guarding
// concurrent earnings credits.
func (r *localAdminRepository) Update(ctx context.Context, admin *domainadmin.LocalAdmin) error {
	row, err := localAdminToRow(admin)
	if err != nil {
		return err
	}
	expectedVersion := row.Version
	row.Version = expectedVersion + 1

	res := r.client.DB(ctx).
		Model(&localAdminRow{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update local admin").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("local admin was modified concurrently").
			WithHint("The local admin record changed while processing, please retry").
			WithReportableDetails(map[string]any{"id": admin.ID, "version": expectedVersion}).
			Mark(ierr.ErrVersionConflict)
	}
	admin.Version = expectedVersion + 1
	return nil
}

func (r *localAdminRepository) List(ctx context.Context, filter *domainadmin.Filter) ([]*domainadmin.LocalAdmin, error) {
	q := r.client.DB(ctx).Model(&localAdminRow{})
	if filter != nil {
		if len(filter.AvailabilityStatuses) > 0 {
			q = q.Where("availability_status IN ?", filter.AvailabilityStatuses)
		}
		if len(filter.UserIDs) > 0 {
			q = q.Where("user_id IN ?", filter.UserIDs)
		}
	}
	q = q.Order("created_at DESC").Limit(filter.GetLimit()).Offset(filter.GetOffset())

	var rows []localAdminRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	out := make([]*domainadmin.LocalAdmin, 0, len(rows))
	for i := range rows {
		admin, err := localAdminFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, admin)
	}
	return out, nil
}

type assignmentRepository struct {
	client *Client
	log    *logger.Logger
}

// NewAssignmentRepository creates a postgres-backed assignment repository
func NewAssignmentRepository(client *Client, log *logger.Logger) domainadmin.AssignmentRepository {
	return &assignmentRepository{client: client, log: log}
}

// CreateIfUnderCapacity inserts the assignment inside a transaction that
// locks the admin row first, so the capacity count cannot go stale between
// the check and the insert.
func (r *assignmentRepository) CreateIfUnderCapacity(ctx context.Context, assignment *domainadmin.Assignment, maxCapacity int) error {
	return r.client.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var admin localAdminRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", assignment.LocalAdminID).
			First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ierr.NewError("local admin not found").
					WithReportableDetails(map[string]any{"id": assignment.LocalAdminID}).
					Mark(ierr.ErrNotFound)
			}
			return ierr.WithError(err).Mark(ierr.ErrDatabase)
		}

		var count int64
		if err := tx.Model(&assignmentRow{}).
			Where("local_admin_id = ?", assignment.LocalAdminID).
			Count(&count).Error; err != nil {
			return ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		if int(count) >= maxCapacity {
			return ierr.NewError("local admin is at capacity").
				WithHint("No local admin currently available").
				WithReportableDetails(map[string]any{"local_admin_id": assignment.LocalAdminID}).
				Mark(ierr.ErrCapacityExceeded)
		}

		if err := tx.Create(assignmentToRow(assignment)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ierr.NewError("masjid already has an assigned local admin").
					WithReportableDetails(map[string]any{"masjid_id": assignment.MasjidID}).
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).Mark(ierr.ErrDatabase)
		}
		return nil
	})
}

func (r *assignmentRepository) GetByMasjid(ctx context.Context, masjidID string) (*domainadmin.Assignment, error) {
	var row assignmentRow
	err := r.client.DB(ctx).Where("masjid_id = ?", masjidID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("no assignment for masjid").
				WithReportableDetails(map[string]any{"masjid_id": masjidID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return assignmentFromRow(&row), nil
}

func (r *assignmentRepository) DeleteByMasjid(ctx context.Context, masjidID string) (*domainadmin.Assignment, error) {
	var row assignmentRow
	err := r.client.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("masjid_id = ?", masjidID).First(&row).Error; err != nil {
			return err
		}
		return tx.Where("masjid_id = ?", masjidID).Delete(&assignmentRow{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("no assignment for masjid").
				WithReportableDetails(map[string]any{"masjid_id": masjidID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return assignmentFromRow(&row), nil
}

func (r *assignmentRepository) CountByLocalAdmin(ctx context.Context, localAdminID string) (int, error) {
	var count int64
	err := r.client.DB(ctx).Model(&assignmentRow{}).
		Where("local_admin_id = ?", localAdminID).
		Count(&count).Error
	if err != nil {
		return 0, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func (r *assignmentRepository) ListByLocalAdmin(ctx context.Context, localAdminID string) ([]*domainadmin.Assignment, error) {
	var rows []assignmentRow
	err := r.client.DB(ctx).
		Where("local_admin_id = ?", localAdminID).
		Order("assigned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	out := make([]*domainadmin.Assignment, len(rows))
	for i := range rows {
		out[i] = assignmentFromRow(&rows[i])
	}
	return out, nil
}
