package gorm

import (
	"context"
	"errors"
	"time"

	domainsub "github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// subscriptionRow is the persisted shape of a subscription
type subscriptionRow struct {
	ID       string `gorm:"primaryKey"`
	MasjidID string `gorm:"index;not null"`
	Tier     string `gorm:"not null"`
	Status   string `gorm:"index;not null"`

	BillingCycle string          `gorm:"not null"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency     string          `gorm:"size:3"`

	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	NextBillingDate    *time.Time

	TrialStart *time.Time
	TrialEnd   *time.Time `gorm:"index"`

	GracePeriodStart      *time.Time
	GracePeriodEnd        *time.Time `gorm:"index"`
	FailedPaymentAttempts int
	LastFailedAt          *time.Time

	SoftLockedAt   *time.Time
	SoftLockReason string

	CancelledAt        *time.Time
	CancellationReason string

	BillingContactName string
	BillingEmail       string
	BillingPhone       string

	Version int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

func (subscriptionRow) TableName() string { return "subscriptions" }

func subscriptionToRow(s *domainsub.Subscription) *subscriptionRow {
	return &subscriptionRow{
		ID:                    s.ID,
		MasjidID:              s.MasjidID,
		Tier:                  string(s.Tier),
		Status:                string(s.Status),
		BillingCycle:          string(s.BillingCycle),
		Price:                 s.Price,
		Currency:              s.Currency,
		CurrentPeriodStart:    s.CurrentPeriodStart,
		CurrentPeriodEnd:      s.CurrentPeriodEnd,
		NextBillingDate:       s.NextBillingDate,
		TrialStart:            s.TrialStart,
		TrialEnd:              s.TrialEnd,
		GracePeriodStart:      s.GracePeriodStart,
		GracePeriodEnd:        s.GracePeriodEnd,
		FailedPaymentAttempts: s.FailedPaymentAttempts,
		LastFailedAt:          s.LastFailedAt,
		SoftLockedAt:          s.SoftLockedAt,
		SoftLockReason:        s.SoftLockReason,
		CancelledAt:           s.CancelledAt,
		CancellationReason:    s.CancellationReason,
		BillingContactName:    s.BillingContactName,
		BillingEmail:          s.BillingEmail,
		BillingPhone:          s.BillingPhone,
		Version:               s.Version,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
		CreatedBy:             s.CreatedBy,
		UpdatedBy:             s.UpdatedBy,
	}
}

func subscriptionFromRow(r *subscriptionRow) *domainsub.Subscription {
	if r == nil {
		return nil
	}
	return &domainsub.Subscription{
		ID:                    r.ID,
		MasjidID:              r.MasjidID,
		Tier:                  types.TierID(r.Tier),
		Status:                types.SubscriptionStatus(r.Status),
		BillingCycle:          types.BillingCycle(r.BillingCycle),
		Price:                 r.Price,
		Currency:              r.Currency,
		CurrentPeriodStart:    r.CurrentPeriodStart,
		CurrentPeriodEnd:      r.CurrentPeriodEnd,
		NextBillingDate:       r.NextBillingDate,
		TrialStart:            r.TrialStart,
		TrialEnd:              r.TrialEnd,
		GracePeriodStart:      r.GracePeriodStart,
		GracePeriodEnd:        r.GracePeriodEnd,
		FailedPaymentAttempts: r.FailedPaymentAttempts,
		LastFailedAt:          r.LastFailedAt,
		SoftLockedAt:          r.SoftLockedAt,
		SoftLockReason:        r.SoftLockReason,
		CancelledAt:           r.CancelledAt,
		CancellationReason:    r.CancellationReason,
		BillingContactName:    r.BillingContactName,
		BillingEmail:          r.BillingEmail,
		BillingPhone:          r.BillingPhone,
		Version:               r.Version,
		BaseModel: types.BaseModel{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
}

type subscriptionRepository struct {
	client *Client
	log    *logger.Logger
}

// NewSubscriptionRepository creates a postgres-backed subscription repository
func NewSubscriptionRepository(client *Client, log *logger.Logger) domainsub.Repository {
	return &subscriptionRepository{client: client, log: log}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domainsub.Subscription) error {
	r.log.Debugw("creating subscription", "masjid_id", sub.MasjidID, "tier", sub.Tier)

	err := r.client.DB(ctx).Create(subscriptionToRow(sub)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.NewError("subscription already exists for masjid").
				WithHint("This masjid already has an active subscription").
				WithReportableDetails(map[string]any{"masjid_id": sub.MasjidID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*domainsub.Subscription, error) {
	var row subscriptionRow
	err := r.client.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription not found").
				WithReportableDetails(map[string]any{"id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return subscriptionFromRow(&row), nil
}

func (r *subscriptionRepository) GetByMasjid(ctx context.Context, masjidID string) (*domainsub.Subscription, error) {
	var row subscriptionRow
	err := r.client.DB(ctx).
		Where("masjid_id = ?", masjidID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("no subscription for masjid").
				WithHint("No subscription found for this masjid").
				WithReportableDetails(map[string]any{"masjid_id": masjidID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return subscriptionFromRow(&row), nil
}

// Update writes the subscription with an optimistic version check. The row
// only updates when the stored version matches the version the caller read;
// the version column is bumped in the same statement.
func (r *subscriptionRepository) Update(ctx context.Context, sub *domainsub.Subscription) error {
	row := subscriptionToRow(sub)
	expectedVersion := row.Version
	row.Version = expectedVersion + 1

	res := r.client.DB(ctx).
		Model(&subscriptionRow{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription changed while processing, please retry").
			WithReportableDetails(map[string]any{"id": sub.ID, "version": expectedVersion}).
			Mark(ierr.ErrVersionConflict)
	}
	sub.Version = expectedVersion + 1
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *domainsub.Filter) ([]*domainsub.Subscription, error) {
	q := r.client.DB(ctx).Model(&subscriptionRow{})
	if filter != nil {
		if len(filter.MasjidIDs) > 0 {
			q = q.Where("masjid_id IN ?", filter.MasjidIDs)
		}
		if len(filter.Tiers) > 0 {
			q = q.Where("tier IN ?", filter.Tiers)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN ?", filter.Statuses)
		}
	}
	q = q.Order("created_at DESC").Limit(filter.GetLimit()).Offset(filter.GetOffset())

	var rows []subscriptionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	out := make([]*domainsub.Subscription, len(rows))
	for i := range rows {
		out[i] = subscriptionFromRow(&rows[i])
	}
	return out, nil
}

func (r *subscriptionRepository) ListDueForTransition(ctx context.Context, now time.Time, limit int) ([]*domainsub.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []subscriptionRow
	err := r.client.DB(ctx).
		Where("(status = ? AND trial_end <= ?) OR (status = ? AND grace_period_end <= ?)",
			string(types.SubscriptionStatusTrial), now,
			string(types.SubscriptionStatusGracePeriod), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list due subscriptions").
			Mark(ierr.ErrDatabase)
	}
	out := make([]*domainsub.Subscription, len(rows))
	for i := range rows {
		out[i] = subscriptionFromRow(&rows[i])
	}
	return out, nil
}
