package gorm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainpayment "github.com/masjid-suite/billing/internal/domain/payment"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// paymentTransactionRow is the persisted shape of a ledger row
type paymentTransactionRow struct {
	ID             string `gorm:"primaryKey"`
	SubscriptionID string `gorm:"index;not null"`
	MasjidID       string `gorm:"index;not null"`

	Amount   decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency string          `gorm:"size:3"`

	Status        string `gorm:"index;not null"`
	PaymentMethod string `gorm:"not null"`

	GatewayBillCode  string
	GatewayReference *string `gorm:"uniqueIndex"`

	SplitBilling datatypes.JSON

	FailureReason string
	PaidAt        *time.Time
	FailedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

func (paymentTransactionRow) TableName() string { return "payment_transactions" }

func paymentToRow(t *domainpayment.PaymentTransaction) (*paymentTransactionRow, error) {
	row := &paymentTransactionRow{
		ID:              t.ID,
		SubscriptionID:  t.SubscriptionID,
		MasjidID:        t.MasjidID,
		Amount:          t.Amount,
		Currency:        t.Currency,
		Status:          string(t.Status),
		PaymentMethod:   string(t.PaymentMethod),
		GatewayBillCode: t.GatewayBillCode,
		FailureReason:   t.FailureReason,
		PaidAt:          t.PaidAt,
		FailedAt:        t.FailedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CreatedBy:       t.CreatedBy,
		UpdatedBy:       t.UpdatedBy,
	}
	// NULL rather than empty string keeps the unique index from colliding
	// on rows that have no gateway reference yet.
	if t.GatewayReference != "" {
		ref := t.GatewayReference
		row.GatewayReference = &ref
	}
	if t.SplitBilling != nil {
		raw, err := json.Marshal(t.SplitBilling)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode split billing details").
				Mark(ierr.ErrValidation)
		}
		row.SplitBilling = datatypes.JSON(raw)
	}
	return row, nil
}

func paymentFromRow(r *paymentTransactionRow) (*domainpayment.PaymentTransaction, error) {
	if r == nil {
		return nil, nil
	}
	t := &domainpayment.PaymentTransaction{
		ID:              r.ID,
		SubscriptionID:  r.SubscriptionID,
		MasjidID:        r.MasjidID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Status:          types.PaymentStatus(r.Status),
		PaymentMethod:   types.PaymentMethod(r.PaymentMethod),
		GatewayBillCode: r.GatewayBillCode,
		FailureReason:   r.FailureReason,
		PaidAt:          r.PaidAt,
		FailedAt:        r.FailedAt,
		BaseModel: types.BaseModel{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
	if r.GatewayReference != nil {
		t.GatewayReference = *r.GatewayReference
	}
	if len(r.SplitBilling) > 0 {
		var details domainpayment.SplitBillingDetails
		if err := json.Unmarshal(r.SplitBilling, &details); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Corrupted split billing details").
				WithReportableDetails(map[string]any{"id": r.ID}).
				Mark(ierr.ErrDatabase)
		}
		t.SplitBilling = &details
	}
	return t, nil
}

type paymentRepository struct {
	client *Client
	log    *logger.Logger
}

// NewPaymentRepository creates a postgres-backed payment ledger repository
func NewPaymentRepository(client *Client, log *logger.Logger) domainpayment.Repository {
	return &paymentRepository{client: client, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, txn *domainpayment.PaymentTransaction) error {
	r.log.Debugw("recording payment transaction",
		"subscription_id", txn.SubscriptionID,
		"amount", txn.Amount)

	row, err := paymentToRow(txn)
	if err != nil {
		return err
	}
	if err := r.client.DB(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ierr.NewError("payment with this gateway reference already recorded").
				WithReportableDetails(map[string]any{"gateway_reference": txn.GatewayReference}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*domainpayment.PaymentTransaction, error) {
	var row paymentTransactionRow
	err := r.client.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("payment transaction not found").
				WithReportableDetails(map[string]any{"id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return paymentFromRow(&row)
}

func (r *paymentRepository) GetByGatewayReference(ctx context.Context, ref string) (*domainpayment.PaymentTransaction, error) {
	var row paymentTransactionRow
	err := r.client.DB(ctx).Where("gateway_reference = ?", ref).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.NewError("no payment for gateway reference").
				WithReportableDetails(map[string]any{"gateway_reference": ref}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return paymentFromRow(&row)
}

func (r *paymentRepository) Update(ctx context.Context, txn *domainpayment.PaymentTransaction) error {
	row, err := paymentToRow(txn)
	if err != nil {
		return err
	}
	res := r.client.DB(ctx).
		Model(&paymentTransactionRow{}).
		Where("id = ?", row.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update payment").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("payment transaction not found").
			WithReportableDetails(map[string]any{"id": txn.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// UpdateIfSettleable commits the row under a status guard: the write lands
// only while the stored row is still pending or processing, so the first of
// two concurrent callback deliveries wins the terminal transition.
func (r *paymentRepository) UpdateIfSettleable(ctx context.Context, txn *domainpayment.PaymentTransaction) error {
	row, err := paymentToRow(txn)
	if err != nil {
		return err
	}
	res := r.client.DB(ctx).
		Model(&paymentTransactionRow{}).
		Where("id = ? AND status IN ?", row.ID, []string{
			string(types.PaymentStatusPending),
			string(types.PaymentStatusProcessing),
		}).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(row)
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to update payment").
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, row.ID); err != nil {
			return err
		}
		return ierr.NewError("payment was settled concurrently").
			WithHint("Payment was already settled").
			WithReportableDetails(map[string]any{"id": txn.ID}).
			Mark(ierr.ErrVersionConflict)
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *domainpayment.Filter) ([]*domainpayment.PaymentTransaction, error) {
	q := r.client.DB(ctx).Model(&paymentTransactionRow{})
	if filter != nil {
		if len(filter.SubscriptionIDs) > 0 {
			q = q.Where("subscription_id IN ?", filter.SubscriptionIDs)
		}
		if len(filter.MasjidIDs) > 0 {
			q = q.Where("masjid_id IN ?", filter.MasjidIDs)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN ?", filter.Statuses)
		}
		if filter.CreatedAfter != nil {
			q = q.Where("created_at >= ?", *filter.CreatedAfter)
		}
		if filter.CreatedBefore != nil {
			q = q.Where("created_at <= ?", *filter.CreatedBefore)
		}
	}
	q = q.Order("created_at DESC").Limit(filter.GetLimit()).Offset(filter.GetOffset())

	var rows []paymentTransactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	out := make([]*domainpayment.PaymentTransaction, 0, len(rows))
	for i := range rows {
		txn, err := paymentFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}
