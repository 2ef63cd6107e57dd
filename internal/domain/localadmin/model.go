package localadmin

import (
	"sort"
	"time"

	"github.com/masjid-suite/billing/internal/types"
	"github.com/shopspring/decimal"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// MonthlyEarning is one month's earnings in the breakdown, keyed "YYYY-MM"
type MonthlyEarning struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// EarningsSummary aggregates a local admin's split-billing income. It is a
// denormalized view recomputable from the payment ledger; the ledger stays
// authoritative.
type EarningsSummary struct {
	TotalEarnings decimal.Decimal `json:"total_earnings"`

	// CurrentMonth is derived from MonthlyBreakdown at read time, never stored
	CurrentMonth     decimal.Decimal  `json:"current_month"`
	PendingTransfers decimal.Decimal  `json:"pending_transfers"`
	LastPaymentDate  *time.Time       `json:"last_payment_date,omitempty"`
	MonthlyBreakdown []MonthlyEarning `json:"monthly_breakdown"`
}

// LocalAdmin is a shared support-staff member assignable to premium masjids
// under a capacity cap.
type LocalAdmin struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	WhatsAppNumber string `json:"whatsapp_number"`

	MaxCapacity        int                      `json:"max_capacity"`
	AvailabilityStatus types.AvailabilityStatus `json:"availability_status"`

	Earnings EarningsSummary `json:"earnings_summary"`

	// Version is the optimistic concurrency token guarding the
	// read-modify-write on the earnings summary.
	Version int `json:"version"`

	types.BaseModel
}

// Validate checks the structural invariants of a local admin record
func (a *LocalAdmin) Validate() error {
	if a.UserID == "" {
		return ierr.NewError("user_id is required").Mark(ierr.ErrValidation)
	}
	if a.FullName == "" {
		return ierr.NewError("full_name is required").Mark(ierr.ErrValidation)
	}
	if a.MaxCapacity <= 0 {
		return ierr.NewError("max_capacity must be positive").
			WithHint("Capacity must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if !a.AvailabilityStatus.Validate() {
		return ierr.NewErrorf("unknown availability status %q", a.AvailabilityStatus).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Credit adds a split-billing amount to the earnings summary: lifetime
// total, the payment month's breakdown entry (created or incremented), and
// the pending transfer balance. CurrentMonth is not stored; it is derived
// from the breakdown at read time via RefreshCurrentMonth.
func (a *LocalAdmin) Credit(amount decimal.Decimal, paidAt time.Time) {
	month := paidAt.Format("2006-01")

	a.Earnings.TotalEarnings = a.Earnings.TotalEarnings.Add(amount)
	a.Earnings.PendingTransfers = a.Earnings.PendingTransfers.Add(amount)
	a.Earnings.LastPaymentDate = &paidAt

	found := false
	for i := range a.Earnings.MonthlyBreakdown {
		if a.Earnings.MonthlyBreakdown[i].Month == month {
			a.Earnings.MonthlyBreakdown[i].Amount = a.Earnings.MonthlyBreakdown[i].Amount.Add(amount)
			found = true
			break
		}
	}
	if !found {
		a.Earnings.MonthlyBreakdown = append(a.Earnings.MonthlyBreakdown, MonthlyEarning{
			Month:  month,
			Amount: amount,
		})
		sort.Slice(a.Earnings.MonthlyBreakdown, func(i, j int) bool {
			return a.Earnings.MonthlyBreakdown[i].Month > a.Earnings.MonthlyBreakdown[j].Month
		})
	}
}

// RefreshCurrentMonth sets CurrentMonth to the breakdown entry for now's
// calendar month, or zero when the month has no earnings yet.
func (e *EarningsSummary) RefreshCurrentMonth(now time.Time) {
	month := now.Format("2006-01")
	e.CurrentMonth = decimal.Zero
	for _, m := range e.MonthlyBreakdown {
		if m.Month == month {
			e.CurrentMonth = m.Amount
			return
		}
	}
}

// RecomputeAvailability flips the admin between available and at_capacity
// based on the active assignment count. Manually-set states (on_leave,
// inactive) are left alone.
func (a *LocalAdmin) RecomputeAvailability(activeAssignments int) {
	switch a.AvailabilityStatus {
	case types.AvailabilityStatusOnLeave, types.AvailabilityStatusInactive:
		return
	}
	if activeAssignments >= a.MaxCapacity {
		a.AvailabilityStatus = types.AvailabilityStatusAtCapacity
	} else {
		a.AvailabilityStatus = types.AvailabilityStatusAvailable
	}
}

// Assignment links one masjid to one local admin. A masjid holds at most one
// active assignment; rows are created and destroyed only through the
// allocator.
type Assignment struct {
	ID           string    `json:"id"`
	MasjidID     string    `json:"masjid_id"`
	LocalAdminID string    `json:"local_admin_id"`
	AssignedAt   time.Time `json:"assigned_at"`

	types.BaseModel
}
