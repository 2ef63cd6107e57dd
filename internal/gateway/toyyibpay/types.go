package toyyibpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// ToyyibPay bill status codes as delivered in callbacks
const (
	BillStatusPaid    = "1"
	BillStatusPending = "2"
	BillStatusFailed  = "3"
)

// CreateBillRequest is the bill we ask ToyyibPay to issue. Premium payments
// carry split arguments so the gateway settles both recipients directly.
type CreateBillRequest struct {
	BillName        string
	BillDescription string
	Amount          string // "300.00", ToyyibPay wants the decimal string
	ExternalRefNo   string // our payment transaction id
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string

	// Split settlement, nil for non-premium bills
	Split *SplitArgs
}

// SplitArgs mirrors ToyyibPay's billSplitPaymentArgs entries
type SplitArgs struct {
	MasjidAdminEmail  string
	MasjidAdminAmount string
	LocalAdminEmail   string
	LocalAdminAmount  string
}

// CreateBillResponse is the relevant subset of ToyyibPay's createBill reply
type CreateBillResponse struct {
	BillCode   string
	PaymentURL string
}

// CallbackPayload is the form-encoded webhook ToyyibPay posts after a
// payment attempt settles. RefNo is the gateway's payment reference and the
// idempotency key; OrderID carries our transaction id back.
type CallbackPayload struct {
	RefNo           string `form:"refno" json:"refno"`
	BillCode        string `form:"billcode" json:"billcode"`
	OrderID         string `form:"order_id" json:"order_id"`
	Status          string `form:"status" json:"status"`
	Amount          string `form:"amount" json:"amount"`
	Reason          string `form:"reason" json:"reason"`
	TransactionTime string `form:"transaction_time" json:"transaction_time"`
	Hash            string `form:"hash" json:"hash"`
}

// Validate rejects structurally incomplete callbacks before any processing
func (p *CallbackPayload) Validate() error {
	if p.RefNo == "" {
		return ierr.NewError("callback missing refno").Mark(ierr.ErrValidation)
	}
	if p.BillCode == "" {
		return ierr.NewError("callback missing billcode").Mark(ierr.ErrValidation)
	}
	if p.OrderID == "" {
		return ierr.NewError("callback missing order_id").Mark(ierr.ErrValidation)
	}
	switch p.Status {
	case BillStatusPaid, BillStatusPending, BillStatusFailed:
		return nil
	default:
		return ierr.NewErrorf("callback has unknown status %q", p.Status).
			Mark(ierr.ErrValidation)
	}
}

// Outcome maps the ToyyibPay status code onto the ledger outcome. Pending
// callbacks carry no outcome; the second return is false for them.
func (p *CallbackPayload) Outcome() (types.GatewayOutcome, bool) {
	switch p.Status {
	case BillStatusPaid:
		return types.GatewayOutcomeCompleted, true
	case BillStatusFailed:
		return types.GatewayOutcomeFailed, true
	default:
		return "", false
	}
}

// VerifySignature checks the callback hash: HMAC-SHA256 over
// refno|billcode|status|amount keyed with the ToyyibPay secret.
func (p *CallbackPayload) VerifySignature(secret string) error {
	if secret == "" {
		// No secret configured means signature checking is disabled
		// (sandbox environments).
		return nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%s|%s", p.RefNo, p.BillCode, p.Status, p.Amount)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(p.Hash)) {
		return ierr.NewError("callback signature mismatch").
			WithHint("Webhook signature verification failed").
			WithReportableDetails(map[string]any{
				"refno":    p.RefNo,
				"billcode": p.BillCode,
			}).
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
