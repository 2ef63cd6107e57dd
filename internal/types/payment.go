package types

// PaymentStatus is the payment transaction lifecycle state
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsTerminal reports whether the ledger row may no longer transition.
// Terminal rows reject conflicting gateway outcomes instead of overwriting.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Validate rejects unknown payment statuses
func (s PaymentStatus) Validate() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// GatewayOutcome is the subset of statuses a gateway callback may report
type GatewayOutcome string

const (
	GatewayOutcomeCompleted GatewayOutcome = "completed"
	GatewayOutcomeFailed    GatewayOutcome = "failed"
	GatewayOutcomeRefunded  GatewayOutcome = "refunded"
)

// ToPaymentStatus maps the outcome onto the ledger status it produces
func (o GatewayOutcome) ToPaymentStatus() PaymentStatus {
	return PaymentStatus(o)
}

// Validate rejects unknown gateway outcomes
func (o GatewayOutcome) Validate() bool {
	switch o {
	case GatewayOutcomeCompleted, GatewayOutcomeFailed, GatewayOutcomeRefunded:
		return true
	default:
		return false
	}
}

// PaymentMethod identifies how a payment was collected
type PaymentMethod string

const (
	PaymentMethodToyyibPay PaymentMethod = "toyyibpay"
	PaymentMethodManual    PaymentMethod = "manual"
)

// Validate rejects unknown payment methods
func (m PaymentMethod) Validate() bool {
	return m == PaymentMethodToyyibPay || m == PaymentMethodManual
}
