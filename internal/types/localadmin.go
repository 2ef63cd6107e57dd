package types

// AvailabilityStatus is the local admin's assignability state
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable  AvailabilityStatus = "available"
	AvailabilityStatusAtCapacity AvailabilityStatus = "at_capacity"
	AvailabilityStatusOnLeave    AvailabilityStatus = "on_leave"
	AvailabilityStatusInactive   AvailabilityStatus = "inactive"
)

// IsAssignable reports whether new tenants may be assigned to the admin.
// Only available admins take new assignments; at_capacity flips back to
// available as assignments are released, while on_leave and inactive stay
// until changed manually.
func (s AvailabilityStatus) IsAssignable() bool {
	return s == AvailabilityStatusAvailable
}

// Validate rejects unknown availability statuses
func (s AvailabilityStatus) Validate() bool {
	switch s {
	case AvailabilityStatusAvailable, AvailabilityStatusAtCapacity,
		AvailabilityStatusOnLeave, AvailabilityStatusInactive:
		return true
	default:
		return false
	}
}

// DefaultLocalAdminCapacity is the number of premium tenants a local admin
// can serve unless overridden at creation.
const DefaultLocalAdminCapacity = 10
