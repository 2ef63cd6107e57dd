package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used to mark failures across the service. Handlers map
// these to HTTP status codes and callers branch on them with the Is* helpers
// instead of matching error strings.
var (
	ErrValidation        = errors.New("validation_error")
	ErrNotFound          = errors.New("not_found")
	ErrAlreadyExists     = errors.New("already_exists")
	ErrVersionConflict   = errors.New("version_conflict")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrCapacityExceeded  = errors.New("capacity_exceeded")
	ErrTenantNotEligible = errors.New("tenant_not_eligible")
	ErrInvalidOperation  = errors.New("invalid_operation")
	ErrPermissionDenied  = errors.New("permission_denied")
	ErrHTTPClient        = errors.New("http_client_error")
	ErrDatabase          = errors.New("database_error")
	ErrInternal          = errors.New("internal_error")
)

// IsNotFound returns true if the error is marked as a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists returns true if the error is marked as an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict returns true if the error is marked as a version conflict
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvalidTransition returns true if the error is marked as an invalid state transition
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsCapacityExceeded returns true if the error is marked as a capacity failure
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsTenantNotEligible returns true if the error is marked as a tenant eligibility failure
func IsTenantNotEligible(err error) bool {
	return errors.Is(err, ErrTenantNotEligible)
}

// IsValidation returns true if the error is marked as a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation returns true if the error is marked as an invalid operation
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied returns true if the error is marked as a permission error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsDatabase returns true if the error is marked as a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}
