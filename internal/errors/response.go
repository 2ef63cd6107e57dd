package errors

import "net/http"

// ErrorDetail is the wire representation of a single error
type ErrorDetail struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope returned for any failed request
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the wire envelope for an error. The hint, when
// present, replaces the internal message so raw database or gateway errors
// never leak to callers.
func NewErrorResponse(err error) *ErrorResponse {
	message := err.Error()
	if hint := HintOf(err); hint != "" {
		message = hint
	}

	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Code:    CodeOf(err),
			Details: DetailsOf(err),
		},
	}
}

// CodeOf maps an error to its taxonomy code string
func CodeOf(err error) string {
	switch {
	case IsValidation(err):
		return "VALIDATION_ERROR"
	case IsNotFound(err):
		return "NOT_FOUND"
	case IsAlreadyExists(err), IsVersionConflict(err):
		return "CONFLICT"
	case IsInvalidTransition(err):
		return "INVALID_TRANSITION"
	case IsCapacityExceeded(err):
		return "CAPACITY_EXCEEDED"
	case IsTenantNotEligible(err):
		return "TENANT_NOT_ELIGIBLE"
	case IsPermissionDenied(err):
		return "PERMISSION_DENIED"
	case IsInvalidOperation(err):
		return "INVALID_OPERATION"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatusOf maps an error to the HTTP status the handlers should return.
// Database and unknown errors map to 500 so payment gateways retry callbacks.
func HTTPStatusOf(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err), IsVersionConflict(err), IsCapacityExceeded(err):
		return http.StatusConflict
	case IsInvalidTransition(err), IsTenantNotEligible(err), IsInvalidOperation(err):
		return http.StatusUnprocessableEntity
	case IsPermissionDenied(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
