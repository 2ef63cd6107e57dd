package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError is the rich error type carried between layers. The message is
// safe for operators, the hint is safe for end users, and reportable details
// are structured fields surfaced in API error responses.
type InternalError struct {
	err               error
	hint              string
	reportableDetails map[string]any
}

// Error implements the error interface
func (e *InternalError) Error() string {
	return e.err.Error()
}

// Unwrap lets errors.Is/As walk the chain including the sentinel mark
func (e *InternalError) Unwrap() error {
	return e.err
}

// Hint returns the user-safe hint, if any
func (e *InternalError) Hint() string {
	return e.hint
}

// ReportableDetails returns the structured details attached to the error
func (e *InternalError) ReportableDetails() map[string]any {
	return e.reportableDetails
}

// Builder accumulates error context before the terminal Mark call.
type Builder struct {
	ie *InternalError
}

// NewError starts a builder from a new error message
func NewError(msg string) *Builder {
	return &Builder{ie: &InternalError{err: errors.New(msg)}}
}

// NewErrorf starts a builder from a formatted error message
func NewErrorf(format string, args ...any) *Builder {
	return &Builder{ie: &InternalError{err: errors.Newf(format, args...)}}
}

// WithError starts a builder wrapping an existing error
func WithError(err error) *Builder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &Builder{ie: &InternalError{err: err}}
}

// WithHint attaches a user-safe hint
func (b *Builder) WithHint(hint string) *Builder {
	b.ie.hint = hint
	return b
}

// WithHintf attaches a formatted user-safe hint
func (b *Builder) WithHintf(format string, args ...any) *Builder {
	b.ie.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details surfaced to API callers
func (b *Builder) WithReportableDetails(details map[string]any) *Builder {
	b.ie.reportableDetails = details
	return b
}

// Mark terminates the builder, tagging the error with a sentinel so callers
// can branch with errors.Is / the Is* helpers.
func (b *Builder) Mark(sentinel error) error {
	b.ie.err = errors.Mark(b.ie.err, sentinel)
	return b.ie
}

// HintOf extracts the user-safe hint from an error chain, if present
func HintOf(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Hint()
	}
	return ""
}

// DetailsOf extracts reportable details from an error chain, if present
func DetailsOf(err error) map[string]any {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.ReportableDetails()
	}
	return nil
}
