package domain

import (
	"errors"
	"fmt"
	"time"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"   // Caller could not be identified
	EFORBIDDEN    = "forbidden"      // Permission denied
	ENOTFOUND     = "not_found"      // Resource not found
	ETOOLARGE     = "too_large"      // Request entity too large
	EPOLICY       = "policy_denied"  // Plan limit or entitlement refused the operation
	ERATELIMIT    = "rate_limit"     // Identity is cooling down
	EANOMALY      = "anomaly"        // Request pattern looks automated
	EUPSTREAM     = "upstream"       // Processing engine failed or timed out
	ECHUNK        = "chunk_boundary" // A translation chunk broke the hard ceiling
	EUNAVAILABLE  = "unavailable"    // Processing engine is at capacity
	EINTERNAL     = "internal"       // Internal server error
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "quota.record_upload")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Upstream wraps a processing engine failure. The engine's own message is kept
// so callers can tell a timeout from a rejected payload.
func Upstream(err error, op, message string) *Error {
	return &Error{
		Code:    EUPSTREAM,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// =============================================================================
// Policy and throttle details
// =============================================================================

// Denial describes why a plan-gated operation was refused. It travels as the
// Err of a policy_denied Error so handlers can expose the limit and upgrade hint.
type Denial struct {
	Tier    PlanTier
	Limit   LimitKind
	Reason  string
	Upgrade string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s limit reached on %s plan", d.Limit, d.Tier)
}

// PolicyDenied creates a policy error for the given tier and limit.
func PolicyDenied(op string, tier PlanTier, limit LimitKind, reason string) *Error {
	d := &Denial{
		Tier:    tier,
		Limit:   limit,
		Reason:  reason,
		Upgrade: UpgradeMessage(tier, limit),
	}
	return &Error{
		Code:    EPOLICY,
		Op:      op,
		Message: reason + " " + d.Upgrade,
		Err:     d,
	}
}

// DenialOf extracts the Denial carried by err, if any.
func DenialOf(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Throttle carries the wait an identity must observe before retrying.
type Throttle struct {
	RetryAfter time.Duration
	Message    string
}

func (t *Throttle) Error() string {
	return t.Message
}

// RateLimited creates a rate limit error with a deterministic wait.
func RateLimited(op string, retryAfter time.Duration, message string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: message,
		Err:     &Throttle{RetryAfter: retryAfter, Message: message},
	}
}

// ThrottleOf extracts the Throttle carried by err, if any.
func ThrottleOf(err error) (*Throttle, bool) {
	var t *Throttle
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}

// AnomalyDetected creates an error for request patterns that look automated.
func AnomalyDetected(op string) *Error {
	return &Error{
		Code:    EANOMALY,
		Op:      op,
		Message: "Unusual request pattern detected. Please slow down and try again later.",
	}
}

// ChunkBoundary reports a chunk that exceeded the hard ceiling after truncation.
func ChunkBoundary(op string, size, ceiling int) *Error {
	return &Error{
		Code:    ECHUNK,
		Op:      op,
		Message: fmt.Sprintf("translation chunk of %d characters exceeds the %d character ceiling", size, ceiling),
	}
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
