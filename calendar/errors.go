package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// STATUS CLASSES - External failure taxonomy
// =============================================================================

// StatusClass buckets external calendar failures. Each class carries a
// distinct user-facing reason; rate limits and expired tokens must not be
// reported as a generic calendar outage.
type StatusClass string

const (
	StatusInvalid     StatusClass = "invalid"      // 400: malformed event
	StatusAuthExpired StatusClass = "auth_expired" // 401: token expired
	StatusRateLimited StatusClass = "rate_limited" // 403/429: quota or rate limit
	StatusNotFound    StatusClass = "not_found"    // 404: no such event
	StatusConflict    StatusClass = "conflict"     // 409: resource conflict
	StatusGone        StatusClass = "gone"         // 410: already removed
	StatusUnavailable StatusClass = "unavailable"  // network failure, 5xx
	StatusGeneric     StatusClass = "generic"      // anything else
)

// Reason is the user-facing explanation for a class.
func (c StatusClass) Reason() string {
	switch c {
	case StatusInvalid:
		return "the calendar rejected the event as malformed"
	case StatusAuthExpired:
		return "the calendar access token has expired; contact an administrator"
	case StatusRateLimited:
		return "the calendar is rate-limiting requests; try again shortly"
	case StatusNotFound:
		return "the calendar event no longer exists"
	case StatusConflict:
		return "the calendar reported a resource conflict"
	case StatusGone:
		return "the calendar event was already removed"
	case StatusUnavailable:
		return "the calendar service is unreachable"
	default:
		return "the calendar service returned an unexpected error"
	}
}

// Transient reports whether a bounded retry at the boundary may help.
func (c StatusClass) Transient() bool {
	return c == StatusUnavailable || c == StatusRateLimited
}

// ClassForHTTPStatus maps an external status code onto the taxonomy.
func ClassForHTTPStatus(code int) StatusClass {
	switch {
	case code == 400:
		return StatusInvalid
	case code == 401:
		return StatusAuthExpired
	case code == 403, code == 429:
		return StatusRateLimited
	case code == 404:
		return StatusNotFound
	case code == 409:
		return StatusConflict
	case code == 410:
		return StatusGone
	case code >= 500:
		return StatusUnavailable
	default:
		return StatusGeneric
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// ErrExternal is the root of every external calendar failure.
var ErrExternal = errors.New("external calendar error")

// Error is a classified external failure.
type Error struct {
	Class   StatusClass
	Op      string // "create", "get", "patch", "delete"
	Message string // raw detail from the external system
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("calendar %s: %s", e.Op, e.Class.Reason())
	}
	return fmt.Sprintf("calendar %s: %s (%s)", e.Op, e.Class.Reason(), e.Message)
}

func (e *Error) Unwrap() error { return ErrExternal }

// ClassOf extracts the status class, StatusGeneric for foreign errors.
func ClassOf(err error) StatusClass {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return StatusGeneric
}

// IsMissing reports whether the error means the event is already gone.
// Delete paths treat this as success.
func IsMissing(err error) bool {
	c := ClassOf(err)
	return c == StatusNotFound || c == StatusGone
}
