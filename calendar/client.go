/*
Package calendar keeps the leave ledger and an external calendar in step.

PURPOSE:
  Every record owned by a mirrored member also lives as an event in an
  external calendar service. The two systems share no transaction, so this
  package implements the compensating patterns that keep them consistent
  despite partial failures: create-then-compensate, diff-then-patch, and
  idempotent delete.

KEY CONCEPTS:
  - Client (this file): the minimal external API surface.
  - Event: the wire shape pushed to and read from the external system.
  - StatusClass (errors.go): the failure taxonomy - rate-limited, expired
    auth, not-found and friends get distinct user-facing reasons.
  - Syncer (sync.go): the compensating-transaction wrapper.
  - Patcher (patcher.go): computes a minimal diff before patching.

SEE ALSO:
  - leave/service.go: the only caller of Syncer
*/
package calendar

import (
	"context"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// EVENT - External wire shape
// =============================================================================

// Event is the external calendar's view of one record. All-day events
// carry dates only; timed events carry civil date+time pairs.
type Event struct {
	Title       string
	Description string
	AllDay      bool

	StartDate leave.Date
	StartTime schedule.Minute
	EndDate   leave.Date
	EndTime   schedule.Minute
}

// EventOf builds the external event for a ledger record. The external
// system treats all-day ends as exclusive, so the end date is bumped one
// day for all-day events.
func EventOf(rec *leave.Record) Event {
	ev := Event{
		Title:       rec.Title,
		Description: rec.Description,
		AllDay:      rec.AllDay,
		StartDate:   rec.StartDate,
		StartTime:   rec.StartTime,
		EndDate:     rec.EndDate,
		EndTime:     rec.EndTime,
	}
	if ev.AllDay {
		ev.StartTime = schedule.Midnight
		ev.EndDate = rec.EndDate.AddDays(1)
		ev.EndTime = schedule.Midnight
	}
	return ev
}

// =============================================================================
// CLIENT - External API surface
// =============================================================================

// ListedEvent pairs an external event with its id, for list responses.
type ListedEvent struct {
	ID    string
	Event Event
}

// Client is the external calendar API. Errors returned by implementations
// should be *Error values so callers can branch on the status class.
type Client interface {
	// Create inserts the event and returns its external id.
	Create(ctx context.Context, ev Event) (string, error)

	// Get fetches the current event state.
	Get(ctx context.Context, externalID string) (Event, error)

	// List returns the events starting within the inclusive date range.
	List(ctx context.Context, from, to leave.Date) ([]ListedEvent, error)

	// Patch applies the event's fields to the stored event.
	Patch(ctx context.Context, externalID string, ev Event) error

	// Delete removes the event. Implementations return a not-found or
	// gone Error when the event no longer exists; the Syncer treats
	// those as success.
	Delete(ctx context.Context, externalID string) error
}
