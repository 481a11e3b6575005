/*
request.go - Create/patch request shapes and type-driven normalization

PURPOSE:
  The raw request a client submits is rarely what gets stored: a full-day
  leave snaps to the work window, a half-day snaps to its half, an outing
  is clipped into the work window. Normalization happens here, before
  validation and calculation, so every later step sees canonical times.
  Patches go through the same snapping: changing a record's type re-derives
  its window, it never inherits the previous type's stored times.

NORMALIZATION RULES (by leave type, per classification work window):
  full-day leave, summer vacation  -> work window, all-day
  morning half-day                 -> work start .. half-day boundary
  afternoon half-day               -> half-day boundary .. work end
  outing                           -> times required, clipped to window;
                                      a full-window outing becomes all-day
  marker types (holiday et al.)    -> holiday-include flag required
  anything all-day without times   -> 00:00 .. 23:59

SEE ALSO:
  - validator.go: rules enforced after normalization
  - schedule/policy.go: the per-classification window table
*/
package leave

import (
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// REQUEST SHAPES
// =============================================================================

// CreateRequest is a request to register a leave or holiday.
type CreateRequest struct {
	Title       string
	Description string
	Type        Type
	AllDay      bool

	StartDate Date
	EndDate   Date
	StartTime *schedule.Minute
	EndTime   *schedule.Minute

	// HolidayInclude routes marker types: true registers an
	// organization-wide non-working day, false a plain marker row.
	// Required for marker types, ignored otherwise.
	HolidayInclude *bool
}

// PatchRequest mutates an existing record. Identity is carried separately;
// nil fields are left unchanged. Type is required so the deductible class
// can be checked against the stored record.
type PatchRequest struct {
	Title       *string
	Description *string
	Type        Type
	AllDay      *bool

	StartDate *Date
	EndDate   *Date
	StartTime *schedule.Minute
	EndTime   *schedule.Minute

	HolidayInclude *bool
}

// allDayEnd is the stored end time of all-day rows (00:00-23:59).
var allDayEnd = schedule.MinuteOf(23, 59)

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize snaps the request's times to the canonical window for its type
// and the member's classification. Returns a ValidationError when the type
// requires inputs the request lacks.
func (req *CreateRequest) Normalize(member *Member) error {
	if !req.Type.Valid() {
		return validationErr("unknown_type", "unknown leave type %q", req.Type)
	}

	policy := schedule.PolicyFor(member.Classification)

	switch req.Type {
	case TypeFullDayLeave, TypeSummerVacation:
		req.setTimes(policy.WorkStart, policy.WorkEnd)
		req.AllDay = true

	case TypeHalfDayMorning:
		req.setTimes(policy.WorkStart, policy.HalfDayBoundary)
		req.AllDay = false

	case TypeHalfDayAfternoon:
		req.setTimes(policy.HalfDayBoundary, policy.WorkEnd)
		req.AllDay = false

	case TypeOuting:
		if req.StartTime == nil || req.EndTime == nil {
			return validationErr("outing_times_required", "an outing needs explicit start and end times")
		}
		start, end := *req.StartTime, *req.EndTime
		if start <= policy.WorkStart {
			start = policy.WorkStart
		}
		if end >= policy.WorkEnd {
			end = policy.WorkEnd
		}
		req.setTimes(start, end)
		req.AllDay = start == policy.WorkStart && end == policy.WorkEnd

	default:
		if req.Type.Marker() && req.HolidayInclude == nil {
			return validationErr("holiday_include_required",
				"%s rows must state whether they count as a holiday", req.Type.Label())
		}
		if req.AllDay {
			req.fillAllDayTimes()
		}
	}

	// All-day deductible rows still bill the work window, not the clock day.
	if req.AllDay && req.Type.Deductible() {
		req.setTimes(policy.WorkStart, policy.WorkEnd)
	}
	if req.StartTime == nil || req.EndTime == nil {
		req.fillAllDayTimes()
		req.AllDay = true
	}
	return nil
}

func (req *CreateRequest) setTimes(start, end schedule.Minute) {
	req.StartTime = &start
	req.EndTime = &end
}

func (req *CreateRequest) fillAllDayTimes() {
	if req.StartTime == nil {
		start := schedule.Midnight
		req.StartTime = &start
	}
	if req.EndTime == nil {
		end := allDayEnd
		req.EndTime = &end
	}
}

// Span returns the normalized span. Call after Normalize.
func (req *CreateRequest) Span() Span {
	return Span{
		StartDate: req.StartDate,
		StartTime: *req.StartTime,
		EndDate:   req.EndDate,
		EndTime:   *req.EndTime,
	}
}

// IsHolidayPath reports whether the request registers an organization-wide
// non-working day (administrator path).
func (req *CreateRequest) IsHolidayPath() bool {
	return req.Type.Marker() && req.HolidayInclude != nil && *req.HolidayInclude
}

// normalizePatched snaps a patched record's times to the canonical window
// for its (possibly changed) type, the same way Normalize snaps a create
// request. A stored record always carries times, so the outing branch
// clips instead of demanding inputs.
func normalizePatched(rec *Record, owner *Member) {
	policy := schedule.PolicyFor(owner.Classification)

	switch rec.Type {
	case TypeFullDayLeave, TypeSummerVacation:
		rec.StartTime, rec.EndTime = policy.WorkStart, policy.WorkEnd
		rec.AllDay = true

	case TypeHalfDayMorning:
		rec.StartTime, rec.EndTime = policy.WorkStart, policy.HalfDayBoundary
		rec.AllDay = false

	case TypeHalfDayAfternoon:
		rec.StartTime, rec.EndTime = policy.HalfDayBoundary, policy.WorkEnd
		rec.AllDay = false

	case TypeOuting:
		start, end := rec.StartTime, rec.EndTime
		if start <= policy.WorkStart {
			start = policy.WorkStart
		}
		if end >= policy.WorkEnd {
			end = policy.WorkEnd
		}
		rec.StartTime, rec.EndTime = start, end
		rec.AllDay = start == policy.WorkStart && end == policy.WorkEnd
	}

	if rec.AllDay && rec.Type.Deductible() {
		rec.StartTime, rec.EndTime = policy.WorkStart, policy.WorkEnd
	}
}

// Apply copies the patch onto a working copy of the record, returning the
// patched record. The original is left untouched so the validator can
// compare before/after.
func (p *PatchRequest) Apply(rec *Record) *Record {
	next := *rec
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Type != "" {
		next.Type = p.Type
	}
	if p.AllDay != nil {
		next.AllDay = *p.AllDay
	}
	if p.StartDate != nil {
		next.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		next.EndDate = *p.EndDate
	}
	if p.StartTime != nil {
		next.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		next.EndTime = *p.EndTime
	}
	return &next
}
