/*
calculator.go - Day-by-day leave usage calculation

PURPOSE:
  Converts a leave request's date/time range into the fractional number of
  leave-days it consumes, together with an audit trail of every exclusion
  applied (weekends, full-day holidays, lunch, partial holidays).

ALGORITHM (per calendar day of the request):
  1. Weekend               -> 0, "weekend excluded"
  2. Full-day holiday      -> 0, "full holiday excluded"
     (anniversary holidays do not bind overseas-assigned staff)
  3. Effective window: the request's own instants on its first/last day,
     the classification work window on interior days
  4. Window entirely inside lunch -> 0, "lunch-only excluded"
  5. Base minutes = window size; minus 60 when lunch is fully contained;
     capped at one working day (all-day rows are stored 00:00-23:59)
  6. Partial holidays touching the day are clipped to the work window and
     the effective window, split around lunch, merged, and the union is
     subtracted (floored at 0)

  usedDays = totalMinutes / 60 / 8. Exact decimal arithmetic throughout.

ZERO RESULT:
  The calculator returns zero freely; rejecting a deductible request that
  computes to zero is the validator's job.

SEE ALSO:
  - schedule/intervals.go: clip/split/merge
  - adjuster.go: recalculation after new holidays
*/
package leave

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// SPAN - The calculator's input range
// =============================================================================

// Span is a date/time range in civil time. For all-day requests the times
// cover the whole day.
type Span struct {
	StartDate Date
	StartTime schedule.Minute
	EndDate   Date
	EndTime   schedule.Minute
}

// SpanOf extracts a record's span.
func SpanOf(rec *Record) Span {
	return Span{
		StartDate: rec.StartDate,
		StartTime: rec.StartTime,
		EndDate:   rec.EndDate,
		EndTime:   rec.EndTime,
	}
}

func (s Span) Range() DateRange { return DateRange{Start: s.StartDate, End: s.EndDate} }

// =============================================================================
// USAGE - Calculation result
// =============================================================================

// Usage is the computed consumption plus its audit trail.
type Usage struct {
	Days    decimal.Decimal
	Comment string
}

var (
	minutesPerHour = decimal.NewFromInt(60)
	hoursPerDay    = decimal.NewFromInt(8)
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes leave usage against the holiday records in the store.
type Calculator struct {
	store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// Calculate converts the span into consumed days for a member of the given
// classification. Reads full-day and partial holidays intersecting the span.
func (c *Calculator) Calculate(ctx context.Context, span Span, member *Member) (Usage, error) {
	fullDays, err := c.store.FindFullDayHolidaysOverlapping(ctx, span.Range())
	if err != nil {
		return Usage{}, err
	}
	partials, err := c.store.FindPartialHolidaysOverlapping(ctx, span.Range())
	if err != nil {
		return Usage{}, err
	}
	return computeUsage(span, member, fullDays, partials), nil
}

// CalculateRecord recomputes usage for an existing record.
func (c *Calculator) CalculateRecord(ctx context.Context, rec *Record, member *Member) (Usage, error) {
	return c.Calculate(ctx, SpanOf(rec), member)
}

// computeUsage is the pure core; holidays are passed in so the adjuster and
// tests can drive it without a store.
func computeUsage(span Span, member *Member, fullDays, partials []*Record) Usage {
	policy := schedule.PolicyFor(member.Classification)

	totalMinutes := 0
	var trail []string

	for d := span.StartDate; d.BeforeOrEqual(span.EndDate); d = d.AddDays(1) {
		// 1) Weekends never consume leave.
		if d.IsWeekend() {
			trail = append(trail, fmt.Sprintf("%s weekend excluded", d))
			continue
		}

		// 2) Full-day holidays block the whole day. Anniversary days do
		// not bind overseas-assigned staff.
		if h := coveringFullDayHoliday(d, member, fullDays); h != nil {
			trail = append(trail, fmt.Sprintf("%s full holiday excluded (%s)", d, h.Title))
			continue
		}

		// 3) Effective window for this day.
		window := schedule.Interval{Start: policy.WorkStart, End: policy.WorkEnd}
		if d.Equal(span.StartDate) {
			window.Start = span.StartTime
		}
		if d.Equal(span.EndDate) {
			window.End = span.EndTime
		}
		if window.Empty() {
			continue
		}

		// 4) A range living entirely inside lunch costs nothing.
		if policy.LunchOnly(window.Start, window.End) {
			trail = append(trail, fmt.Sprintf("%s lunch-only excluded", d))
			continue
		}

		// 5) Base minutes, minus lunch, capped at one working day. The cap
		// handles all-day rows stored as 00:00-23:59.
		minutes := window.Minutes()
		if policy.ContainsLunch(window.Start, window.End) {
			minutes -= int(policy.LunchEnd - policy.LunchStart)
		}
		if minutes > policy.WorkMinutes() {
			minutes = policy.WorkMinutes()
		}

		// 6) Subtract the union of partial holidays touching this day.
		excluded := partialOverlapMinutes(d, window, policy, member, partials)
		if excluded > 0 {
			trail = append(trail, fmt.Sprintf("%s %d minutes excluded for partial holiday", d, excluded))
		}
		minutes -= excluded
		if minutes < 0 {
			minutes = 0
		}

		totalMinutes += minutes
	}

	days := decimal.NewFromInt(int64(totalMinutes)).
		Div(minutesPerHour).
		Div(hoursPerDay)

	return Usage{Days: days, Comment: strings.TrimSpace(strings.Join(trail, "; "))}
}

// coveringFullDayHoliday returns the first full-day holiday covering d that
// applies to the member, or nil.
func coveringFullDayHoliday(d Date, member *Member, holidays []*Record) *Record {
	for _, h := range holidays {
		if h.Type == TypeAnniversary && member.ExemptFromAnniversary() {
			continue
		}
		if h.Range().Contains(d) {
			return h
		}
	}
	return nil
}

// partialOverlapMinutes computes the size of the union of partial-holiday
// intervals on day d, clipped to both the work window and the request's
// effective window, with the lunch hour carved out (the base calculation
// already subtracted it).
func partialOverlapMinutes(d Date, window schedule.Interval, policy schedule.Policy, member *Member, partials []*Record) int {
	var pieces []schedule.Interval
	for _, p := range partials {
		if p.Type == TypeAnniversary && member.ExemptFromAnniversary() {
			continue
		}
		if !p.Range().Contains(d) {
			continue
		}
		iv := p.windowOn(d).
			Clip(policy.WorkStart, policy.WorkEnd).
			Clip(window.Start, window.End)
		pieces = append(pieces, iv.SplitAround(policy.LunchStart, policy.LunchEnd)...)
	}
	return schedule.TotalMinutes(schedule.Merge(pieces))
}
