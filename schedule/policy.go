/*
Package schedule provides the work-schedule rules for leave accounting.

PURPOSE:
  Everything in leave accounting is measured against a work window: the
  classification-specific start/end of a working day, the fixed lunch
  window, and the half-day boundary used for morning/afternoon half leave.
  This package is the single source of those rules.

KEY CONCEPTS:
  - Classification: employee grouping (domestic vs. overseas assignment)
    that selects a work window. The overseas assignment also exempts the
    holder from anniversary-type holidays, but that rule lives in the
    leave package; here a classification is just a key into the table.
  - Window: a half-open [Start, End) time-of-day range expressed in
    minutes since midnight. Civil time only - the organization runs in a
    single timezone and no offsets are ever stored.
  - IntervalMerger (intervals.go): collapses overlapping per-day holiday
    intervals so excluded minutes are never double-counted.

DESIGN:
  Pure data and pure functions. No clock reads, no I/O, no failure modes.
  The per-classification lookup was consolidated into one table rather
  than boolean branching scattered through callers.

SEE ALSO:
  - intervals.go: Interval algebra used by the usage calculator
  - leave/calculator.go: The consumer of these rules
*/
package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// CLASSIFICATION - Which work window applies to an employee
// =============================================================================

type Classification string

const (
	// ClassDomestic covers regular staff working the home-office window.
	ClassDomestic Classification = "domestic"

	// ClassOverseas covers staff on overseas assignment. They work a
	// shifted window and are not bound by anniversary-type holidays.
	ClassOverseas Classification = "overseas"
)

// =============================================================================
// MINUTE - Time of day in minutes since midnight
// =============================================================================

// Minute is a time of day expressed as minutes since midnight.
// 24:00 (EndOfDay) is a valid exclusive upper bound.
type Minute int

const (
	Midnight Minute = 0
	Noon     Minute = 12 * 60
	EndOfDay Minute = 24 * 60
)

// MinuteOf converts a clock time to minutes since midnight.
func MinuteOf(hour, min int) Minute { return Minute(hour*60 + min) }

// FromClock converts a time.Time's clock reading to a Minute.
func FromClock(t time.Time) Minute { return MinuteOf(t.Hour(), t.Minute()) }

func (m Minute) Hour() int      { return int(m) / 60 }
func (m Minute) Min() int       { return int(m) % 60 }
func (m Minute) String() string { return fmt.Sprintf("%02d:%02d", m.Hour(), m.Min()) }

// =============================================================================
// WORK SCHEDULE POLICY - Classification-keyed work window table
// =============================================================================

// Policy describes the working day for one classification.
type Policy struct {
	WorkStart       Minute
	WorkEnd         Minute
	HalfDayBoundary Minute // Morning half ends here; afternoon half starts here
	LunchStart      Minute
	LunchEnd        Minute
}

// Lunch runs noon to 13:00 for every classification.
const (
	LunchStart = Noon
	LunchEnd   = Minute(13 * 60)
)

var policies = map[Classification]Policy{
	ClassDomestic: {
		WorkStart:       MinuteOf(8, 0),
		WorkEnd:         MinuteOf(17, 0),
		HalfDayBoundary: MinuteOf(13, 0),
		LunchStart:      LunchStart,
		LunchEnd:        LunchEnd,
	},
	ClassOverseas: {
		WorkStart:       MinuteOf(9, 0),
		WorkEnd:         MinuteOf(18, 0),
		HalfDayBoundary: MinuteOf(14, 0),
		LunchStart:      LunchStart,
		LunchEnd:        LunchEnd,
	},
}

// PolicyFor resolves the work schedule for a classification.
// Unknown classifications fall back to the domestic window.
func PolicyFor(c Classification) Policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policies[ClassDomestic]
}

// WorkMinutes returns the length of the working day excluding lunch.
func (p Policy) WorkMinutes() int {
	return int(p.WorkEnd-p.WorkStart) - int(p.LunchEnd-p.LunchStart)
}

// ContainsLunch reports whether [start, end] fully covers the lunch window.
func (p Policy) ContainsLunch(start, end Minute) bool {
	return start <= p.LunchStart && end >= p.LunchEnd
}

// LunchOnly reports whether [start, end] lies entirely within lunch.
func (p Policy) LunchOnly(start, end Minute) bool {
	return start >= p.LunchStart && end <= p.LunchEnd
}
