/*
Package leave implements the leave accounting engine.

PURPOSE:
  Converts date/time ranges into fractional consumed leave-days, enforces
  the creation/update rules of the ledger, retroactively corrects recorded
  leave when a new holiday lands on it, and keeps the ledger consistent
  with the external calendar mirror through compensating sync.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: the closed set of leave/holiday classifications. All behavior
    keys off two static flags: Deductible (reduces the annual balance)
    and Marker (admin-only organization-wide day).
  - Record: one ledger row - a personal leave, an organization holiday,
    or a third-party event mirrored from the external calendar.
  - Member: the owning employee view the engine needs (admin flag and
    work-schedule classification only).

DESIGN PRINCIPLES:
  1. Closed enumeration: no inheritance, one switch in the request
     normalization step is the only per-type branching.
  2. Precision: decimal.Decimal for day fractions, never float math.
  3. Civil time: dates and times are local to the organization's single
     timezone; no offsets are stored.

SEE ALSO:
  - calculator.go: usage calculation
  - validator.go:  state-transition rules
  - adjuster.go:   holiday overlap correction
  - service.go:    orchestration and serialization
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// LEAVE TYPE - Closed tagged set
// =============================================================================

type Type string

const (
	TypePublicHoliday    Type = "public_holiday"     // Organization-wide rest day
	TypeNationalHoliday  Type = "national_holiday"   // National celebration day
	TypeSolarTerm        Type = "solar_term"         // Solar-term marker (informational)
	TypeSundryDay        Type = "sundry_day"         // Folk-day marker (informational)
	TypeAnniversary      Type = "anniversary"        // Anniversary; overseas staff exempt
	TypeFullDayLeave     Type = "full_day_leave"     // One full working day
	TypeHalfDayMorning   Type = "half_day_morning"   // Work start to half-day boundary
	TypeHalfDayAfternoon Type = "half_day_afternoon" // Half-day boundary to work end
	TypeOuting           Type = "outing"             // Sub-day absence, explicit times
	TypeSummerVacation   Type = "summer_vacation"    // Full working days, summer grant
	TypeOtherPerson      Type = "other_person"       // Non-member event, immutable
	TypeNonDeductible    Type = "non_deductible"     // Sick/official leave, not charged
	TypeMeeting          Type = "meeting"            // Meeting block, not charged
)

type typeInfo struct {
	Label      string
	Deductible bool // charges the owner's annual balance
	Marker     bool // admin-only organization-wide day type
}

var typeTable = map[Type]typeInfo{
	TypePublicHoliday:    {Label: "public holiday", Marker: true},
	TypeNationalHoliday:  {Label: "national holiday", Marker: true},
	TypeSolarTerm:        {Label: "solar term", Marker: true},
	TypeSundryDay:        {Label: "sundry day", Marker: true},
	TypeAnniversary:      {Label: "anniversary", Marker: true},
	TypeFullDayLeave:     {Label: "full-day leave", Deductible: true},
	TypeHalfDayMorning:   {Label: "morning half-day", Deductible: true},
	TypeHalfDayAfternoon: {Label: "afternoon half-day", Deductible: true},
	TypeOuting:           {Label: "outing", Deductible: true},
	TypeSummerVacation:   {Label: "summer vacation", Deductible: true},
	TypeOtherPerson:      {Label: "non-member leave"},
	TypeNonDeductible:    {Label: "non-deductible leave"},
	TypeMeeting:          {Label: "meeting"},
}

// Valid reports whether t is a member of the closed set.
func (t Type) Valid() bool { _, ok := typeTable[t]; return ok }

// Deductible reports whether this type charges the annual balance.
func (t Type) Deductible() bool { return typeTable[t].Deductible }

// Marker reports whether this is an admin-only organization-wide day type.
func (t Type) Marker() bool { return typeTable[t].Marker }

// Label returns the human-readable name used in descriptions and comments.
func (t Type) Label() string {
	if info, ok := typeTable[t]; ok {
		return info.Label
	}
	return string(t)
}

// =============================================================================
// DATE - Civil date helpers
// =============================================================================

// Date is a civil calendar date in the organization timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// Normalize through time.Date so Feb 30 etc. roll over predictably.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func DateOf(t time.Time) Date { return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()} }

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date       { return DateOf(d.time().AddDate(0, 0, n)) }
func (d Date) Before(o Date) bool       { return d.time().Before(o.time()) }
func (d Date) After(o Date) bool        { return d.time().After(o.time()) }
func (d Date) Equal(o Date) bool        { return d == o }
func (d Date) Weekday() time.Weekday    { return d.time().Weekday() }
func (d Date) IsWeekend() bool          { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) String() string           { return d.time().Format("2006-01-02") }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateRange is an inclusive [Start, End] span of civil dates.
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d Date) bool { return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End) }

// Intersects reports whether two inclusive ranges share at least one day.
func (r DateRange) Intersects(o DateRange) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// =============================================================================
// RECORD - One ledger row
// =============================================================================

type RecordID int64

type Record struct {
	ID          RecordID
	Title       string
	Description string

	StartDate Date
	StartTime schedule.Minute
	EndDate   Date
	EndTime   schedule.Minute
	AllDay    bool

	// OwnerID is the owning employee. Holiday rows authored by batch jobs
	// carry the configured admin owner rather than a real member.
	OwnerID int64

	Type Type

	// Holiday marks an organization-wide non-working day rather than
	// personal leave. Immutable after creation, as is the deductible
	// class of Type.
	Holiday bool

	// ExternalEventID is set at most once, when the record is mirrored in
	// the external calendar. Empty means the record is never pushed.
	ExternalEventID string

	// UsedLeaveDays is meaningful only when Type.Deductible(); otherwise
	// it is treated as zero.
	UsedLeaveDays decimal.Decimal

	// Comment is the audit trail of exclusions applied during calculation.
	Comment string
}

// Range returns the record's inclusive date span.
func (rec *Record) Range() DateRange { return DateRange{Start: rec.StartDate, End: rec.EndDate} }

// UsedDays returns the charged days, zero for non-deductible types.
func (rec *Record) UsedDays() decimal.Decimal {
	if !rec.Type.Deductible() {
		return decimal.Zero
	}
	return rec.UsedLeaveDays
}

// Mirrored reports whether the record has an external calendar mirror.
func (rec *Record) Mirrored() bool { return rec.ExternalEventID != "" }

// windowOn returns the record's effective [start, end) minutes on day d,
// treating missing boundaries as the full day. Days strictly inside a
// multi-day record cover the whole day.
func (rec *Record) windowOn(d Date) schedule.Interval {
	iv := schedule.Interval{Start: schedule.Midnight, End: schedule.EndOfDay}
	if rec.AllDay {
		return iv
	}
	if d.Equal(rec.StartDate) {
		iv.Start = rec.StartTime
	}
	if d.Equal(rec.EndDate) {
		iv.End = rec.EndTime
	}
	return iv
}

// =============================================================================
// MEMBER - The employee view the engine needs
// =============================================================================

type Member struct {
	ID             int64
	Name           string
	Admin          bool
	Classification schedule.Classification

	// Mirrored selects whether this member's records are pushed to the
	// external calendar. Records of unmirrored members never receive an
	// external event id.
	Mirrored bool
}

// ExemptFromAnniversary reports whether anniversary-type holidays do not
// apply to this member. Overseas-assigned staff keep working through them.
func (m Member) ExemptFromAnniversary() bool {
	return m.Classification == schedule.ClassOverseas
}
