/*
validator.go - Creation/update state-transition rules

PURPOSE:
  Enforces every business rule that must hold before the engine touches
  the ledger or the external calendar. All rejections here are local: a
  failed validation never leaves partial state anywhere.

RULES:
  Create (leave path):
    - deductible types must not start on a weekend or a full-day holiday
    - computed usage of zero is rejected (checked by the service after
      calculation, via CheckUsage)
  Create (holiday path): administrators only.
  Update:
    - the holiday flag never flips
    - a type change never crosses the deductible/non-deductible class
    - holiday records' date/time range is immutable (delete and recreate)
  Authorization:
    - owner or admin for plain leave records
    - admin only for holiday rows and marker types
    - non-member ("other person") records are immutable by anyone

SEE ALSO:
  - request.go: normalization that runs before these checks
  - service.go: the caller that sequences validate -> calculate -> sync
*/
package leave

import "context"

// =============================================================================
// VALIDATOR
// =============================================================================

type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// =============================================================================
// CREATE
// =============================================================================

// ValidateCreate checks a normalized create request. For deductible types
// the start day must be a working day; that is checked here, before any
// calculation or external call.
func (v *Validator) ValidateCreate(ctx context.Context, req *CreateRequest, actor *Member) error {
	if err := validateSpan(req.Span()); err != nil {
		return err
	}

	if req.IsHolidayPath() || req.Type.Marker() {
		if !actor.Admin {
			return validationErr("admin_only", "only administrators may register %s rows", req.Type.Label())
		}
	}
	if req.Type == TypeOtherPerson && !actor.Admin {
		return validationErr("admin_only", "only administrators may register non-member leave")
	}

	if req.Type.Deductible() {
		start := req.StartDate
		if start.IsWeekend() {
			return validationErr("weekend_start", "%s is a weekend; leave cannot start there", start)
		}
		day := DateRange{Start: start, End: start}
		holidays, err := v.store.FindFullDayHolidaysOverlapping(ctx, day)
		if err != nil {
			return err
		}
		if h := coveringFullDayHoliday(start, actor, holidays); h != nil {
			return validationErr("holiday_start", "%s is a full-day holiday (%s); leave cannot start there", start, h.Title)
		}
	}
	return nil
}

// CheckUsage rejects deductible requests whose computed usage is zero.
func (v *Validator) CheckUsage(t Type, usage Usage) error {
	if t.Deductible() && usage.Days.IsZero() {
		return validationErr("zero_usage", "the requested range consumes no leave: %s", nonEmpty(usage.Comment, "empty working window"))
	}
	return nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// ValidateUpdate checks a patch against the stored record.
func (v *Validator) ValidateUpdate(existing, patched *Record, actor *Member) error {
	if err := v.authorize(existing, actor); err != nil {
		return err
	}
	if !patched.Type.Valid() {
		return validationErr("unknown_type", "unknown leave type %q", patched.Type)
	}
	if existing.Type.Deductible() != patched.Type.Deductible() {
		return validationErr("type_class_change",
			"cannot change %s to %s: a record never crosses the deductible class",
			existing.Type.Label(), patched.Type.Label())
	}
	if existing.Type.Marker() != patched.Type.Marker() {
		return validationErr("type_class_change",
			"cannot change %s to %s: holiday marker status is immutable",
			existing.Type.Label(), patched.Type.Label())
	}
	if existing.Holiday {
		if existing.StartDate != patched.StartDate || existing.EndDate != patched.EndDate ||
			existing.StartTime != patched.StartTime || existing.EndTime != patched.EndTime {
			return validationErr("holiday_range_immutable",
				"holiday ranges never change; delete and recreate the holiday")
		}
	}
	return validateSpan(SpanOf(patched))
}

// ValidateDelete checks that the actor may remove the record.
func (v *Validator) ValidateDelete(existing *Record, actor *Member) error {
	return v.authorize(existing, actor)
}

// authorize applies the ownership rules shared by update and delete.
func (v *Validator) authorize(rec *Record, actor *Member) error {
	if rec.Type == TypeOtherPerson {
		return validationErr("immutable_record", "non-member records cannot be modified")
	}
	if rec.Holiday || rec.Type.Marker() {
		if !actor.Admin {
			return validationErr("admin_only", "only administrators may touch %s rows", rec.Type.Label())
		}
		return nil
	}
	if rec.OwnerID != actor.ID && !actor.Admin {
		return validationErr("not_owner", "only the owner or an administrator may modify this record")
	}
	return nil
}

// =============================================================================
// SHARED CHECKS
// =============================================================================

func validateSpan(s Span) error {
	if s.EndDate.Before(s.StartDate) {
		return validationErr("range_order", "start date %s is after end date %s", s.StartDate, s.EndDate)
	}
	if s.StartDate.Equal(s.EndDate) && s.EndTime <= s.StartTime {
		return validationErr("range_order", "end time %s must be after start time %s", s.EndTime, s.StartTime)
	}
	return nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
