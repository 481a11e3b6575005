/*
adjuster.go - Retroactive correction when a holiday lands on booked leave

PURPOSE:
  A newly declared holiday changes history: leave already booked across
  the holiday's window was charged for minutes that are now free. The
  adjuster walks every deductible record intersecting the holiday and
  either deletes it (the holiday swallows it whole) or recalculates its
  usage (partial overlap).

RULES:
  - Overseas-assigned owners skip anniversary holidays entirely.
  - Containment is judged day by day: the leave's effective window on
    every overlapping day must sit inside the holiday's window for that
    day, missing boundaries meaning the full day.
  - A swallowed record's external mirror is deleted best-effort; a stale
    mirror never blocks the ledger correction.
  - Removing a holiday reruns calculation for what it used to exclude.

SEE ALSO:
  - calculator.go: recalculation
  - service.go: lock ordering (the adjuster runs under the global lock)
*/
package leave

import (
	"context"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// ADJUSTER
// =============================================================================

type Adjuster struct {
	store      Store
	members    MemberStore
	calculator *Calculator
	mirror     Mirror
	log        *logrus.Entry
}

func NewAdjuster(store Store, members MemberStore, calculator *Calculator, mirror Mirror) *Adjuster {
	return &Adjuster{
		store:      store,
		members:    members,
		calculator: calculator,
		mirror:     mirror,
		log:        logrus.WithField("component", "overlap-adjuster"),
	}
}

// AdjustLocked corrects all deductible leave intersecting the holiday.
// The caller holds the global mutation lock.
func (a *Adjuster) AdjustLocked(ctx context.Context, holiday *Record) error {
	overlapped, err := a.store.FindDeductibleOverlapping(ctx, holiday.Range())
	if err != nil {
		return err
	}

	for _, rec := range overlapped {
		owner, err := a.members.FindMember(ctx, rec.OwnerID)
		if err != nil {
			return err
		}

		// Overseas staff work through anniversary days; their leave
		// stands exactly as booked.
		if holiday.Type == TypeAnniversary && owner.ExemptFromAnniversary() {
			continue
		}

		if swallowedBy(rec, holiday) {
			if err := a.deleteSwallowed(ctx, rec); err != nil {
				return err
			}
			continue
		}

		if err := a.recalculate(ctx, rec, owner); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateAfterHolidayRemoval reruns usage for every deductible record
// the removed holiday used to intersect.
func (a *Adjuster) RecalculateAfterHolidayRemoval(ctx context.Context, removed *Record) error {
	overlapped, err := a.store.FindDeductibleOverlapping(ctx, removed.Range())
	if err != nil {
		return err
	}
	for _, rec := range overlapped {
		owner, err := a.members.FindMember(ctx, rec.OwnerID)
		if err != nil {
			return err
		}
		if err := a.recalculate(ctx, rec, owner); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// swallowedBy reports whether every day of the leave lies inside the
// holiday's window for that day. Days outside the holiday's date range,
// or minutes outside its window, mean the leave survives.
func swallowedBy(rec, holiday *Record) bool {
	for d := rec.StartDate; d.BeforeOrEqual(rec.EndDate); d = d.AddDays(1) {
		if !holiday.Range().Contains(d) {
			return false
		}
		lw := rec.windowOn(d)
		hw := holiday.windowOn(d)
		if lw.Start < hw.Start || lw.End > hw.End {
			return false
		}
	}
	return true
}

func (a *Adjuster) deleteSwallowed(ctx context.Context, rec *Record) error {
	if err := a.store.Delete(ctx, rec.ID); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"record": rec.ID,
		"owner":  rec.OwnerID,
	}).Info("leave fully covered by new holiday, removed")

	// Best effort: the mirror may already be gone, and a failure here
	// must not undo the ledger correction.
	if rec.Mirrored() {
		if err := a.mirror.Delete(ctx, rec.ExternalEventID); err != nil {
			a.log.WithError(err).WithField("record", rec.ID).
				Warn("mirror delete failed for swallowed leave")
		}
	}
	return nil
}

func (a *Adjuster) recalculate(ctx context.Context, rec *Record, owner *Member) error {
	usage, err := a.calculator.CalculateRecord(ctx, rec, owner)
	if err != nil {
		return err
	}
	if rec.UsedLeaveDays.Equal(usage.Days) && rec.Comment == usage.Comment {
		return nil
	}
	rec.UsedLeaveDays = usage.Days
	rec.Comment = usage.Comment
	if err := a.store.Save(ctx, rec); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"record": rec.ID,
		"owner":  rec.OwnerID,
		"days":   usage.Days,
	}).Info("leave usage recalculated after holiday change")
	return nil
}
