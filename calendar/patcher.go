/*
patcher.go - Minimal diff between ledger state and the external event

PURPOSE:
  Updates patch the external mirror only when something actually changed.
  The patcher compares the desired event (built from the ledger record)
  against the current external state field by field and reports whether a
  patch is needed at all. Blind patches would burn external quota and
  reset fields other tools may have touched.

DIFF RULES:
  - title/description: patched when the desired value is non-empty and
    differs from the external value
  - all-day flag and the start/end pair: compared as a unit; a change to
    any of the three rewrites both boundaries

SEE ALSO:
  - sync.go: Update flow (get -> diff -> patch)
*/
package calendar

// ApplyChanges overlays the desired event onto current, returning the
// merged event and whether anything changed.
func ApplyChanges(current, desired Event) (Event, bool) {
	changed := false

	if desired.Title != "" && desired.Title != current.Title {
		current.Title = desired.Title
		changed = true
	}
	if desired.Description != "" && desired.Description != current.Description {
		current.Description = desired.Description
		changed = true
	}
	if timingDiffers(current, desired) {
		current.AllDay = desired.AllDay
		current.StartDate, current.StartTime = desired.StartDate, desired.StartTime
		current.EndDate, current.EndTime = desired.EndDate, desired.EndTime
		changed = true
	}

	return current, changed
}

func timingDiffers(current, desired Event) bool {
	if current.AllDay != desired.AllDay {
		return true
	}
	if !current.StartDate.Equal(desired.StartDate) || !current.EndDate.Equal(desired.EndDate) {
		return true
	}
	if current.AllDay {
		// All-day events carry no meaningful clock times.
		return false
	}
	return current.StartTime != desired.StartTime || current.EndTime != desired.EndTime
}
