package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leavebridge/engine/calendar"
	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// DIFF TESTS
// =============================================================================

func TestApplyChanges_Identical_NoChange(t *testing.T) {
	current := timedEvent("vacation")

	merged, changed := calendar.ApplyChanges(current, timedEvent("vacation"))

	assert.False(t, changed)
	assert.Equal(t, current, merged)
}

func TestApplyChanges_TitleAndDescription(t *testing.T) {
	current := timedEvent("vacation")
	desired := timedEvent("trip")
	desired.Description = "two weeks off"

	merged, changed := calendar.ApplyChanges(current, desired)

	assert.True(t, changed)
	assert.Equal(t, "trip", merged.Title)
	assert.Equal(t, "two weeks off", merged.Description)
}

func TestApplyChanges_EmptyDesiredTitle_KeepsCurrent(t *testing.T) {
	// An empty desired title means "nothing to say", not "erase the title".
	current := timedEvent("vacation")
	desired := timedEvent("")

	merged, changed := calendar.ApplyChanges(current, desired)

	assert.False(t, changed)
	assert.Equal(t, "vacation", merged.Title)
}

func TestApplyChanges_TimeShift_RewritesBothBoundaries(t *testing.T) {
	current := timedEvent("vacation")
	desired := timedEvent("vacation")
	desired.StartTime = schedule.MinuteOf(13, 0)

	merged, changed := calendar.ApplyChanges(current, desired)

	assert.True(t, changed)
	assert.Equal(t, schedule.MinuteOf(13, 0), merged.StartTime)
	assert.Equal(t, desired.EndTime, merged.EndTime)
}

func TestApplyChanges_AllDayFlagFlip_IsAChange(t *testing.T) {
	current := timedEvent("vacation")
	desired := timedEvent("vacation")
	desired.AllDay = true

	_, changed := calendar.ApplyChanges(current, desired)

	assert.True(t, changed)
}

func TestApplyChanges_AllDay_ClockTimesIgnored(t *testing.T) {
	// All-day events carry no meaningful clock times; differing times on
	// two all-day events are not a diff.
	day := leave.NewDate(2025, time.March, 10)
	current := calendar.Event{Title: "Founding Day", AllDay: true, StartDate: day, EndDate: day.AddDays(1)}
	desired := current
	desired.StartTime = schedule.MinuteOf(9, 0)

	_, changed := calendar.ApplyChanges(current, desired)

	assert.False(t, changed)
}

func TestApplyChanges_DateShift_IsAChange(t *testing.T) {
	current := timedEvent("vacation")
	desired := timedEvent("vacation")
	desired.EndDate = desired.EndDate.AddDays(1)

	merged, changed := calendar.ApplyChanges(current, desired)

	assert.True(t, changed)
	assert.Equal(t, desired.EndDate, merged.EndDate)
}
