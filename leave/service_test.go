package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/leave/store"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testAdminOwnerID = 99

// failingSaveStore forces ledger commits to fail so the compensating path
// can be exercised.
type failingSaveStore struct {
	*store.Memory
	saveErr error
}

func (f *failingSaveStore) Save(ctx context.Context, rec *leave.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Memory.Save(ctx, rec)
}

func newServiceFixture(t *testing.T) (*leave.Service, *store.Memory, *recordingMirror) {
	t.Helper()
	st := store.NewMemory()
	mirror := &recordingMirror{}
	svc := leave.NewService(st, st, mirror, testAdminOwnerID)
	return svc, st, mirror
}

func fullDayRequest(from, to leave.Date) *leave.CreateRequest {
	return &leave.CreateRequest{
		Title:     "vacation",
		Type:      leave.TypeFullDayLeave,
		StartDate: from,
		EndDate:   to,
	}
}

func holidayRequest(title string, typ leave.Type, day leave.Date) *leave.CreateRequest {
	include := true
	return &leave.CreateRequest{
		Title:          title,
		Type:           typ,
		AllDay:         true,
		StartDate:      day,
		EndDate:        day,
		HolidayInclude: &include,
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestService_Create_FullDay_ComputesUsage(t *testing.T) {
	svc, _, mirror := newServiceFixture(t)

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))

	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.True(t, rec.UsedLeaveDays.Equal(days("1")), "got %s", rec.UsedLeaveDays)
	assert.Empty(t, mirror.created, "unmirrored members never reach the calendar")
	assert.Empty(t, rec.ExternalEventID)
}

func TestService_Create_MirroredMember_GetsExternalEvent(t *testing.T) {
	svc, st, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), actor)

	require.NoError(t, err)
	assert.Equal(t, "evt-1", rec.ExternalEventID)
	assert.Equal(t, []string{"evt-1"}, mirror.created)

	stored, err := st.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", stored.ExternalEventID)
}

func TestService_Create_WeekendStart_RejectedBeforeMirror(t *testing.T) {
	// GIVEN: a mirrored member
	// WHEN: requesting leave that starts on a Saturday
	// THEN: rejection happens before any external call

	svc, _, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true

	_, err := svc.Create(context.Background(), fullDayRequest(saturday, monday), actor)

	assert.ErrorIs(t, err, leave.ErrValidation)
	assert.Zero(t, mirror.nextID, "no external event may exist for a rejected request")
}

func TestService_Create_ZeroUsage_Rejected(t *testing.T) {
	// A lunch-only outing computes to zero and is refused.
	svc, _, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true

	req := &leave.CreateRequest{
		Title:     "lunch errand",
		Type:      leave.TypeOuting,
		StartDate: monday,
		EndDate:   monday,
		StartTime: minutePtr(schedule.MinuteOf(12, 0)),
		EndTime:   minutePtr(schedule.MinuteOf(13, 0)),
	}
	_, err := svc.Create(context.Background(), req, actor)

	assertRule(t, err, "zero_usage")
	assert.Zero(t, mirror.nextID)
}

func TestService_Create_LedgerCommitFails_Compensated(t *testing.T) {
	// GIVEN: a ledger that refuses writes
	// WHEN: a mirrored member creates leave
	// THEN: the external event is compensated away and nothing persists

	mem := store.NewMemory()
	failing := &failingSaveStore{Memory: mem, saveErr: errors.New("disk full")}
	mirror := &recordingMirror{}
	svc := leave.NewService(failing, mem, mirror, testAdminOwnerID)

	actor := domesticMember(1)
	actor.Mirrored = true

	_, err := svc.Create(context.Background(), fullDayRequest(monday, monday), actor)

	require.Error(t, err)
	assert.Equal(t, []string{"evt-1"}, mirror.deleted, "the orphan event must be compensated")
	assert.Empty(t, mirror.created)

	all, err := mem.FindOverlapping(context.Background(), leave.DateRange{Start: monday, End: monday})
	require.NoError(t, err)
	assert.Empty(t, all, "failed creates leave no ledger row behind")
}

// =============================================================================
// HOLIDAY PATH TESTS
// =============================================================================

func TestService_Create_Holiday_AdjustsOverlappedLeave(t *testing.T) {
	// GIVEN: a member with one day of leave booked on Monday
	// WHEN: an admin declares Monday a public holiday
	// THEN: the booked leave is swallowed and removed

	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	booked, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)

	holiday, err := svc.Create(context.Background(),
		holidayRequest("Founding Day", leave.TypePublicHoliday, monday), adminMember(2))
	require.NoError(t, err)

	assert.True(t, holiday.Holiday)
	assert.EqualValues(t, testAdminOwnerID, holiday.OwnerID, "batch holidays carry the configured admin owner")

	_, err = st.FindByID(context.Background(), booked.ID)
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestService_Create_MarkerWithoutHoliday_PlainRow(t *testing.T) {
	// A solar-term marker with the holiday flag off stays informational:
	// leave on that day is still charged.
	svc, _, _ := newServiceFixture(t)

	include := false
	marker, err := svc.Create(context.Background(), &leave.CreateRequest{
		Title:          "Spring Equinox",
		Type:           leave.TypeSolarTerm,
		AllDay:         true,
		StartDate:      monday,
		EndDate:        monday,
		HolidayInclude: &include,
	}, adminMember(2))
	require.NoError(t, err)
	assert.False(t, marker.Holiday)

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)
	assert.True(t, rec.UsedLeaveDays.Equal(days("1")), "got %s", rec.UsedLeaveDays)
}

func TestService_Delete_Holiday_RestoresSwallowedMinutes(t *testing.T) {
	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	booked, err := svc.Create(context.Background(), fullDayRequest(monday, tuesday), domesticMember(1))
	require.NoError(t, err)
	require.True(t, booked.UsedLeaveDays.Equal(days("2")))

	holiday, err := svc.Create(context.Background(),
		holidayRequest("Founding Day", leave.TypePublicHoliday, tuesday), adminMember(2))
	require.NoError(t, err)

	reduced, err := svc.Get(context.Background(), booked.ID)
	require.NoError(t, err)
	require.True(t, reduced.UsedLeaveDays.Equal(days("1")), "got %s", reduced.UsedLeaveDays)

	// Removing the holiday restores the original charge.
	require.NoError(t, svc.Delete(context.Background(), holiday.ID, adminMember(2)))

	restored, err := svc.Get(context.Background(), booked.ID)
	require.NoError(t, err)
	assert.True(t, restored.UsedLeaveDays.Equal(days("2")), "got %s", restored.UsedLeaveDays)
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestService_Update_ExtendedRange_Recalculates(t *testing.T) {
	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)

	end := tuesday
	updated, err := svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeFullDayLeave, EndDate: &end}, domesticMember(1))

	require.NoError(t, err)
	assert.True(t, updated.UsedLeaveDays.Equal(days("2")), "got %s", updated.UsedLeaveDays)
}

func TestService_Update_MirroredRecord_PatchesMirror(t *testing.T) {
	svc, st, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true
	st.AddMember(actor)

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), actor)
	require.NoError(t, err)

	title := "trip"
	_, err = svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeFullDayLeave, Title: &title}, actor)

	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1"}, mirror.updated)
}

func TestService_Update_TypeChange_RenormalizesWindow(t *testing.T) {
	// GIVEN a booked full working day charging 1.0
	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)
	require.True(t, rec.UsedLeaveDays.Equal(days("1")))

	// WHEN patching it to a morning half-day without supplying times
	updated, err := svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeHalfDayMorning}, domesticMember(1))

	// THEN the stored window snaps to the half; the inherited full-day
	// times must not keep billing a whole day
	require.NoError(t, err)
	assert.Equal(t, schedule.MinuteOf(8, 0), updated.StartTime)
	assert.Equal(t, schedule.MinuteOf(13, 0), updated.EndTime)
	assert.False(t, updated.AllDay)
	assert.True(t, updated.UsedLeaveDays.Equal(days("0.5")), "got %s", updated.UsedLeaveDays)
}

func TestService_Update_OutingTimes_ClippedToWorkWindow(t *testing.T) {
	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)

	start := schedule.MinuteOf(7, 0)
	end := schedule.MinuteOf(10, 0)
	updated, err := svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeOuting, StartTime: &start, EndTime: &end}, domesticMember(1))

	require.NoError(t, err)
	assert.Equal(t, schedule.MinuteOf(8, 0), updated.StartTime, "outing start clipped to work start")
	assert.Equal(t, schedule.MinuteOf(10, 0), updated.EndTime)
	assert.True(t, updated.UsedLeaveDays.Equal(days("0.25")), "got %s", updated.UsedLeaveDays)
}

// vanishingStore simulates a concurrent delete landing between a caller's
// read of a record and the moment the owner lock is acquired: the first
// FindByID returns the row and then removes it.
type vanishingStore struct {
	*store.Memory
	reads int
}

func (v *vanishingStore) FindByID(ctx context.Context, id leave.RecordID) (*leave.Record, error) {
	v.reads++
	rec, err := v.Memory.FindByID(ctx, id)
	if err == nil && v.reads == 1 {
		_ = v.Memory.Delete(ctx, id)
	}
	return rec, err
}

func TestService_Update_DeleteWinsTheLockRace_NotFound(t *testing.T) {
	st := &vanishingStore{Memory: store.NewMemory()}
	st.AddMember(domesticMember(1))
	svc := leave.NewService(st, st.Memory, &recordingMirror{}, testAdminOwnerID)

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)

	title := "renamed"
	_, err = svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeFullDayLeave, Title: &title}, domesticMember(1))

	assert.ErrorIs(t, err, leave.ErrNotFound)

	_, err = st.Memory.FindByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, leave.ErrNotFound, "the update must not resurrect the deleted row")
}

func TestService_Update_NonOwner_Rejected(t *testing.T) {
	svc, st, _ := newServiceFixture(t)
	st.AddMember(domesticMember(1))

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)

	title := "hijack"
	_, err = svc.Update(context.Background(), rec.ID,
		&leave.PatchRequest{Type: leave.TypeFullDayLeave, Title: &title}, domesticMember(2))

	assertRule(t, err, "not_owner")
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestService_Delete_RemovesRecordAndMirror(t *testing.T) {
	svc, st, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), actor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), rec.ID, actor))

	_, err = st.FindByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, leave.ErrNotFound)
	assert.Equal(t, []string{"evt-1"}, mirror.deleted)
}

func TestService_Delete_MirrorFailure_RecordStaysDeleted(t *testing.T) {
	// GIVEN a mirrored record whose external delete will fail
	svc, st, mirror := newServiceFixture(t)
	actor := domesticMember(1)
	actor.Mirrored = true

	rec, err := svc.Create(context.Background(), fullDayRequest(monday, monday), actor)
	require.NoError(t, err)
	mirror.failDelete = errors.New("calendar down")

	// WHEN deleting
	err = svc.Delete(context.Background(), rec.ID, actor)

	// THEN the operation reports success: the ledger delete is durable,
	// the external failure is logged and left to mirror reconciliation
	require.NoError(t, err)
	_, err = st.FindByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestService_Delete_Unknown_NotFound(t *testing.T) {
	svc, _, _ := newServiceFixture(t)

	err := svc.Delete(context.Background(), 4242, domesticMember(1))

	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestService_ListMonth_ReturnsIntersectingRecords(t *testing.T) {
	svc, _, _ := newServiceFixture(t)

	_, err := svc.Create(context.Background(), fullDayRequest(monday, monday), domesticMember(1))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(),
		fullDayRequest(d(2025, time.April, 7), d(2025, time.April, 7)), domesticMember(1))
	require.NoError(t, err)

	march, err := svc.ListMonth(context.Background(), 2025, time.March)
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, monday, march[0].StartDate)
}
