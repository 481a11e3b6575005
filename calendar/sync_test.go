package calendar_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavebridge/engine/calendar"
	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeClient is an in-memory calendar.Client. Errors queued in createErrs
// are consumed one per Create call; the other error fields apply to every
// call of their operation.
type fakeClient struct {
	nextID int
	events map[string]calendar.Event

	createErrs []error
	getErr     error
	listErr    error
	patchErr   error
	deleteErr  error

	patched []string
	deleted []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(map[string]calendar.Event)}
}

func (c *fakeClient) Create(_ context.Context, ev calendar.Event) (string, error) {
	if len(c.createErrs) > 0 {
		err := c.createErrs[0]
		c.createErrs = c.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	c.nextID++
	id := fmt.Sprintf("evt-%d", c.nextID)
	c.events[id] = ev
	return id, nil
}

func (c *fakeClient) Get(_ context.Context, externalID string) (calendar.Event, error) {
	if c.getErr != nil {
		return calendar.Event{}, c.getErr
	}
	ev, ok := c.events[externalID]
	if !ok {
		return calendar.Event{}, &calendar.Error{Class: calendar.StatusNotFound, Op: "get"}
	}
	return ev, nil
}

func (c *fakeClient) List(_ context.Context, from, to leave.Date) ([]calendar.ListedEvent, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	var listed []calendar.ListedEvent
	for id, ev := range c.events {
		if ev.StartDate.AfterOrEqual(from) && ev.StartDate.BeforeOrEqual(to) {
			listed = append(listed, calendar.ListedEvent{ID: id, Event: ev})
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].ID < listed[j].ID })
	return listed, nil
}

func (c *fakeClient) Patch(_ context.Context, externalID string, ev calendar.Event) error {
	if c.patchErr != nil {
		return c.patchErr
	}
	c.events[externalID] = ev
	c.patched = append(c.patched, externalID)
	return nil
}

func (c *fakeClient) Delete(_ context.Context, externalID string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	if _, ok := c.events[externalID]; !ok {
		return &calendar.Error{Class: calendar.StatusGone, Op: "delete"}
	}
	delete(c.events, externalID)
	c.deleted = append(c.deleted, externalID)
	return nil
}

var monday = leave.NewDate(2025, time.March, 10)

func timedEvent(title string) calendar.Event {
	return calendar.Event{
		Title:     title,
		AllDay:    false,
		StartDate: monday,
		StartTime: schedule.MinuteOf(8, 0),
		EndDate:   monday,
		EndTime:   schedule.MinuteOf(17, 0),
	}
}

// =============================================================================
// CREATE SAGA TESTS
// =============================================================================

func TestSyncer_CreateEvent_Applied(t *testing.T) {
	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	var committed string
	result, err := syncer.CreateEvent(context.Background(), timedEvent("vacation"), func(externalID string) error {
		committed = externalID
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, calendar.OutcomeApplied, result.Outcome)
	assert.Equal(t, "evt-1", result.ExternalID)
	assert.Equal(t, "evt-1", committed)
	assert.Contains(t, client.events, "evt-1")
}

func TestSyncer_CreateEvent_CommitFails_Compensated(t *testing.T) {
	// GIVEN: the external create succeeds
	// WHEN: the ledger commit fails
	// THEN: the event is deleted again and the commit error surfaces

	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	commitErr := errors.New("disk full")
	result, err := syncer.CreateEvent(context.Background(), timedEvent("vacation"), func(string) error {
		return commitErr
	})

	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, calendar.OutcomeCompensated, result.Outcome)
	assert.NotContains(t, client.events, "evt-1", "the orphan event must be gone")
	assert.Equal(t, []string{"evt-1"}, client.deleted)
}

func TestSyncer_CreateEvent_CompensationFails_ManualIntervention(t *testing.T) {
	// GIVEN: the commit fails AND the compensating delete fails
	// WHEN: running the create saga
	// THEN: the result is tagged for manual reconciliation

	client := newFakeClient()
	client.deleteErr = &calendar.Error{Class: calendar.StatusGeneric, Op: "delete", Message: "boom"}
	syncer := calendar.NewSyncer(client)

	result, err := syncer.CreateEvent(context.Background(), timedEvent("vacation"), func(string) error {
		return errors.New("disk full")
	})

	assert.ErrorIs(t, err, leave.ErrConsistency)
	assert.Equal(t, calendar.OutcomeManualIntervention, result.Outcome)
	assert.Equal(t, "evt-1", result.ExternalID, "the orphan id must be reported")

	var cerr *leave.ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "evt-1", cerr.ExternalEventID)
}

func TestSyncer_CreateEvent_TransientFailure_Retried(t *testing.T) {
	client := newFakeClient()
	client.createErrs = []error{
		&calendar.Error{Class: calendar.StatusUnavailable, Op: "create"},
	}
	syncer := calendar.NewSyncer(client)

	result, err := syncer.CreateEvent(context.Background(), timedEvent("vacation"), func(string) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, calendar.OutcomeApplied, result.Outcome)
}

func TestSyncer_CreateEvent_NonTransientFailure_NotRetried(t *testing.T) {
	client := newFakeClient()
	client.createErrs = []error{
		&calendar.Error{Class: calendar.StatusInvalid, Op: "create"},
		&calendar.Error{Class: calendar.StatusInvalid, Op: "create"},
	}
	syncer := calendar.NewSyncer(client)

	_, err := syncer.CreateEvent(context.Background(), timedEvent("vacation"), func(string) error {
		t.Fatal("commit must not run after a failed create")
		return nil
	})

	assert.ErrorIs(t, err, calendar.ErrExternal)
	assert.Len(t, client.createErrs, 1, "a malformed event is not worth retrying")
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestSyncer_UpdateEvent_NoChange_SkipsPatch(t *testing.T) {
	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	id, err := client.Create(context.Background(), timedEvent("vacation"))
	require.NoError(t, err)

	require.NoError(t, syncer.UpdateEvent(context.Background(), id, timedEvent("vacation")))
	assert.Empty(t, client.patched, "identical state needs no patch")
}

func TestSyncer_UpdateEvent_TitleChanged_Patched(t *testing.T) {
	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	id, err := client.Create(context.Background(), timedEvent("vacation"))
	require.NoError(t, err)

	require.NoError(t, syncer.UpdateEvent(context.Background(), id, timedEvent("trip")))

	assert.Equal(t, []string{id}, client.patched)
	assert.Equal(t, "trip", client.events[id].Title)
}

func TestSyncer_UpdateEvent_MirrorGone_NotAnError(t *testing.T) {
	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	err := syncer.UpdateEvent(context.Background(), "evt-vanished", timedEvent("trip"))

	assert.NoError(t, err, "a mirror deleted out of band is already in the desired state")
	assert.Empty(t, client.patched)
}

func TestSyncer_UpdateEvent_PatchRacesDeletion_Tolerated(t *testing.T) {
	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	id, err := client.Create(context.Background(), timedEvent("vacation"))
	require.NoError(t, err)
	client.patchErr = &calendar.Error{Class: calendar.StatusGone, Op: "patch"}

	assert.NoError(t, syncer.UpdateEvent(context.Background(), id, timedEvent("trip")))
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestSyncer_DeleteEvent_Idempotent(t *testing.T) {
	// GIVEN: an existing event
	// WHEN: deleting it twice
	// THEN: both calls succeed; absence is the goal state

	client := newFakeClient()
	syncer := calendar.NewSyncer(client)

	id, err := client.Create(context.Background(), timedEvent("vacation"))
	require.NoError(t, err)

	assert.NoError(t, syncer.DeleteEvent(context.Background(), id))
	assert.NoError(t, syncer.DeleteEvent(context.Background(), id))
	assert.NotContains(t, client.events, id)
}

// =============================================================================
// RECORD MIRROR TESTS
// =============================================================================

func TestRecordMirror_UnmirroredRecord_Skipped(t *testing.T) {
	client := newFakeClient()
	mirror := calendar.NewRecordMirror(client)

	rec := &leave.Record{Title: "vacation", StartDate: monday, EndDate: monday}

	assert.NoError(t, mirror.Update(context.Background(), rec))
	assert.NoError(t, mirror.Delete(context.Background(), ""))
	assert.Empty(t, client.patched)
	assert.Empty(t, client.deleted)
}

func TestEventOf_AllDay_ExclusiveEndDate(t *testing.T) {
	rec := &leave.Record{
		Title:     "Founding Day",
		AllDay:    true,
		StartDate: monday,
		StartTime: schedule.MinuteOf(8, 0),
		EndDate:   monday,
		EndTime:   schedule.MinuteOf(17, 0),
	}

	ev := calendar.EventOf(rec)

	assert.True(t, ev.AllDay)
	assert.Equal(t, monday, ev.StartDate)
	assert.Equal(t, monday.AddDays(1), ev.EndDate, "all-day ends are exclusive externally")
	assert.Equal(t, schedule.Midnight, ev.StartTime)
	assert.Equal(t, schedule.Midnight, ev.EndTime)
}

// =============================================================================
// STATUS CLASS TESTS
// =============================================================================

func TestClassForHTTPStatus(t *testing.T) {
	cases := map[int]calendar.StatusClass{
		400: calendar.StatusInvalid,
		401: calendar.StatusAuthExpired,
		403: calendar.StatusRateLimited,
		404: calendar.StatusNotFound,
		409: calendar.StatusConflict,
		410: calendar.StatusGone,
		429: calendar.StatusRateLimited,
		500: calendar.StatusUnavailable,
		503: calendar.StatusUnavailable,
		418: calendar.StatusGeneric,
	}
	for code, want := range cases {
		assert.Equal(t, want, calendar.ClassForHTTPStatus(code), "status %d", code)
	}
}

func TestStatusClass_Reasons_Distinct(t *testing.T) {
	// Rate limits and expired tokens must not read like a generic outage.
	assert.NotEqual(t, calendar.StatusRateLimited.Reason(), calendar.StatusUnavailable.Reason())
	assert.NotEqual(t, calendar.StatusAuthExpired.Reason(), calendar.StatusUnavailable.Reason())
}

func TestIsMissing(t *testing.T) {
	assert.True(t, calendar.IsMissing(&calendar.Error{Class: calendar.StatusNotFound}))
	assert.True(t, calendar.IsMissing(&calendar.Error{Class: calendar.StatusGone}))
	assert.False(t, calendar.IsMissing(&calendar.Error{Class: calendar.StatusUnavailable}))
	assert.False(t, calendar.IsMissing(errors.New("plain")))
}
