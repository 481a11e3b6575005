package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/leave/store"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestBalanceReporter_SumsDeductibleRecordsOnly(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	member := domesticMember(1)
	st.AddMember(member)

	seedLeave(t, st, 1, monday, monday, "1")
	seedLeave(t, st, 1, tuesday, tuesday, "0.5")

	// A meeting never charges, whatever its stored days say.
	meeting := &leave.Record{
		Title:         "standup",
		Type:          leave.TypeMeeting,
		StartDate:     monday,
		StartTime:     schedule.MinuteOf(9, 0),
		EndDate:       monday,
		EndTime:       schedule.MinuteOf(10, 0),
		OwnerID:       1,
		UsedLeaveDays: days("1"),
	}
	require.NoError(t, st.Save(ctx, meeting))

	reporter := leave.NewBalanceReporter(st, st, days("12"))
	balance, err := reporter.BalanceFor(ctx, member)

	require.NoError(t, err)
	assert.True(t, balance.Used.Equal(days("1.5")), "got %s", balance.Used)
	assert.True(t, balance.Remaining.Equal(days("10.5")), "got %s", balance.Remaining)
	assert.Len(t, balance.Details, 2)
}

func TestBalanceReporter_NoRecords_FullGrant(t *testing.T) {
	st := store.NewMemory()
	member := domesticMember(1)
	st.AddMember(member)

	reporter := leave.NewBalanceReporter(st, st, days("12"))
	balance, err := reporter.BalanceFor(context.Background(), member)

	require.NoError(t, err)
	assert.True(t, balance.Used.IsZero())
	assert.True(t, balance.Remaining.Equal(days("12")))
	assert.Empty(t, balance.Details)
}

func TestBalanceReporter_AllBalances_OnePerMember(t *testing.T) {
	st := store.NewMemory()
	st.AddMember(domesticMember(1))
	st.AddMember(overseasMember(2))

	seedLeave(t, st, 2, monday, monday, "1")

	reporter := leave.NewBalanceReporter(st, st, days("12"))
	balances, err := reporter.AllBalances(context.Background())

	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, balances[0].Used.IsZero())
	assert.True(t, balances[1].Used.Equal(days("1")))
}
