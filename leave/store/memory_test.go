package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/leave/store"
)

func TestMemory_Save_UpdateVanishedRow_NotFound(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	day := leave.NewDate(2025, time.March, 10)

	rec := &leave.Record{
		Title:     "vacation",
		Type:      leave.TypeFullDayLeave,
		AllDay:    true,
		StartDate: day,
		EndDate:   day,
		OwnerID:   1,
	}
	require.NoError(t, st.Save(ctx, rec))
	require.NoError(t, st.Delete(ctx, rec.ID))

	// Same contract as the SQL store: an update against a deleted row
	// surfaces instead of re-inserting it.
	rec.Title = "renamed"
	assert.ErrorIs(t, st.Save(ctx, rec), leave.ErrNotFound)
}
