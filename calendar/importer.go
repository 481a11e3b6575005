/*
importer.go - Inbound import of third-party calendar events

PURPOSE:
  Mirroring runs both ways. Outbound, the Syncer pushes ledger records to
  the external calendar; inbound, this importer pulls events other people
  put there directly and lands them as non-member ledger rows, so the
  month view shows the whole calendar. Imported rows are immutable in the
  ledger and are never pushed back out.

DEDUP:
  The external event id is the key. Rows the engine pushed carry their id
  already, so they are naturally skipped; third-party events are imported
  once and recognized on every later pass.

SEE ALSO:
  - api/scheduler.go: the timer that triggers imports
  - sync.go: the outbound direction
*/
package calendar

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// EVENT IMPORTER
// =============================================================================

// EventImporter lands unknown external events as non-member ledger rows.
type EventImporter struct {
	client Client
	store  leave.Store
	log    *logrus.Entry

	// ownerID is the configured admin identity that owns imported rows.
	ownerID int64
}

func NewEventImporter(client Client, store leave.Store, ownerID int64) *EventImporter {
	return &EventImporter{
		client:  client,
		store:   store,
		log:     logrus.WithField("component", "calendar-import"),
		ownerID: ownerID,
	}
}

// ImportWindow fetches external events starting within [from, to] and
// saves the ones the ledger has no row for. Returns the created records.
func (imp *EventImporter) ImportWindow(ctx context.Context, from, to leave.Date) ([]*leave.Record, error) {
	var listed []ListedEvent
	err := withRetry(ctx, func() error {
		l, err := imp.client.List(ctx, from, to)
		if err == nil {
			listed = l
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(listed) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(listed))
	for _, le := range listed {
		ids = append(ids, le.ID)
	}
	known, err := imp.store.FindByExternalEventIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(known))
	for _, rec := range known {
		seen[rec.ExternalEventID] = true
	}

	var created []*leave.Record
	for _, le := range listed {
		if seen[le.ID] {
			continue
		}
		rec := imp.recordOf(le)
		if err := imp.store.Save(ctx, rec); err != nil {
			return created, err
		}
		created = append(created, rec)
	}

	imp.log.WithFields(logrus.Fields{
		"listed":   len(listed),
		"imported": len(created),
	}).Info("external events imported")
	return created, nil
}

// recordOf converts an external event into a non-member row. The external
// system's all-day end is exclusive; the ledger end date is inclusive.
func (imp *EventImporter) recordOf(le ListedEvent) *leave.Record {
	ev := le.Event
	rec := &leave.Record{
		Title:           ev.Title,
		Description:     ev.Description,
		Type:            leave.TypeOtherPerson,
		AllDay:          ev.AllDay,
		StartDate:       ev.StartDate,
		StartTime:       ev.StartTime,
		EndDate:         ev.EndDate,
		EndTime:         ev.EndTime,
		OwnerID:         imp.ownerID,
		ExternalEventID: le.ID,
	}
	if ev.AllDay {
		rec.EndDate = ev.EndDate.AddDays(-1)
		if rec.EndDate.Before(rec.StartDate) {
			rec.EndDate = rec.StartDate
		}
		rec.StartTime = schedule.Midnight
		rec.EndTime = schedule.MinuteOf(23, 59)
	}
	return rec
}
