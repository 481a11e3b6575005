/*
Package feed imports public-holiday data into the leave ledger.

PURPOSE:
  A third-party feed publishes the year's public holidays, national days,
  solar terms, sundry days and anniversaries. The importer turns feed
  items into admin-owned all-day rows via the normal holiday registration
  path - so each landed rest day runs the overlap adjuster under the same
  serialization as interactive holiday creation - and skips anything
  already present.

DEDUP:
  A row is "already present" when a record with the same
  (start date, end date, title) exists. Feeds republish the same items
  every run; the key makes the import idempotent.

  The feed source itself is an interface - fetching and parsing the
  third-party API is outside the engine.

SEE ALSO:
  - leave/service.go: the registration path used per item
  - api/scheduler.go: the timer that triggers imports
*/
package feed

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/leave"
)

// =============================================================================
// SOURCE - The third-party feed boundary
// =============================================================================

// Item is one published feed entry.
type Item struct {
	Date    leave.Date
	Name    string
	Kind    leave.Type // one of the marker types
	Holiday bool       // whether the day is an actual rest day
}

// Source fetches the feed for one year.
type Source interface {
	FetchYear(ctx context.Context, year int) ([]Item, error)
}

// Registrar registers records. Implemented by leave.Service; the importer
// goes through it so imported holidays share the service's validation,
// locking and overlap adjustment.
type Registrar interface {
	Create(ctx context.Context, req *leave.CreateRequest, actor *leave.Member) (*leave.Record, error)
}

// =============================================================================
// IMPORTER
// =============================================================================

type Importer struct {
	store     leave.Store
	registrar Registrar
	source    Source
	log       *logrus.Entry

	// batchActor is the configured admin identity that authors the rows.
	batchActor *leave.Member
}

func NewImporter(store leave.Store, registrar Registrar, source Source, batchActor *leave.Member) *Importer {
	return &Importer{
		store:      store,
		registrar:  registrar,
		source:     source,
		log:        logrus.WithField("component", "holiday-feed"),
		batchActor: batchActor,
	}
}

// dedupKey identifies a feed row that already landed.
type dedupKey struct {
	start, end leave.Date
	title      string
}

// SyncYears imports the feed for yearsAhead years starting at fromYear.
// Returns the newly created records, sorted by start date.
func (imp *Importer) SyncYears(ctx context.Context, fromYear, yearsAhead int) ([]*leave.Record, error) {
	var created []*leave.Record
	for year := fromYear; year < fromYear+yearsAhead; year++ {
		recs, err := imp.syncYear(ctx, year)
		if err != nil {
			return created, fmt.Errorf("feed import for %d: %w", year, err)
		}
		created = append(created, recs...)
	}
	sort.Slice(created, func(i, j int) bool {
		return created[i].StartDate.Before(created[j].StartDate)
	})
	return created, nil
}

func (imp *Importer) syncYear(ctx context.Context, year int) ([]*leave.Record, error) {
	yearRange := leave.DateRange{
		Start: leave.NewDate(year, 1, 1),
		End:   leave.NewDate(year, 12, 31),
	}
	existing, err := imp.store.FindOverlapping(ctx, yearRange)
	if err != nil {
		return nil, err
	}
	seen := make(map[dedupKey]bool, len(existing))
	for _, rec := range existing {
		seen[dedupKey{rec.StartDate, rec.EndDate, rec.Title}] = true
	}

	items, err := imp.source.FetchYear(ctx, year)
	if err != nil {
		return nil, err
	}

	var created []*leave.Record
	for _, item := range items {
		key := dedupKey{item.Date, item.Date, item.Name}
		if seen[key] {
			continue
		}
		seen[key] = true

		holiday := item.Holiday
		req := &leave.CreateRequest{
			Title:          item.Name,
			Description:    fmt.Sprintf("%s   %s", item.Kind.Label(), item.Name),
			Type:           item.Kind,
			AllDay:         true,
			StartDate:      item.Date,
			EndDate:        item.Date,
			HolidayInclude: &holiday,
		}
		rec, err := imp.registrar.Create(ctx, req, imp.batchActor)
		if err != nil {
			return created, fmt.Errorf("import %q (%s): %w", item.Name, item.Date, err)
		}
		created = append(created, rec)
	}

	imp.log.WithFields(logrus.Fields{
		"year":     year,
		"imported": len(created),
	}).Info("holiday feed synced")
	return created, nil
}
