/*
scheduler.go - Background feed and mirror synchronization

PURPOSE:
  Two periodic jobs share one timer here:
  - Holiday feed import, so newly declared holidays land in the ledger
    (and trigger overlap adjustment) without an operator pressing the
    button. The interactive path stays at POST /api/admin/feed/sync.
  - Inbound calendar import, landing third-party events created directly
    in the external calendar as non-member ledger rows.

DESIGN:
  - Background goroutine with a configurable check interval
  - Runs once on start, then on every tick
  - Either job may be absent; with both absent the scheduler idles
  - Failures are logged and retried on the next tick

USAGE:
  sched := api.NewSyncScheduler(importer, events, yearsAhead)
  sched.Start()
  // ... later
  sched.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/calendar"
	"github.com/leavebridge/engine/feed"
	"github.com/leavebridge/engine/leave"
)

// eventWindowDays bounds how far ahead inbound calendar import looks.
const eventWindowDays = 60

// SyncScheduler runs periodic feed imports and inbound calendar imports.
type SyncScheduler struct {
	Importer      *feed.Importer
	Events        *calendar.EventImporter
	YearsAhead    int
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	log    *logrus.Entry
}

// NewSyncScheduler creates a scheduler with a daily check interval.
// Either importer may be nil.
func NewSyncScheduler(importer *feed.Importer, events *calendar.EventImporter, yearsAhead int) *SyncScheduler {
	return &SyncScheduler{
		Importer:      importer,
		Events:        events,
		YearsAhead:    yearsAhead,
		CheckInterval: 24 * time.Hour,
		stop:          make(chan struct{}),
		log:           logrus.WithField("component", "sync-scheduler"),
	}
}

// Start begins the scheduler.
func (ss *SyncScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.Importer == nil && ss.Events == nil {
		ss.log.Info("no feed source or calendar client configured, scheduler idle")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)
	go ss.run()
	ss.log.WithField("interval", ss.CheckInterval).Info("sync scheduler started")
}

// Stop stops the scheduler.
func (ss *SyncScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.log.Info("sync scheduler stopped")
	}
}

func (ss *SyncScheduler) run() {
	defer ss.wg.Done()

	ss.syncOnce()
	for {
		select {
		case <-ss.ticker.C:
			ss.syncOnce()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SyncScheduler) syncOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if ss.Importer != nil {
		created, err := ss.Importer.SyncYears(ctx, time.Now().Year(), ss.YearsAhead)
		if err != nil {
			ss.log.WithError(err).Error("scheduled feed sync failed")
		} else if len(created) > 0 {
			ss.log.WithField("imported", len(created)).Info("scheduled feed sync imported new rows")
		}
	}

	if ss.Events != nil {
		from := leave.DateOf(time.Now())
		created, err := ss.Events.ImportWindow(ctx, from, from.AddDays(eventWindowDays))
		if err != nil {
			ss.log.WithError(err).Error("scheduled calendar import failed")
		} else if len(created) > 0 {
			ss.log.WithField("imported", len(created)).Info("scheduled calendar import landed new events")
		}
	}
}
