/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the LeaveBridge engine server: configuration,
  dependency wiring, background schedulers, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env / .env)
  2. Open the SQLite store
  3. Wire the leave service (with or without a calendar mirror) and the
     holiday feed importer
  4. Start the sync scheduler and HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop the scheduler, drain active requests (30s
  timeout), close the database.

ENVIRONMENT:
  PORT, DB_PATH, CALENDAR_BASE_URL, CALENDAR_ID, CALENDAR_TOKEN,
  FEED_URL, ADMIN_OWNER_ID, ANNUAL_GRANT_DAYS, FEED_YEARS_AHEAD.
  See config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/api"
	"github.com/leavebridge/engine/calendar"
	"github.com/leavebridge/engine/config"
	"github.com/leavebridge/engine/feed"
	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize database")
	}
	defer st.Close()

	// The calendar mirror and the feed importer are both optional;
	// without configuration the engine runs as a standalone ledger.
	var mirror leave.Mirror = leave.NoopMirror{}
	var events *calendar.EventImporter
	if cfg.CalendarBaseURL != "" && cfg.CalendarID != "" {
		client := calendar.NewHTTPClient(cfg.CalendarBaseURL, cfg.CalendarID, cfg.CalendarToken)
		mirror = calendar.NewRecordMirror(client)
		events = calendar.NewEventImporter(client, st, cfg.AdminOwnerID)
	}

	service := leave.NewService(st, st, mirror, cfg.AdminOwnerID)
	balances := leave.NewBalanceReporter(st, st, decimal.NewFromFloat(cfg.AnnualGrantDays))

	var importer *feed.Importer
	if cfg.FeedURL != "" {
		batchActor := &leave.Member{ID: cfg.AdminOwnerID, Name: "holiday feed", Admin: true}
		importer = feed.NewImporter(st, service, feed.NewHTTPSource(cfg.FeedURL), batchActor)
	}

	handler := &api.Handler{
		Service:        service,
		Members:        st,
		Balances:       balances,
		Importer:       importer,
		FeedYearsAhead: cfg.FeedYearsAhead,
	}

	scheduler := api.NewSyncScheduler(importer, events, cfg.FeedYearsAhead)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}
	logrus.Info("server stopped")
}
