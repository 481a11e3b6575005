/*
sync.go - Compensating-transaction wrapper around the external calendar

PURPOSE:
  The ledger and the external calendar share no transaction, so each
  operation orders its two steps to keep the ledger authoritative and
  compensates when the second step fails:

  Create:  external create FIRST, then ledger commit. If the commit
           fails, the just-created event is deleted (best effort) and the
           commit error is re-raised. A failed compensation is the one
           state the system cannot heal; it is tagged for manual
           reconciliation.
  Update:  ledger first (done by the caller); the mirror is patched only
           when the diff says so. A missing mirror is "already gone".
  Delete:  ledger first (done by the caller); external delete afterward,
           idempotent - not-found/gone count as success.

  Each step gets a bounded retry for transient failures; see retry.go.

SEE ALSO:
  - patcher.go: the update diff
  - leave/service.go: call ordering around ledger transactions
*/
package calendar

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/leavebridge/engine/leave"
)

// =============================================================================
// OUTCOME - Tagged result of the create saga
// =============================================================================

type Outcome string

const (
	// OutcomeApplied: external event created and ledger committed.
	OutcomeApplied Outcome = "applied"

	// OutcomeCompensated: ledger commit failed, external event rolled
	// back; the operation failed cleanly.
	OutcomeCompensated Outcome = "compensated"

	// OutcomeManualIntervention: ledger commit failed AND the
	// compensating delete failed; an orphan event exists externally.
	OutcomeManualIntervention Outcome = "manual_intervention"
)

// CreateResult is the tagged result of the create saga.
type CreateResult struct {
	Outcome    Outcome
	ExternalID string
}

// =============================================================================
// SYNCER
// =============================================================================

// Syncer sequences ledger and external-calendar mutations.
type Syncer struct {
	client Client
	log    *logrus.Entry
}

func NewSyncer(client Client) *Syncer {
	return &Syncer{
		client: client,
		log:    logrus.WithField("component", "calendar-sync"),
	}
}

// CreateEvent runs the create saga: push the event, then commit the ledger
// through the callback with the new external id. On commit failure the
// event is compensated away and the commit error is returned.
func (s *Syncer) CreateEvent(ctx context.Context, ev Event, commit func(externalID string) error) (CreateResult, error) {
	var externalID string
	err := withRetry(ctx, func() error {
		id, err := s.client.Create(ctx, ev)
		if err == nil {
			externalID = id
		}
		return err
	})
	if err != nil {
		return CreateResult{}, err
	}

	if err := commit(externalID); err != nil {
		// Compensate: best-effort delete of the event we just created.
		if delErr := s.deleteIdempotent(ctx, externalID); delErr != nil {
			s.log.WithError(delErr).
				WithField("external_id", externalID).
				Error("compensating delete failed; manual reconciliation required")
			return CreateResult{Outcome: OutcomeManualIntervention, ExternalID: externalID},
				&leave.ConsistencyError{ExternalEventID: externalID, Cause: err}
		}
		s.log.WithField("external_id", externalID).
			Info("ledger commit failed; external event compensated")
		return CreateResult{Outcome: OutcomeCompensated}, err
	}

	return CreateResult{Outcome: OutcomeApplied, ExternalID: externalID}, nil
}

// UpdateEvent reconciles the mirror with the desired state. The ledger has
// already been updated; a vanished mirror is not an error here.
func (s *Syncer) UpdateEvent(ctx context.Context, externalID string, desired Event) error {
	var current Event
	err := withRetry(ctx, func() error {
		ev, err := s.client.Get(ctx, externalID)
		if err == nil {
			current = ev
		}
		return err
	})
	if err != nil {
		if IsMissing(err) {
			s.log.WithField("external_id", externalID).Info("mirror already gone, skipping patch")
			return nil
		}
		return err
	}

	merged, changed := ApplyChanges(current, desired)
	if !changed {
		return nil
	}

	err = withRetry(ctx, func() error {
		return s.client.Patch(ctx, externalID, merged)
	})
	if err != nil && IsMissing(err) {
		return nil
	}
	return err
}

// DeleteEvent removes the mirror. Repeated deletes succeed: not-found and
// gone responses are success, the mirror state is what we wanted.
func (s *Syncer) DeleteEvent(ctx context.Context, externalID string) error {
	return s.deleteIdempotent(ctx, externalID)
}

func (s *Syncer) deleteIdempotent(ctx context.Context, externalID string) error {
	err := withRetry(ctx, func() error {
		return s.client.Delete(ctx, externalID)
	})
	if err != nil && IsMissing(err) {
		s.log.WithField("external_id", externalID).Info("event already deleted externally")
		return nil
	}
	return err
}

// =============================================================================
// RECORD MIRROR - leave.Mirror adapter
// =============================================================================

// RecordMirror adapts the Syncer to the leave engine's Mirror port.
type RecordMirror struct {
	syncer *Syncer
}

func NewRecordMirror(client Client) *RecordMirror {
	return &RecordMirror{syncer: NewSyncer(client)}
}

func (m *RecordMirror) Create(ctx context.Context, rec *leave.Record, commit func(externalID string) error) error {
	_, err := m.syncer.CreateEvent(ctx, EventOf(rec), commit)
	return err
}

func (m *RecordMirror) Update(ctx context.Context, rec *leave.Record) error {
	if !rec.Mirrored() {
		return nil
	}
	return m.syncer.UpdateEvent(ctx, rec.ExternalEventID, EventOf(rec))
}

func (m *RecordMirror) Delete(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	return m.syncer.DeleteEvent(ctx, externalID)
}
