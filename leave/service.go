/*
service.go - Orchestration of the create/update/delete flows

PURPOSE:
  Sequences every mutation through the same pipeline:

    validate -> normalize -> calculate (deductible types)
             -> external sync (mirrored members) -> ledger persistence

  Holiday creation additionally runs the overlap adjuster after the row
  is persisted. The external calendar call is never inside the ledger
  transaction; the Mirror port carries the compensating logic.

SERIALIZATION:
  Leave mutations take a per-owner lock; holiday creation/deletion and
  the adjuster take a global write lock that excludes all owners. Two
  leaves for different owners proceed in parallel, but nobody races a
  holiday landing on their range.

SEE ALSO:
  - validator.go, calculator.go, adjuster.go
  - calendar/sync.go: the Mirror implementation
*/
package leave

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// MIRROR - External calendar port
// =============================================================================

// Mirror maintains the external calendar copy of a record. Implemented by
// calendar.RecordMirror; NoopMirror serves deployments without a calendar.
type Mirror interface {
	// Create pushes the record externally, then commits the ledger via
	// the callback. On commit failure the external event is compensated
	// away and the commit error returned.
	Create(ctx context.Context, rec *Record, commit func(externalID string) error) error

	// Update patches the mirror when the record diverged from it. A
	// vanished mirror is not an error.
	Update(ctx context.Context, rec *Record) error

	// Delete removes the mirror, idempotently.
	Delete(ctx context.Context, externalID string) error
}

// NoopMirror ignores all mirroring.
type NoopMirror struct{}

func (NoopMirror) Create(_ context.Context, _ *Record, commit func(string) error) error {
	return commit("")
}
func (NoopMirror) Update(context.Context, *Record) error { return nil }
func (NoopMirror) Delete(context.Context, string) error  { return nil }

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store      Store
	members    MemberStore
	calculator *Calculator
	validator  *Validator
	adjuster   *Adjuster
	mirror     Mirror
	log        *logrus.Entry

	// AdminOwnerID attributes holiday rows created by batch jobs.
	adminOwnerID int64

	locks ownerLocks
}

func NewService(store Store, members MemberStore, mirror Mirror, adminOwnerID int64) *Service {
	calc := NewCalculator(store)
	return &Service{
		store:        store,
		members:      members,
		calculator:   calc,
		validator:    NewValidator(store),
		adjuster:     NewAdjuster(store, members, calc, mirror),
		mirror:       mirror,
		log:          logrus.WithField("component", "leave-service"),
		adminOwnerID: adminOwnerID,
	}
}

// Adjuster exposes the overlap adjuster for the feed importer.
func (s *Service) Adjuster() *Adjuster { return s.adjuster }

// =============================================================================
// CREATE
// =============================================================================

// Create registers a leave or holiday for the acting member and returns
// the persisted record with computed usage.
func (s *Service) Create(ctx context.Context, req *CreateRequest, actor *Member) (*Record, error) {
	if err := req.Normalize(actor); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateCreate(ctx, req, actor); err != nil {
		return nil, err
	}

	if req.IsHolidayPath() {
		return s.createHoliday(ctx, req, actor)
	}
	return s.createLeave(ctx, req, actor)
}

func (s *Service) createLeave(ctx context.Context, req *CreateRequest, actor *Member) (*Record, error) {
	unlockOwner := s.locks.lockOwner(actor.ID)
	defer unlockOwner()

	rec := recordFromCreate(req, actor.ID)

	if req.Type.Deductible() {
		usage, err := s.calculator.Calculate(ctx, req.Span(), actor)
		if err != nil {
			return nil, err
		}
		if err := s.validator.CheckUsage(req.Type, usage); err != nil {
			return nil, err
		}
		rec.UsedLeaveDays = usage.Days
		rec.Comment = usage.Comment
	}

	if !actor.Mirrored {
		if err := s.store.Save(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	// External event first; the commit callback persists the ledger row.
	// A failed commit triggers the compensating delete inside the mirror.
	err := s.mirror.Create(ctx, rec, func(externalID string) error {
		rec.ExternalEventID = externalID
		return s.store.Save(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) createHoliday(ctx context.Context, req *CreateRequest, actor *Member) (*Record, error) {
	unlockAll := s.locks.lockAll()
	defer unlockAll()

	rec := recordFromCreate(req, s.adminOwnerID)
	rec.Holiday = true

	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"record": rec.ID,
		"range":  rec.Range(),
		"type":   rec.Type,
	}).Info("holiday registered, adjusting overlapped leave")

	if err := s.adjuster.AdjustLocked(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update applies a patch to an existing record on behalf of the actor.
func (s *Service) Update(ctx context.Context, id RecordID, patch *PatchRequest, actor *Member) (*Record, error) {
	existing, unlock, err := s.lockAndFetch(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	patched := patch.Apply(existing)

	// The patched type dictates the stored window, exactly as on create:
	// a full-day row patched to a morning half must bill the half, not
	// the full window it used to carry.
	var owner *Member
	if patched.Type.Deductible() {
		owner, err = s.members.FindMember(ctx, patched.OwnerID)
		if err != nil {
			return nil, err
		}
		normalizePatched(patched, owner)
	}

	if err := s.validator.ValidateUpdate(existing, patched, actor); err != nil {
		return nil, err
	}

	if patched.Type.Deductible() {
		usage, err := s.calculator.CalculateRecord(ctx, patched, owner)
		if err != nil {
			return nil, err
		}
		if err := s.validator.CheckUsage(patched.Type, usage); err != nil {
			return nil, err
		}
		patched.UsedLeaveDays = usage.Days
		patched.Comment = usage.Comment
	}

	// Ledger first: it is the source of truth. The mirror patch follows
	// and tolerates a missing event.
	if err := s.store.Save(ctx, patched); err != nil {
		return nil, err
	}
	if err := s.mirror.Update(ctx, patched); err != nil {
		return nil, err
	}
	return patched, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a record. Holiday deletion recalculates everything the
// holiday had been excluding.
func (s *Service) Delete(ctx context.Context, id RecordID, actor *Member) error {
	existing, unlock, err := s.lockAndFetch(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.validator.ValidateDelete(existing, actor); err != nil {
		return err
	}

	// Ledger deletion first, then the idempotent external delete.
	if err := s.store.Delete(ctx, existing.ID); err != nil {
		return err
	}
	if err := s.mirror.Delete(ctx, existing.ExternalEventID); err != nil {
		// The ledger row is authoritative and already gone; reporting
		// the external failure would fail an operation that durably
		// succeeded. Log it and let the mirror import reconcile.
		s.log.WithError(err).WithField("record", existing.ID).
			Warn("external mirror delete failed after ledger delete")
	}

	if existing.Holiday {
		return s.adjuster.RecalculateAfterHolidayRemoval(ctx, existing)
	}
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Get returns one record.
func (s *Service) Get(ctx context.Context, id RecordID) (*Record, error) {
	return s.store.FindByID(ctx, id)
}

// ListMonth returns all records intersecting the given month, for the
// calendar view.
func (s *Service) ListMonth(ctx context.Context, year int, month time.Month) ([]*Record, error) {
	first := NewDate(year, month, 1)
	last := NewDate(year, month+1, 1).AddDays(-1)
	return s.store.FindOverlapping(ctx, DateRange{Start: first, End: last})
}

// =============================================================================
// HELPERS
// =============================================================================

func recordFromCreate(req *CreateRequest, ownerID int64) *Record {
	return &Record{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		AllDay:      req.AllDay,
		StartDate:   req.StartDate,
		StartTime:   *req.StartTime,
		EndDate:     req.EndDate,
		EndTime:     *req.EndTime,
		OwnerID:     ownerID,
	}
}

func (s *Service) lockFor(rec *Record) func() {
	if rec.Holiday {
		return s.locks.lockAll()
	}
	return s.locks.lockOwner(rec.OwnerID)
}

// lockAndFetch reads the record, takes the lock its owner/holiday routing
// calls for, then re-reads under the lock. The pre-lock read only selects
// the lock; a concurrent delete landing between read and lock must surface
// as not-found here, or the caller's Save would resurrect the row. When
// the routing fields moved under us the lock was the wrong one; retry.
func (s *Service) lockAndFetch(ctx context.Context, id RecordID) (*Record, func(), error) {
	for {
		first, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		unlock := s.lockFor(first)

		rec, err := s.store.FindByID(ctx, id)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if rec.Holiday == first.Holiday && rec.OwnerID == first.OwnerID {
			return rec, unlock, nil
		}
		unlock()
	}
}

// =============================================================================
// OWNER LOCKS - Per-owner serialization with a global holiday lock
// =============================================================================

// ownerLocks serializes mutations per owner while letting the holiday path
// exclude everyone. A RWMutex carries the global/owner split: owners hold
// the read side (mutually concurrent), holidays the write side.
type ownerLocks struct {
	global sync.RWMutex
	mu     sync.Mutex
	owners map[int64]*sync.Mutex
}

func (l *ownerLocks) lockOwner(ownerID int64) func() {
	l.global.RLock()

	l.mu.Lock()
	if l.owners == nil {
		l.owners = make(map[int64]*sync.Mutex)
	}
	om, ok := l.owners[ownerID]
	if !ok {
		om = &sync.Mutex{}
		l.owners[ownerID] = om
	}
	l.mu.Unlock()

	om.Lock()
	return func() {
		om.Unlock()
		l.global.RUnlock()
	}
}

func (l *ownerLocks) lockAll() func() {
	l.global.Lock()
	return l.global.Unlock
}
