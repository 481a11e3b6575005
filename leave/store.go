package leave

import "context"

// =============================================================================
// STORE - Ledger persistence interface
// =============================================================================

// Store is the ledger persistence boundary. Implementations: the SQLite
// store under store/sqlite and the in-memory store under leave/store.
//
// All reads used by the calculator and adjuster are range queries so the
// whole calculation stays inside one transaction boundary at the caller.
type Store interface {
	// FindByID returns the record or a NotFoundError.
	FindByID(ctx context.Context, id RecordID) (*Record, error)

	// FindOverlapping returns every record whose date range intersects r.
	FindOverlapping(ctx context.Context, r DateRange) ([]*Record, error)

	// FindFullDayHolidaysOverlapping returns all-day holiday records
	// covering any day of r.
	FindFullDayHolidaysOverlapping(ctx context.Context, r DateRange) ([]*Record, error)

	// FindPartialHolidaysOverlapping returns holiday records with sub-day
	// time bounds intersecting r.
	FindPartialHolidaysOverlapping(ctx context.Context, r DateRange) ([]*Record, error)

	// FindDeductibleOverlapping returns deductible leave records whose
	// date range intersects r. Used by the overlap adjuster.
	FindDeductibleOverlapping(ctx context.Context, r DateRange) ([]*Record, error)

	// FindByOwner returns every record owned by the member.
	FindByOwner(ctx context.Context, ownerID int64) ([]*Record, error)

	// FindByExternalEventIDs returns records matching any of the given
	// external mirror ids. Used by the inbound calendar importer for dedup.
	FindByExternalEventIDs(ctx context.Context, ids []string) ([]*Record, error)

	// Save inserts (ID == 0) or updates (ID != 0) a record. On insert the
	// assigned ID is written back to rec; updating a row that no longer
	// exists returns a NotFoundError.
	Save(ctx context.Context, rec *Record) error

	// Delete removes a record. Deleting a missing record is an error.
	Delete(ctx context.Context, id RecordID) error
}

// MemberStore resolves members for authorization and classification.
type MemberStore interface {
	// FindMember returns the member or a NotFoundError-wrapped error.
	FindMember(ctx context.Context, id int64) (*Member, error)

	// ListMembers returns every member, for balance reporting.
	ListMembers(ctx context.Context) ([]*Member, error)
}
