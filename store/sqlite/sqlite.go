/*
Package sqlite provides the SQLite-backed ledger store.

PURPOSE:
  Implements leave.Store and leave.MemberStore on database/sql. In
  production the same patterns apply to PostgreSQL - only minor dialect
  differences.

KEY TABLES:
  leave_records:  one row per leave/holiday/non-member event
  members:        employees, with admin/classification/mirroring flags

INDEXES:
  idx_records_range:        date-range intersection queries (hot path:
                            calculator and adjuster reads)
  idx_records_owner:        balance reporting
  idx_records_external_id:  feed/mirror dedup lookups

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and there is a single writer at a time. The sync.RWMutex mirrors that
  model in-process.

USAGE:
  st, err := sqlite.New("./data/leavebridge.db")
  if err != nil { ... }
  defer st.Close()

SEE ALSO:
  - leave/store.go: interface definitions
  - leave/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// Store implements leave.Store and leave.MemberStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_date TEXT NOT NULL,
		end_minute INTEGER NOT NULL,
		all_day BOOLEAN NOT NULL DEFAULT FALSE,
		owner_id INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		is_holiday BOOLEAN NOT NULL DEFAULT FALSE,
		external_event_id TEXT NOT NULL DEFAULT '',
		used_leave_days TEXT NOT NULL DEFAULT '0',
		comment TEXT NOT NULL DEFAULT ''
	);

	-- Hot path: every calculation and adjustment starts with a
	-- date-range intersection query.
	CREATE INDEX IF NOT EXISTS idx_records_range
		ON leave_records(start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_records_owner
		ON leave_records(owner_id);
	CREATE INDEX IF NOT EXISTS idx_records_external_id
		ON leave_records(external_event_id)
		WHERE external_event_id != '';

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		classification TEXT NOT NULL DEFAULT 'domestic',
		mirrored BOOLEAN NOT NULL DEFAULT FALSE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD QUERIES
// =============================================================================

const recordColumns = `id, title, description, start_date, start_minute,
	end_date, end_minute, all_day, owner_id, leave_type, is_holiday,
	external_event_id, used_leave_days, comment`

func (s *Store) FindByID(ctx context.Context, id leave.RecordID) (*leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM leave_records WHERE id = ?`, int64(id))
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &leave.NotFoundError{ID: id}
	}
	return rec, err
}

func (s *Store) FindOverlapping(ctx context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE start_date <= ? AND end_date >= ?
		 ORDER BY start_date, id`,
		r.End.String(), r.Start.String())
}

func (s *Store) FindFullDayHolidaysOverlapping(ctx context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE is_holiday AND all_day AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date, id`,
		r.End.String(), r.Start.String())
}

func (s *Store) FindPartialHolidaysOverlapping(ctx context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE is_holiday AND NOT all_day AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date, id`,
		r.End.String(), r.Start.String())
}

func (s *Store) FindDeductibleOverlapping(ctx context.Context, r leave.DateRange) ([]*leave.Record, error) {
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE leave_type IN (`+deductiblePlaceholders+`)
		   AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date, id`,
		append(deductibleArgs(), r.End.String(), r.Start.String())...)
}

func (s *Store) FindByOwner(ctx context.Context, ownerID int64) ([]*leave.Record, error) {
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE owner_id = ? ORDER BY start_date, id`, ownerID)
}

func (s *Store) FindByExternalEventIDs(ctx context.Context, ids []string) ([]*leave.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.query(ctx,
		`SELECT `+recordColumns+` FROM leave_records
		 WHERE external_event_id IN (`+placeholders+`)
		 ORDER BY start_date, id`, args...)
}

// =============================================================================
// RECORD WRITES
// =============================================================================

func (s *Store) Save(ctx context.Context, rec *leave.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO leave_records
			 (title, description, start_date, start_minute, end_date, end_minute,
			  all_day, owner_id, leave_type, is_holiday, external_event_id,
			  used_leave_days, comment)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Title, rec.Description,
			rec.StartDate.String(), int(rec.StartTime),
			rec.EndDate.String(), int(rec.EndTime),
			rec.AllDay, rec.OwnerID, string(rec.Type), rec.Holiday,
			rec.ExternalEventID, rec.UsedLeaveDays.String(), rec.Comment)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = leave.RecordID(id)
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leave_records SET
		  title = ?, description = ?, start_date = ?, start_minute = ?,
		  end_date = ?, end_minute = ?, all_day = ?, owner_id = ?,
		  leave_type = ?, is_holiday = ?, external_event_id = ?,
		  used_leave_days = ?, comment = ?
		 WHERE id = ?`,
		rec.Title, rec.Description,
		rec.StartDate.String(), int(rec.StartTime),
		rec.EndDate.String(), int(rec.EndTime),
		rec.AllDay, rec.OwnerID, string(rec.Type), rec.Holiday,
		rec.ExternalEventID, rec.UsedLeaveDays.String(), rec.Comment,
		int64(rec.ID))
	if err != nil {
		return fmt.Errorf("update record %d: %w", rec.ID, err)
	}
	// Updating a row that vanished must not look like success; the
	// caller may be holding a record a concurrent delete already removed.
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{ID: rec.ID}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id leave.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM leave_records WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{ID: id}
	}
	return nil
}

// =============================================================================
// MEMBERS
// =============================================================================

func (s *Store) FindMember(ctx context.Context, id int64) (*leave.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_admin, classification, mirrored FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member %d: %w", id, leave.ErrNotFound)
	}
	return m, err
}

func (s *Store) ListMembers(ctx context.Context) ([]*leave.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_admin, classification, mirrored FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*leave.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SaveMember inserts (ID == 0) or updates a member.
func (s *Store) SaveMember(ctx context.Context, m *leave.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO members (name, is_admin, classification, mirrored)
			 VALUES (?, ?, ?, ?)`,
			m.Name, m.Admin, string(m.Classification), m.Mirrored)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m.ID = id
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE members SET name = ?, is_admin = ?, classification = ?, mirrored = ?
		 WHERE id = ?`,
		m.Name, m.Admin, string(m.Classification), m.Mirrored, m.ID)
	return err
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*leave.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row scanner) (*leave.Record, error) {
	var (
		rec                leave.Record
		id                 int64
		startDate, endDate string
		startMin, endMin   int
		leaveType          string
		usedDays           string
	)
	err := row.Scan(&id, &rec.Title, &rec.Description,
		&startDate, &startMin, &endDate, &endMin,
		&rec.AllDay, &rec.OwnerID, &leaveType, &rec.Holiday,
		&rec.ExternalEventID, &usedDays, &rec.Comment)
	if err != nil {
		return nil, err
	}

	rec.ID = leave.RecordID(id)
	rec.Type = leave.Type(leaveType)
	rec.StartTime = schedule.Minute(startMin)
	rec.EndTime = schedule.Minute(endMin)
	if rec.StartDate, err = leave.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("record %d: bad start_date %q: %w", id, startDate, err)
	}
	if rec.EndDate, err = leave.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("record %d: bad end_date %q: %w", id, endDate, err)
	}
	if rec.UsedLeaveDays, err = decimal.NewFromString(usedDays); err != nil {
		return nil, fmt.Errorf("record %d: bad used_leave_days %q: %w", id, usedDays, err)
	}
	return &rec, nil
}

func scanMember(row scanner) (*leave.Member, error) {
	var (
		m              leave.Member
		classification string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Admin, &classification, &m.Mirrored); err != nil {
		return nil, err
	}
	m.Classification = schedule.Classification(classification)
	return &m, nil
}

// =============================================================================
// DEDUCTIBLE TYPE SET
// =============================================================================

var deductibleTypes = []leave.Type{
	leave.TypeFullDayLeave,
	leave.TypeHalfDayMorning,
	leave.TypeHalfDayAfternoon,
	leave.TypeOuting,
	leave.TypeSummerVacation,
}

var deductiblePlaceholders = strings.TrimSuffix(
	strings.Repeat("?,", len(deductibleTypes)), ",")

func deductibleArgs() []any {
	args := make([]any, len(deductibleTypes))
	for i, t := range deductibleTypes {
		args[i] = string(t)
	}
	return args
}
