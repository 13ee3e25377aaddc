package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("airdrop identity already exists")
	ErrLocked   = errors.New("another run holds the lock")
)

// Storage handles all database operations. Every write commits before the
// call returns.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// One connection keeps the single-writer model honest and makes
	// changes() refer to our own last statement.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS airdrops (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT NOT NULL,
			name TEXT,
			date TEXT NOT NULL,
			time TEXT,
			amount TEXT,
			points TEXT,
			price REAL,
			total_value REAL,
			phase INTEGER NOT NULL,
			type TEXT,
			status TEXT,
			contract_address TEXT,
			chain_id TEXT,
			first_seen INTEGER NOT NULL,
			last_updated INTEGER NOT NULL,
			notified_new INTEGER NOT NULL DEFAULT 0,
			notified_3min INTEGER NOT NULL DEFAULT 0,
			UNIQUE(token, date, phase)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_airdrops_date ON airdrops(date)`,

		`CREATE TABLE IF NOT EXISTS status_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			airdrop_id INTEGER REFERENCES airdrops(id) ON DELETE SET NULL,
			change_type TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			change_time INTEGER NOT NULL,
			notified INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_changes_airdrop ON status_changes(airdrop_id)`,

		`CREATE TABLE IF NOT EXISTS run_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			owner TEXT NOT NULL,
			acquired_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Airdrops ---

const airdropColumns = `id, token, name, date, time, amount, points, price, total_value, phase,
	type, status, contract_address, chain_id, first_seen, last_updated, notified_new, notified_3min`

type scanner interface {
	Scan(dest ...any) error
}

func scanAirdrop(row scanner) (*Airdrop, error) {
	var a Airdrop
	var name, tm, amount, points, typ, status, contract, chain sql.NullString
	var price, total sql.NullFloat64
	var firstSeen, lastUpdated int64

	err := row.Scan(&a.ID, &a.Token, &name, &a.Date, &tm, &amount, &points, &price, &total, &a.Phase,
		&typ, &status, &contract, &chain, &firstSeen, &lastUpdated, &a.NotifiedNew, &a.NotifiedReminder)
	if err != nil {
		return nil, err
	}

	a.Name = name.String
	a.Time = tm.String
	a.Amount = amount.String
	a.Points = points.String
	a.Type = typ.String
	a.Status = status.String
	a.ContractAddress = contract.String
	a.ChainID = chain.String
	if price.Valid {
		a.Price = &price.Float64
	}
	if total.Valid {
		a.TotalValue = &total.Float64
	}
	a.FirstSeen = time.Unix(firstSeen, 0)
	a.LastUpdated = time.Unix(lastUpdated, 0)

	return &a, nil
}

// GetAirdrop returns the row for an identity, or ErrNotFound
func (s *Storage) GetAirdrop(key Key) (*Airdrop, error) {
	row := s.db.QueryRow(
		`SELECT `+airdropColumns+` FROM airdrops WHERE token = ? AND date = ? AND phase = ?`,
		key.Token, key.Date, key.Phase,
	)

	a, err := scanAirdrop(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get airdrop: %w", err)
	}
	return a, nil
}

// GetAirdropByID returns the row with id, or ErrNotFound
func (s *Storage) GetAirdropByID(id int64) (*Airdrop, error) {
	row := s.db.QueryRow(`SELECT `+airdropColumns+` FROM airdrops WHERE id = ?`, id)

	a, err := scanAirdrop(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get airdrop %d: %w", id, err)
	}
	return a, nil
}

// InsertAirdrop stores a first observation and returns its id.
// Returns ErrConflict if the identity already exists.
func (s *Storage) InsertAirdrop(a *Airdrop) (int64, error) {
	now := s.now().Unix()
	result, err := s.db.Exec(
		`INSERT INTO airdrops
		 (token, name, date, time, amount, points, price, total_value, phase, type, status,
		  contract_address, chain_id, first_seen, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Token, a.Name, a.Date, a.Time, a.Amount, a.Points, a.Price, a.TotalValue, a.Phase,
		a.Type, a.Status, a.ContractAddress, a.ChainID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert airdrop: %w", err)
	}

	return result.LastInsertId()
}

// UpdateAirdrop overwrites the mutable fields and bumps last_updated.
// Identity columns and notification flags are left alone.
func (s *Storage) UpdateAirdrop(id int64, a *Airdrop) error {
	result, err := s.db.Exec(
		`UPDATE airdrops
		 SET name = ?, time = ?, amount = ?, points = ?, price = ?, total_value = ?,
		     type = ?, status = ?, contract_address = ?, chain_id = ?, last_updated = ?
		 WHERE id = ?`,
		a.Name, a.Time, a.Amount, a.Points, a.Price, a.TotalValue,
		a.Type, a.Status, a.ContractAddress, a.ChainID, s.now().Unix(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update airdrop: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkNotifiedNew sets notified_new. Idempotent.
func (s *Storage) MarkNotifiedNew(id int64) error {
	_, err := s.db.Exec("UPDATE airdrops SET notified_new = 1 WHERE id = ?", id)
	return err
}

// MarkNotifiedReminder sets notified_3min. Idempotent.
func (s *Storage) MarkNotifiedReminder(id int64) error {
	_, err := s.db.Exec("UPDATE airdrops SET notified_3min = 1 WHERE id = ?", id)
	return err
}

// FindDueForReminder returns rows for date that have a time and have not
// had their reminder burst yet
func (s *Storage) FindDueForReminder(date string) ([]Airdrop, error) {
	return s.queryAirdrops(
		`SELECT `+airdropColumns+` FROM airdrops
		 WHERE date = ? AND time IS NOT NULL AND TRIM(time) != '' AND notified_3min = 0
		 ORDER BY time, id`,
		date,
	)
}

// ListByDate returns every stored row for date
func (s *Storage) ListByDate(date string) ([]Airdrop, error) {
	return s.queryAirdrops(
		`SELECT `+airdropColumns+` FROM airdrops WHERE date = ? ORDER BY time, token, phase`,
		date,
	)
}

// DeleteAirdrop removes a row. Its audit records stay, with a NULL reference.
func (s *Storage) DeleteAirdrop(id int64) error {
	result, err := s.db.Exec("DELETE FROM airdrops WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) queryAirdrops(query string, args ...any) ([]Airdrop, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var airdrops []Airdrop
	for rows.Next() {
		a, err := scanAirdrop(rows)
		if err != nil {
			return nil, err
		}
		airdrops = append(airdrops, *a)
	}

	return airdrops, rows.Err()
}

// --- Status changes ---

// AppendStatusChange records a transition that passed the notify policy.
// No dedup: the same transition may be recorded again on a later run.
func (s *Storage) AppendStatusChange(airdropID int64, changeType, oldValue, newValue string) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO status_changes (airdrop_id, change_type, old_value, new_value, change_time, notified)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		airdropID, changeType, oldValue, newValue, s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("append status change: %w", err)
	}

	return result.LastInsertId()
}

// ListStatusChanges returns the audit log of one airdrop, oldest first
func (s *Storage) ListStatusChanges(airdropID int64) ([]StatusChange, error) {
	rows, err := s.db.Query(
		`SELECT id, airdrop_id, change_type, old_value, new_value, change_time, notified
		 FROM status_changes WHERE airdrop_id = ? ORDER BY id`,
		airdropID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []StatusChange
	for rows.Next() {
		c, err := scanStatusChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *c)
	}

	return changes, rows.Err()
}

// ListOrphanedStatusChanges returns audit records whose airdrop was deleted
func (s *Storage) ListOrphanedStatusChanges() ([]StatusChange, error) {
	rows, err := s.db.Query(
		`SELECT id, airdrop_id, change_type, old_value, new_value, change_time, notified
		 FROM status_changes WHERE airdrop_id IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []StatusChange
	for rows.Next() {
		c, err := scanStatusChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *c)
	}

	return changes, rows.Err()
}

func scanStatusChange(row scanner) (*StatusChange, error) {
	var c StatusChange
	var airdropID sql.NullInt64
	var oldValue, newValue sql.NullString
	var changeTime int64

	if err := row.Scan(&c.ID, &airdropID, &c.ChangeType, &oldValue, &newValue, &changeTime, &c.Notified); err != nil {
		return nil, err
	}
	c.AirdropID = airdropID.Int64
	c.OldValue = oldValue.String
	c.NewValue = newValue.String
	c.ChangeTime = time.Unix(changeTime, 0)
	return &c, nil
}

// --- Run lock ---

// AcquireRunLock takes the single run lease for owner, replacing an expired
// lease. Returns ErrLocked while another owner's lease is live.
func (s *Storage) AcquireRunLock(owner string, ttl time.Duration) error {
	now := s.now()
	result, err := s.db.Exec(
		`INSERT INTO run_lock (id, owner, acquired_at, expires_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		 WHERE run_lock.expires_at <= ? OR run_lock.owner = excluded.owner`,
		owner, now.Unix(), now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrLocked
	}
	return nil
}

// ReleaseRunLock drops the lease if owner still holds it
func (s *Storage) ReleaseRunLock(owner string) error {
	_, err := s.db.Exec("DELETE FROM run_lock WHERE id = 1 AND owner = ?", owner)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
