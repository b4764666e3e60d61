// Package sqlstore persists users and reservations in SQLite, PostgreSQL or
// MySQL through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/store"
)

// Store implements store.Store on top of a SQL database.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// NewSQLite opens (or creates) the SQLite database file at path. Pass an
// empty path for an in-memory database.
func NewSQLite(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Connect(SQLite.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	return newStore(db, SQLite)
}

// Open connects to a PostgreSQL or MySQL server using dsn.
func Open(dialect Dialect, dsn string) (*Store, error) {
	if dialect == SQLite {
		return NewSQLite(dsn)
	}

	dsn, err := dialect.normalizeDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse %s dsn: %w", dialect, err)
	}

	db, err := sqlx.Connect(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", dialect, err)
	}

	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	return newStore(db, dialect)
}

func newStore(db *sqlx.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s database: %w", dialect, err)
	}
	return s, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// GetUserByUsername returns the user with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?")
	if err := s.db.GetContext(ctx, &u, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user. ID and CreatedAt must already be set by the
// caller; a zero CreatedAt is replaced with the current time.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO users (id, username, password_hash, is_admin, created_at)
		VALUES (:id, :username, :password_hash, :is_admin, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	q := "SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY username"
	if err := s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user by username.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE username = ?"), username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

const reservationColumns = "id, name, email, people, date, status, version, created_at, updated_at"

// ListReservations returns every reservation ordered by date, then id.
func (s *Store) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	list := []model.Reservation{}
	q := "SELECT " + reservationColumns + " FROM reservations ORDER BY date, id"
	if err := s.db.SelectContext(ctx, &list, q); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	for i := range list {
		normalizeTimes(&list[i])
	}
	return list, nil
}

// GetReservation returns a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var r model.Reservation
	q := s.db.Rebind("SELECT " + reservationColumns + " FROM reservations WHERE id = ?")
	if err := s.db.GetContext(ctx, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	normalizeTimes(&r)
	return &r, nil
}

// CreateReservation inserts r. The caller assigns the ID; Version, CreatedAt
// and UpdatedAt are initialised here.
func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	r.Date = r.Date.UTC()

	const q = `INSERT INTO reservations
		(id, name, email, people, date, status, version, created_at, updated_at)
		VALUES
		(:id, :name, :email, :people, :date, :status, :version, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, r); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// UpdateReservation overwrites the mutable fields of r and bumps its version.
func (s *Store) UpdateReservation(ctx context.Context, r *model.Reservation, expectedVersion int64) error {
	now := time.Now().UTC()

	q := `UPDATE reservations SET
		name = ?, email = ?, people = ?, date = ?, status = ?,
		version = version + 1, updated_at = ?
		WHERE id = ?`
	args := []interface{}{r.Name, r.Email, r.People, r.Date.UTC(), r.Status, now, r.ID}
	if expectedVersion > 0 {
		q += " AND version = ?"
		args = append(args, expectedVersion)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation rows affected: %w", err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, r.ID)
	}

	stored, err := s.GetReservation(ctx, r.ID)
	if err != nil {
		return err
	}
	*r = *stored
	return nil
}

// DeleteReservation removes a reservation by ID.
func (s *Store) DeleteReservation(ctx context.Context, id string, expectedVersion int64) error {
	q := "DELETE FROM reservations WHERE id = ?"
	args := []interface{}{id}
	if expectedVersion > 0 {
		q += " AND version = ?"
		args = append(args, expectedVersion)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation rows affected: %w", err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict explains a guarded write that touched no rows.
func (s *Store) missOrConflict(ctx context.Context, id string) error {
	var count int
	q := s.db.Rebind("SELECT COUNT(*) FROM reservations WHERE id = ?")
	if err := s.db.GetContext(ctx, &count, q, id); err != nil {
		return fmt.Errorf("check reservation: %w", err)
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrVersionConflict
}

func normalizeTimes(r *model.Reservation) {
	r.Date = r.Date.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
}
