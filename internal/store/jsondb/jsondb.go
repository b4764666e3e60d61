// Package jsondb stores users and reservations as JSON documents on disk,
// one file per record, using scribble.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sdomino/scribble"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/store"
)

const (
	usersCollection        = "users"
	reservationsCollection = "reservations"
)

// JsonDB implements store.Store on a directory of JSON files.
type JsonDB struct {
	conn   *scribble.Driver
	dbPath string

	// scribble only locks single writes; read-compare-write cycles need
	// their own lock.
	mu sync.Mutex
}

var _ store.Store = (*JsonDB)(nil)

// userRecord is the on-disk form of a user. model.User hides its hash from
// JSON so it cannot be written directly.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r userRecord) user() model.User {
	return model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    r.CreatedAt,
	}
}

// New opens the document store rooted at dbPath, creating the collection
// directories if needed.
func New(dbPath string) (*JsonDB, error) {
	conn, err := scribble.New(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("open json store: %w", err)
	}
	for _, c := range []string{usersCollection, reservationsCollection} {
		if err := os.MkdirAll(filepath.Join(dbPath, c), 0755); err != nil {
			return nil, fmt.Errorf("create %s collection: %w", c, err)
		}
	}
	return &JsonDB{conn: conn, dbPath: dbPath}, nil
}

// Ping checks that the store directory is still reachable.
func (o *JsonDB) Ping(ctx context.Context) error {
	if _, err := os.Stat(o.dbPath); err != nil {
		return fmt.Errorf("json store: %w", err)
	}
	return nil
}

// Close is a no-op; every operation opens and closes its own files.
func (o *JsonDB) Close() error { return nil }

// validKey rejects resource names that would escape the collection directory.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid record key %q", key)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (o *JsonDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if validKey(username) != nil {
		return nil, store.ErrNotFound
	}
	var rec userRecord
	if err := o.conn.Read(usersCollection, username, &rec); err != nil {
		if isNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read user: %w", err)
	}
	u := rec.user()
	return &u, nil
}

func (o *JsonDB) CreateUser(ctx context.Context, u *model.User) error {
	if err := validKey(u.Username); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var existing userRecord
	err := o.conn.Read(usersCollection, u.Username, &existing)
	if err == nil {
		return store.ErrDuplicate
	}
	if !isNotExist(err) {
		return fmt.Errorf("read user: %w", err)
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	rec := userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
	if err := o.conn.Write(usersCollection, u.Username, rec); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

func (o *JsonDB) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	results, err := o.conn.ReadAll(usersCollection)
	if err != nil {
		if isNotExist(err) {
			return users, nil
		}
		return nil, fmt.Errorf("read users: %w", err)
	}
	for _, i := range results {
		var rec userRecord
		if err := json.Unmarshal([]byte(i), &rec); err != nil {
			return nil, fmt.Errorf("cannot decode user json structure: %w", err)
		}
		users = append(users, rec.user())
	}
	sort.Slice(users, func(a, b int) bool { return users[a].Username < users[b].Username })
	return users, nil
}

func (o *JsonDB) DeleteUser(ctx context.Context, username string) error {
	if validKey(username) != nil {
		return store.ErrNotFound
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var rec userRecord
	if err := o.conn.Read(usersCollection, username, &rec); err != nil {
		if isNotExist(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("read user: %w", err)
	}
	if err := o.conn.Delete(usersCollection, username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

// ListReservations returns every reservation ordered by date, then id.
func (o *JsonDB) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	list := []model.Reservation{}
	results, err := o.conn.ReadAll(reservationsCollection)
	if err != nil {
		if isNotExist(err) {
			return list, nil
		}
		return nil, fmt.Errorf("read reservations: %w", err)
	}
	for _, i := range results {
		var r model.Reservation
		if err := json.Unmarshal([]byte(i), &r); err != nil {
			return nil, fmt.Errorf("cannot decode reservation json structure: %w", err)
		}
		list = append(list, r)
	}
	sort.Slice(list, func(a, b int) bool {
		if !list[a].Date.Equal(list[b].Date) {
			return list[a].Date.Before(list[b].Date)
		}
		return list[a].ID < list[b].ID
	})
	return list, nil
}

func (o *JsonDB) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if validKey(id) != nil {
		return nil, store.ErrNotFound
	}
	return o.readReservation(id)
}

func (o *JsonDB) readReservation(id string) (*model.Reservation, error) {
	var r model.Reservation
	if err := o.conn.Read(reservationsCollection, id, &r); err != nil {
		if isNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read reservation: %w", err)
	}
	return &r, nil
}

func (o *JsonDB) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if err := validKey(r.ID); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.readReservation(r.ID); err == nil {
		return store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	r.Date = r.Date.UTC()
	if err := o.conn.Write(reservationsCollection, r.ID, r); err != nil {
		return fmt.Errorf("write reservation: %w", err)
	}
	return nil
}

func (o *JsonDB) UpdateReservation(ctx context.Context, r *model.Reservation, expectedVersion int64) error {
	if validKey(r.ID) != nil {
		return store.ErrNotFound
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.readReservation(r.ID)
	if err != nil {
		return err
	}
	if expectedVersion > 0 && current.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	next := *r
	next.Date = next.Date.UTC()
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	if err := o.conn.Write(reservationsCollection, next.ID, next); err != nil {
		return fmt.Errorf("write reservation: %w", err)
	}
	*r = next
	return nil
}

func (o *JsonDB) DeleteReservation(ctx context.Context, id string, expectedVersion int64) error {
	if validKey(id) != nil {
		return store.ErrNotFound
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.readReservation(id)
	if err != nil {
		return err
	}
	if expectedVersion > 0 && current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	if err := o.conn.Delete(reservationsCollection, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}
