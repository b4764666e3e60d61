// Package store defines the persistence contract shared by the SQL and JSON
// document backends.
package store

import (
	"context"
	"errors"

	"github.com/reservadesk/reservadesk/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key (username) is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when an expected version does not match
	// the stored one.
	ErrVersionConflict = errors.New("version conflict")
)

// UserStore holds the credential collection.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, username string) error
}

// ReservationStore holds the reservation collection.
//
// UpdateReservation and DeleteReservation take the version the caller last
// saw; zero skips the check. A successful update stores r with its version
// incremented and refreshes r.Version and r.UpdatedAt.
type ReservationStore interface {
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation, expectedVersion int64) error
	DeleteReservation(ctx context.Context, id string, expectedVersion int64) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	ReservationStore
	Ping(ctx context.Context) error
	Close() error
}
