package model

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the statuses reachable from each state. Writing the
// current status again is always allowed and is not listed here.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

// CanTransition reports whether a reservation in state s may move to next.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation is a booking with guest contact details, party size, date and
// lifecycle status. Version increments on every successful update and is used
// for optimistic concurrency checks.
type Reservation struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	People    int       `json:"people" db:"people"`
	Date      time.Time `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ReservationInput is the payload accepted when creating a reservation.
type ReservationInput struct {
	Name   string    `json:"name" validate:"required,max=200"`
	Email  string    `json:"email" validate:"required,email,max=254"`
	People int       `json:"people" validate:"required,min=1,max=500"`
	Date   time.Time `json:"date" validate:"required"`
	Status Status    `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
}

// ReservationPatch is a partial update. Nil fields are left untouched. A zero
// Version disables the optimistic concurrency check.
type ReservationPatch struct {
	ID      string     `json:"id" validate:"required"`
	Version int64      `json:"version,omitempty" validate:"min=0"`
	Name    *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string    `json:"email,omitempty" validate:"omitempty,email,max=254"`
	People  *int       `json:"people,omitempty" validate:"omitempty,min=1,max=500"`
	Date    *time.Time `json:"date,omitempty"`
	Status  *Status    `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed cancelled"`
}

// Apply copies the non-nil fields of p onto r.
func (p ReservationPatch) Apply(r *Reservation) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.People != nil {
		r.People = *p.People
	}
	if p.Date != nil {
		r.Date = p.Date.UTC()
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// ReservationRef identifies a reservation for deletion.
type ReservationRef struct {
	ID      string `json:"id" validate:"required"`
	Version int64  `json:"version,omitempty" validate:"min=0"`
}
