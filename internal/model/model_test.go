package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "PENDING", "archived"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusCancelled, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, "archived", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservationPatchApply(t *testing.T) {
	date := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	r := Reservation{
		ID:     "r1",
		Name:   "Ana",
		Email:  "a@x.com",
		People: 2,
		Date:   date,
		Status: StatusPending,
	}

	people := 4
	status := StatusConfirmed
	ReservationPatch{ID: "r1", People: &people, Status: &status}.Apply(&r)

	if r.People != 4 {
		t.Errorf("People = %d, want 4", r.People)
	}
	if r.Status != StatusConfirmed {
		t.Errorf("Status = %q, want confirmed", r.Status)
	}
	if r.Name != "Ana" || r.Email != "a@x.com" || !r.Date.Equal(date) {
		t.Errorf("untouched fields changed: %+v", r)
	}
}

func TestReservationPatchApplyNormalizesDate(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2024, 5, 1, 22, 0, 0, 0, loc)

	var r Reservation
	ReservationPatch{Date: &local}.Apply(&r)

	if r.Date.Location() != time.UTC {
		t.Errorf("date location = %v, want UTC", r.Date.Location())
	}
	if !r.Date.Equal(local) {
		t.Errorf("date = %v, want instant %v", r.Date, local)
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	u := User{ID: "u1", Username: "admin", PasswordHash: "$2a$10$secret", IsAdmin: true}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(b), "secret") || strings.Contains(string(b), "password") {
		t.Errorf("password hash leaked into JSON: %s", b)
	}
}

func TestUserSummary(t *testing.T) {
	u := &User{ID: "u1", Username: "admin", PasswordHash: "x", IsAdmin: true}
	s := u.Summary()
	if s.ID != "u1" || s.Username != "admin" || !s.IsAdmin {
		t.Errorf("Summary = %+v", s)
	}
}

func TestErrorResponseOmitsEmptyFields(t *testing.T) {
	b, _ := json.Marshal(ErrorResponse{Error: "Unauthorized"})
	if string(b) != `{"error":"Unauthorized"}` {
		t.Errorf("got %s", b)
	}
}
