package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/store"
	"github.com/reservadesk/reservadesk/internal/store/sqlstore"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []model.Reservation
	err  error
}

func (n *recordingNotifier) StatusChanged(r model.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, r)
	return n.err
}

func newTestReservations(t *testing.T) *ReservationService {
	t.Helper()
	s, err := sqlstore.NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewReservationService(s, nil)
}

func validInput() model.ReservationInput {
	return model.ReservationInput{
		Name:   "Ana",
		Email:  "ana@example.com",
		People: 4,
		Date:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
	}
}

func statusPtr(s model.Status) *model.Status { return &s }

func TestCreateDefaultsToPending(t *testing.T) {
	svc := newTestReservations(t)

	r, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == "" {
		t.Error("expected generated ID")
	}
	if r.Status != model.StatusPending {
		t.Errorf("got status %q, want pending", r.Status)
	}
	if r.Version != 1 {
		t.Errorf("got version %d, want 1", r.Version)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestReservations(t)

	tests := []struct {
		name      string
		mutate    func(*model.ReservationInput)
		wantField string
	}{
		{"missing email", func(in *model.ReservationInput) { in.Email = "" }, "email"},
		{"bad email", func(in *model.ReservationInput) { in.Email = "not-an-email" }, "email"},
		{"missing name", func(in *model.ReservationInput) { in.Name = "" }, "name"},
		{"zero people", func(in *model.ReservationInput) { in.People = 0 }, "people"},
		{"negative people", func(in *model.ReservationInput) { in.People = -2 }, "people"},
		{"missing date", func(in *model.ReservationInput) { in.Date = time.Time{} }, "date"},
		{"unknown status", func(in *model.ReservationInput) { in.Status = "archived" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("expected field %q in %v", tt.wantField, verr.Fields)
			}
		})
	}
}

func TestUpdateTransitions(t *testing.T) {
	tests := []struct {
		from, to model.Status
		ok       bool
	}{
		{model.StatusPending, model.StatusConfirmed, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusConfirmed, true},
		{model.StatusConfirmed, model.StatusPending, false},
		{model.StatusCancelled, model.StatusConfirmed, false},
		{model.StatusCancelled, model.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			svc := newTestReservations(t)
			ctx := context.Background()
			in := validInput()
			in.Status = tt.from
			r, err := svc.Create(ctx, in)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, Status: statusPtr(tt.to)})
			if tt.ok {
				if err != nil {
					t.Fatalf("Update: %v", err)
				}
				return
			}
			var terr *TransitionError
			if !errors.As(err, &terr) {
				t.Fatalf("got %v, want TransitionError", err)
			}
			if terr.Error() != "Invalid status transition from "+string(tt.from)+" to "+string(tt.to) {
				t.Errorf("unexpected message %q", terr.Error())
			}
			list, _ := svc.List(ctx)
			if list[0].Status != tt.from || list[0].Version != 1 {
				t.Errorf("record changed after rejected transition: %+v", list[0])
			}
		})
	}
}

func TestUpdatePartialAndVersion(t *testing.T) {
	svc := newTestReservations(t)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validInput())

	people := 6
	updated, err := svc.Update(ctx, model.ReservationPatch{ID: r.ID, Version: 1, People: &people})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.People != 6 || updated.Name != "Ana" || updated.Version != 2 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, Version: 1, Status: statusPtr(model.StatusConfirmed)})
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("stale version: got %v, want ErrVersionConflict", err)
	}

	empty := ""
	_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, Name: &empty})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("empty name: got %v, want ValidationError", err)
	}

	_, err = svc.Update(ctx, model.ReservationPatch{ID: "missing", Status: statusPtr(model.StatusConfirmed)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}

	_, err = svc.Update(ctx, model.ReservationPatch{})
	if !errors.As(err, &verr) || verr.Fields["id"] == "" {
		t.Errorf("missing id: got %v, want ValidationError on id", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestReservations(t)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validInput())

	if err := svc.Delete(ctx, model.ReservationRef{ID: r.ID, Version: 3}); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("stale delete: got %v, want ErrVersionConflict", err)
	}
	if err := svc.Delete(ctx, model.ReservationRef{ID: r.ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, model.ReservationRef{ID: r.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestStatusChangeNotifies(t *testing.T) {
	svc := newTestReservations(t)
	n := &recordingNotifier{err: errors.New("smtp down")}
	svc.SetNotifier(n)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validInput())

	people := 2
	if _, err := svc.Update(ctx, model.ReservationPatch{ID: r.ID, People: &people}); err != nil {
		t.Fatalf("Update people: %v", err)
	}
	if _, err := svc.Update(ctx, model.ReservationPatch{ID: r.ID, Status: statusPtr(model.StatusConfirmed)}); err != nil {
		t.Fatalf("Update status: %v", err)
	}
	svc.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.seen))
	}
	if n.seen[0].Status != model.StatusConfirmed {
		t.Errorf("notified status %q, want confirmed", n.seen[0].Status)
	}
}

// interleavingStore lets another writer change a reservation right after the
// service has read it, while the service still sees the old snapshot.
type interleavingStore struct {
	*sqlstore.Store
	writes int // remaining interleaved writes
	mutate func(*model.Reservation)
}

func (s *interleavingStore) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	snapshot, err := s.Store.GetReservation(ctx, id)
	if err != nil || s.writes == 0 {
		return snapshot, err
	}
	s.writes--
	other := *snapshot
	s.mutate(&other)
	if err := s.Store.UpdateReservation(ctx, &other, 0); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func newInterleavingReservations(t *testing.T, mutate func(*model.Reservation)) (*ReservationService, *interleavingStore) {
	t.Helper()
	base, err := sqlstore.NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { base.Close() })
	st := &interleavingStore{Store: base, mutate: mutate}
	return NewReservationService(st, nil), st
}

func TestUpdateRechecksTransitionAfterConcurrentWrite(t *testing.T) {
	svc, st := newInterleavingReservations(t, func(r *model.Reservation) { r.Status = model.StatusCancelled })
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	ctx := context.Background()

	r, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	st.writes = 1
	_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, Status: statusPtr(model.StatusConfirmed)})
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v, want TransitionError", err)
	}
	if terr.From != model.StatusCancelled || terr.To != model.StatusConfirmed {
		t.Errorf("unexpected transition %s -> %s", terr.From, terr.To)
	}
	svc.Wait()

	got, err := st.Store.GetReservation(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if len(n.seen) != 0 {
		t.Errorf("no mail expected for a rejected change, got %d", len(n.seen))
	}
}

func TestUpdateRetriesUnversionedFieldChange(t *testing.T) {
	svc, st := newInterleavingReservations(t, func(r *model.Reservation) { r.Name = "Luis" })
	ctx := context.Background()
	r, _ := svc.Create(ctx, validInput())

	st.writes = 1
	people := 8
	updated, err := svc.Update(ctx, model.ReservationPatch{ID: r.ID, People: &people})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.People != 8 || updated.Name != "Luis" || updated.Version != 3 {
		t.Errorf("unexpected result after retry: %+v", updated)
	}

	// A writer that wins every round eventually surfaces as a conflict.
	st.writes = maxUpdateAttempts
	_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, People: &people})
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("got %v, want ErrVersionConflict", err)
	}
}

func TestUpdateRejectsEmptyStatus(t *testing.T) {
	svc := newTestReservations(t)
	ctx := context.Background()
	r, _ := svc.Create(ctx, validInput())

	_, err := svc.Update(ctx, model.ReservationPatch{ID: r.ID, Status: statusPtr("")})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["status"] == "" {
		t.Fatalf("got %v, want ValidationError on status", err)
	}

	empty := ""
	_, err = svc.Update(ctx, model.ReservationPatch{ID: r.ID, Name: &empty, Status: statusPtr("")})
	if !errors.As(err, &verr) || verr.Fields["status"] == "" || verr.Fields["name"] == "" {
		t.Errorf("got %v, want ValidationError on name and status", err)
	}
}
