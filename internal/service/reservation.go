package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/rs/xid"
	"gopkg.in/go-playground/validator.v9"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/store"
)

// ValidationError lists the payload fields that failed validation, keyed by
// their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From model.Status
	To   model.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

// StatusNotifier is told about reservations whose status changed.
type StatusNotifier interface {
	StatusChanged(r model.Reservation) error
}

// ReservationService applies validation and lifecycle rules on top of a
// reservation store.
type ReservationService struct {
	store    store.ReservationStore
	validate *validator.Validate
	notifier StatusNotifier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewReservationService(st store.ReservationStore, logger *slog.Logger) *ReservationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		store:    st,
		validate: newValidator(),
		logger:   logger,
	}
}

// SetNotifier enables guest notifications on status changes. Pass nil to
// disable them.
func (s *ReservationService) SetNotifier(n StatusNotifier) {
	s.notifier = n
}

// Wait blocks until in-flight notifications have been delivered.
func (s *ReservationService) Wait() {
	s.wg.Wait()
}

// List returns all reservations ordered by date.
func (s *ReservationService) List(ctx context.Context) ([]model.Reservation, error) {
	list, err := s.store.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// Get returns one reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// Create validates in and stores it as a new reservation. Status defaults
// to pending.
func (s *ReservationService) Create(ctx context.Context, in model.ReservationInput) (*model.Reservation, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	r := &model.Reservation{
		ID:     xid.New().String(),
		Name:   in.Name,
		Email:  in.Email,
		People: in.People,
		Date:   in.Date.UTC(),
		Status: in.Status,
	}
	if r.Status == "" {
		r.Status = model.StatusPending
	}

	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	return r, nil
}

// maxUpdateAttempts bounds re-reads when an unversioned update races with
// another writer.
const maxUpdateAttempts = 3

// Update applies a partial update. A non-zero p.Version must match the
// stored version. Unknown IDs yield store.ErrNotFound; nothing is created.
//
// The write is always guarded by the version the transition check ran
// against. When the caller sent no version and another writer got in
// first, the record is re-read and the checks run again.
func (s *ReservationService) Update(ctx context.Context, p model.ReservationPatch) (*model.Reservation, error) {
	if err := s.checkPatch(p); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		current, err := s.store.GetReservation(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("update reservation: %w", err)
		}
		if p.Version > 0 && current.Version != p.Version {
			return nil, fmt.Errorf("update reservation: %w", store.ErrVersionConflict)
		}

		next := *current
		p.Apply(&next)
		if !current.Status.CanTransition(next.Status) {
			return nil, &TransitionError{From: current.Status, To: next.Status}
		}

		err = s.store.UpdateReservation(ctx, &next, current.Version)
		if errors.Is(err, store.ErrVersionConflict) && p.Version == 0 && attempt < maxUpdateAttempts {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update reservation: %w", err)
		}

		if next.Status != current.Status {
			s.notify(next)
		}
		return &next, nil
	}
}

// Delete removes the referenced reservation.
func (s *ReservationService) Delete(ctx context.Context, ref model.ReservationRef) error {
	if err := s.check(ref); err != nil {
		return err
	}
	if err := s.store.DeleteReservation(ctx, ref.ID, ref.Version); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

func (s *ReservationService) notify(r model.Reservation) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.notifier.StatusChanged(r); err != nil {
			s.logger.Warn("guest notification failed", "reservation", r.ID, "status", r.Status, "error", err)
		}
	}()
}

func (s *ReservationService) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

// checkPatch validates p. The omitempty rule lets an explicit empty status
// through the struct tags, so status is checked here as well.
func (s *ReservationService) checkPatch(p model.ReservationPatch) error {
	err := s.check(p)
	if p.Status == nil || p.Status.Valid() {
		return err
	}
	var verr *ValidationError
	if err == nil {
		verr = &ValidationError{Fields: map[string]string{}}
	} else if !errors.As(err, &verr) {
		return err
	}
	verr.Fields["status"] = "must be one of: pending, confirmed, cancelled"
	return verr
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
