package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/service"
	"github.com/reservadesk/reservadesk/internal/store"
)

// ReservationHandler serves the admin-only /api/reservations collection.
// Authentication is enforced by middleware before these handlers run.
type ReservationHandler struct {
	svc    *service.ReservationService
	logger *slog.Logger
}

func NewReservationHandler(svc *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationHandler{svc: svc, logger: logger}
}

// List returns all reservations.
// GET /api/reservations
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to fetch reservations")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create stores a new reservation.
// POST /api/reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.ReservationInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err, "Failed to create reservation")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Update applies a partial update identified by the id in the body.
// PUT /api/reservations
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ReservationPatch
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.Update(r.Context(), patch)
	if err != nil {
		h.fail(w, err, "Failed to update reservation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete removes the reservation identified by the id in the body.
// DELETE /api/reservations
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var ref model.ReservationRef
	if err := readJSON(w, r, &ref); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.Delete(r.Context(), ref); err != nil {
		h.fail(w, err, "Failed to delete reservation")
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Reservation deleted successfully"})
}

// fail maps service and store errors to responses. Unexpected errors are
// logged and reported with the generic fallback message only.
func (h *ReservationHandler) fail(w http.ResponseWriter, err error, fallback string) {
	var verr *service.ValidationError
	var terr *service.TransitionError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Validation failed", verr.Fields)
	case errors.As(err, &terr):
		writeError(w, http.StatusUnprocessableEntity, terr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Reservation not found")
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "Reservation was modified by another request")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
