package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/service"
)

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// Login exchanges a username and password for a session token.
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.authSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{Token: res.Token, User: res.User})
}
