package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/service"
	"github.com/reservadesk/reservadesk/internal/store/sqlstore"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds shared state for handler tests.
type testEnv struct {
	store   *sqlstore.Store
	authSvc *service.AuthService
	router  chi.Router
}

// newTestEnv mounts the handlers on a bare router (no auth middleware) over
// an in-memory store seeded with one admin user.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlstore.NewSQLite("")
	if err != nil {
		t.Fatalf("sqlstore.NewSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := st.CreateUser(context.Background(), &model.User{ID: "admin-id", Username: "admin", PasswordHash: hash, IsAdmin: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, testJWTSecret, time.Hour)
	authHandler := NewAuthHandler(authSvc, logger)
	resHandler := NewReservationHandler(service.NewReservationService(st, logger), logger)

	r := chi.NewRouter()
	r.Post("/api/login", authHandler.Login)
	r.Get("/api/reservations", resHandler.List)
	r.Post("/api/reservations", resHandler.Create)
	r.Put("/api/reservations", resHandler.Update)
	r.Delete("/api/reservations", resHandler.Delete)

	return &testEnv{store: st, authSvc: authSvc, router: r}
}

// do sends a request with a raw string body and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return e.do(t, method, path, string(b))
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func (e *testEnv) create(t *testing.T) model.Reservation {
	t.Helper()
	rr := e.do(t, "POST", "/api/reservations",
		`{"name":"Ana","email":"ana@example.com","people":4,"date":"2026-05-01T20:00:00Z"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[model.Reservation](t, rr)
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/api/login", model.LoginRequest{Username: "admin", Password: testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[model.LoginResponse](t, rr)
	if resp.Token == "" {
		t.Fatal("expected token")
	}
	if resp.User.ID != "admin-id" || resp.User.Username != "admin" || !resp.User.IsAdmin {
		t.Errorf("unexpected user %+v", resp.User)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Error("response must not mention the password hash")
	}
	if _, err := env.authSvc.VerifyToken(resp.Token); err != nil {
		t.Errorf("issued token does not verify: %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"wrong password", `{"username":"admin","password":"nope"}`, 401, "Invalid credentials"},
		{"unknown user", `{"username":"ghost","password":"x"}`, 401, "Invalid credentials"},
		{"empty fields", `{"username":"","password":""}`, 401, "Invalid credentials"},
		{"malformed json", `{"username":`, 400, "Invalid request body"},
		{"empty body", ``, 400, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/login", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			resp := decode[model.ErrorResponse](t, rr)
			if resp.Error != tt.wantError {
				t.Errorf("error: got %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

func TestListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/reservations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestCreateReservation(t *testing.T) {
	env := newTestEnv(t)

	r := env.create(t)
	if r.ID == "" || r.Status != model.StatusPending || r.Version != 1 {
		t.Errorf("unexpected reservation %+v", r)
	}

	list := decode[[]model.Reservation](t, env.do(t, "GET", "/api/reservations", ""))
	if len(list) != 1 || list[0].ID != r.ID {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestCreateValidationError(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/reservations", `{"name":"Ana","people":4,"date":"2026-05-01T20:00:00Z"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := decode[model.ErrorResponse](t, rr)
	if resp.Error != "Validation failed" {
		t.Errorf("error: got %q", resp.Error)
	}
	if resp.Fields["email"] == "" {
		t.Errorf("expected fields.email, got %v", resp.Fields)
	}

	rr = env.do(t, "POST", "/api/reservations", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", rr.Code)
	}
}

func TestUpdateReservation(t *testing.T) {
	env := newTestEnv(t)
	r := env.create(t)

	rr := env.doJSON(t, "PUT", "/api/reservations", map[string]interface{}{"id": r.ID, "status": "confirmed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[model.Reservation](t, rr)
	if got.Status != model.StatusConfirmed || got.Version != 2 || got.Name != "Ana" {
		t.Errorf("unexpected update result %+v", got)
	}
}

func TestUpdateErrors(t *testing.T) {
	env := newTestEnv(t)
	r := env.create(t)

	// Move to cancelled so the terminal-state check can be exercised.
	env.doJSON(t, "PUT", "/api/reservations", map[string]interface{}{"id": r.ID, "status": "cancelled"})

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"unknown id", map[string]interface{}{"id": "missing", "status": "confirmed"}, 404, "Reservation not found"},
		{"invalid transition", map[string]interface{}{"id": r.ID, "status": "confirmed"}, 422, "Invalid status transition from cancelled to confirmed"},
		{"stale version", map[string]interface{}{"id": r.ID, "version": 1, "people": 3}, 409, "Reservation was modified by another request"},
		{"bad status value", map[string]interface{}{"id": r.ID, "status": "archived"}, 400, "Validation failed"},
		{"empty status value", map[string]interface{}{"id": r.ID, "status": ""}, 400, "Validation failed"},
		{"missing id", map[string]interface{}{"status": "confirmed"}, 400, "Validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doJSON(t, "PUT", "/api/reservations", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if resp := decode[model.ErrorResponse](t, rr); resp.Error != tt.wantError {
				t.Errorf("error: got %q, want %q", resp.Error, tt.wantError)
			}
		})
	}

	list := decode[[]model.Reservation](t, env.do(t, "GET", "/api/reservations", ""))
	if len(list) != 1 || list[0].Status != model.StatusCancelled || list[0].Version != 2 {
		t.Errorf("record changed by rejected updates: %+v", list)
	}
}

func TestDeleteReservation(t *testing.T) {
	env := newTestEnv(t)
	r := env.create(t)

	rr := env.doJSON(t, "DELETE", "/api/reservations", map[string]interface{}{"id": r.ID, "version": 9})
	if rr.Code != http.StatusConflict {
		t.Fatalf("stale delete: expected 409, got %d", rr.Code)
	}

	rr = env.doJSON(t, "DELETE", "/api/reservations", map[string]interface{}{"id": r.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if msg := decode[model.MessageResponse](t, rr); msg.Message != "Reservation deleted successfully" {
		t.Errorf("message: got %q", msg.Message)
	}

	rr = env.doJSON(t, "DELETE", "/api/reservations", map[string]interface{}{"id": r.ID})
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rr.Code)
	}
}

func TestStoreFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.store.Close()

	rr := env.do(t, "GET", "/api/reservations", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if resp := decode[model.ErrorResponse](t, rr); resp.Error != "Failed to fetch reservations" {
		t.Errorf("error: got %q", resp.Error)
	}
}
