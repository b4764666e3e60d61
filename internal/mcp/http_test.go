package mcp

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reservadesk/reservadesk/internal/model"
	"github.com/reservadesk/reservadesk/internal/service"
	"github.com/reservadesk/reservadesk/internal/store/sqlstore"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`

func TestHTTPTransportRequiresAdminToken(t *testing.T) {
	st, err := sqlstore.NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := service.NewAuthService(st, "mcp-http-secret", time.Hour)
	srv := NewMCPServer(service.NewReservationService(st, logger), "test", logger)
	ts := httptest.NewServer(srv.Handler(authSvc))
	defer ts.Close()

	adminToken, err := authSvc.IssueToken(&model.User{ID: "u1", Username: "admin", IsAdmin: true})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	viewerToken, err := authSvc.IssueToken(&model.User{ID: "u2", Username: "viewer"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	foreign := service.NewAuthService(st, "some-other-secret", time.Hour)
	foreignToken, _ := foreign.IssueToken(&model.User{ID: "u1", Username: "admin", IsAdmin: true})

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"malformed header", "Token " + adminToken, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreignToken, http.StatusUnauthorized},
		{"non-admin token", "Bearer " + viewerToken, http.StatusUnauthorized},
		{"admin token", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+HTTPPath, strings.NewReader(initializeBody))
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json, text/event-stream")
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("POST %s: %v", HTTPPath, err)
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
			if tt.wantStatus == http.StatusUnauthorized && strings.TrimSpace(string(body)) != `{"error":"Unauthorized"}` {
				t.Errorf("unexpected 401 body: %s", body)
			}
		})
	}
}
