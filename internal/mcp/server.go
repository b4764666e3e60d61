// Package mcp exposes reservation administration to AI agents over the
// Model Context Protocol.
package mcp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reservadesk/reservadesk/internal/server/middleware"
	"github.com/reservadesk/reservadesk/internal/service"
)

// HTTPPath is where the streamable HTTP transport is mounted.
const HTTPPath = "/mcp"

// MCPServer wraps the mcp-go server with the reservation tools and
// resources registered.
type MCPServer struct {
	reservations *service.ReservationService
	logger       *slog.Logger
	server       *server.MCPServer
}

// NewMCPServer creates an MCPServer ready to serve over stdio or HTTP.
func NewMCPServer(reservations *service.ReservationService, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		reservations: reservations,
		logger:       logger,
	}

	mcpServer := server.NewMCPServer(
		"reservadesk",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP over stdin/stdout for clients that launch the
// binary as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// Handler returns the streamable HTTP transport mounted at HTTPPath. Every
// request needs an admin bearer token, the same as /api/reservations.
func (s *MCPServer) Handler(verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.RequireAdmin())
	r.Handle(HTTPPath, server.NewStreamableHTTPServer(s.server))
	return r
}

// ServeHTTP serves Handler on addr (e.g. "127.0.0.1:3001").
func (s *MCPServer) ServeHTTP(addr string, verifier middleware.TokenVerifier) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(verifier),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("MCP HTTP server starting", "addr", addr, "path", HTTPPath)
	return httpServer.ListenAndServe()
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation(destructive bool) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(destructive),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
