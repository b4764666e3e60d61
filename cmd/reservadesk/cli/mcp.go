package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rmcp "github.com/reservadesk/reservadesk/internal/mcp"
	"github.com/reservadesk/reservadesk/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes reservation operations
as tools for AI agents. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with desktop MCP clients.

In HTTP mode every request must carry an admin session token
("Authorization: Bearer <token>" from /api/login), so auth.jwt_secret must
match the one used by 'reservadesk serve'.`,
		Example: `  reservadesk mcp                            # stdio mode
  reservadesk mcp --transport http --port 3001  # streamable HTTP on 127.0.0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, host, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host (only used with --transport http)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport, host string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol in stdio mode, so logs always go to stderr.
	logger := newLogger(cfg.Log, os.Stderr)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reservations := service.NewReservationService(st, logger)
	defer reservations.Wait()
	if err := attachNotifier(reservations, cfg, logger); err != nil {
		return err
	}

	mcpSrv := rmcp.NewMCPServer(reservations, versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required for the http transport")
		}
		ttl, _ := cfg.TokenTTL()
		authSvc := service.NewAuthService(st, cfg.Auth.JWTSecret, ttl)
		return mcpSrv.ServeHTTP(fmt.Sprintf("%s:%d", host, port), authSvc)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
