package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reservadesk/reservadesk/internal/server"
	"github.com/reservadesk/reservadesk/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reservation API server",
		Long:  "Start the HTTP server that exposes the login and reservation endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)

	// 1. Open the store
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened", "data_dir", resolveDataDir())

	// 2. Auth service and first-run admin
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = randomSecret()
		if err != nil {
			st.Close()
			return err
		}
		logger.Warn("auth.jwt_secret not set; using a random secret, sessions end on restart")
	}
	ttl, _ := cfg.TokenTTL()
	authSvc := service.NewAuthService(st, jwtSecret, ttl)

	created, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		st.Close()
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("created admin account", "username", cfg.Admin.Username)
	} else if users, err := st.ListUsers(ctx); err == nil && len(users) == 0 {
		logger.Warn("no user account found - set admin.password or run: reservadesk user create")
	}

	// 3. Reservation service and guest notifications
	reservations := service.NewReservationService(st, logger)
	if err := attachNotifier(reservations, cfg, logger); err != nil {
		st.Close()
		return err
	}

	// 4. Build and start HTTP server
	shutdown, _ := cfg.ShutdownTimeout()
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdown,
		CORSOrigins:     cfg.Server.CORSOrigins,
		LoginRateLimit:  cfg.RateLimit.LoginPerMinute,
		TrustProxy:      cfg.Server.TrustProxy,
		Version:         versionString(),
	}
	srv := server.New(srvCfg, st, authSvc, reservations, logger)

	fmt.Printf("→ reservadesk %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
