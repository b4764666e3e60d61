package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/reservadesk/reservadesk/internal/config"
	"github.com/reservadesk/reservadesk/internal/notify"
	"github.com/reservadesk/reservadesk/internal/service"
	"github.com/reservadesk/reservadesk/internal/store"
	"github.com/reservadesk/reservadesk/internal/store/jsondb"
	"github.com/reservadesk/reservadesk/internal/store/sqlstore"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// RESERVADESK_DATA_DIR env var, or ~/.reservadesk as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("RESERVADESK_DATA_DIR"); envDir != "" {
		return envDir
	}
	return config.DefaultDataDir()
}

// loadConfig decodes the effective configuration from the global viper.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// openStore opens the backend selected by database.url.
func openStore(cfg *config.Config) (store.Store, error) {
	loc, err := store.ParseURL(cfg.Database.URL, resolveDataDir())
	if err != nil {
		return nil, err
	}

	switch loc.Kind {
	case store.KindSQLite:
		s, err := sqlstore.NewSQLite(loc.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.KindPostgres:
		s, err := sqlstore.Open(sqlstore.Postgres, loc.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.KindMySQL:
		s, err := sqlstore.Open(sqlstore.MySQL, loc.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.KindJSON:
		s, err := jsondb.New(loc.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store kind %q", loc.Kind)
	}
}

// attachNotifier enables guest mails on svc when mail.provider is set.
func attachNotifier(svc *service.ReservationService, cfg *config.Config, logger *slog.Logger) error {
	sender, err := notify.NewSender(notify.Options{
		Provider:       cfg.Mail.Provider,
		From:           cfg.Mail.From,
		FromName:       cfg.Mail.FromName,
		SMTPHost:       cfg.Mail.SMTP.Host,
		SMTPPort:       cfg.Mail.SMTP.Port,
		SMTPUsername:   cfg.Mail.SMTP.Username,
		SMTPPassword:   cfg.Mail.SMTP.Password,
		SMTPAuth:       cfg.Mail.SMTP.Auth,
		SMTPEncryption: cfg.Mail.SMTP.Encryption,
		SMTPNoTLSCheck: cfg.Mail.SMTP.NoTLSCheck,
		SendgridAPIKey: cfg.Mail.Sendgrid.APIKey,
	})
	if err != nil {
		return fmt.Errorf("configure mail: %w", err)
	}
	if sender != nil {
		svc.SetNotifier(notify.NewNotifier(sender))
		logger.Info("guest notifications enabled", "provider", cfg.Mail.Provider)
	}
	return nil
}

// newLogger builds the slog logger described by the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// promptPassword reads a password from the terminal without echo. With
// confirm set it asks twice and requires both entries to match.
func promptPassword(confirm bool) (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if confirm {
		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if string(pwBytes) != string(confirmBytes) {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	return string(pwBytes), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
