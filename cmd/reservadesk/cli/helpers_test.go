package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reservadesk/reservadesk/internal/config"
	"github.com/reservadesk/reservadesk/internal/store/jsondb"
	"github.com/reservadesk/reservadesk/internal/store/sqlstore"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	prev := dataDir
	dataDir = dir
	t.Cleanup(func() { dataDir = prev })

	tests := []struct {
		name  string
		url   string
		check func(t *testing.T, s interface{})
	}{
		{"default sqlite in data dir", "", func(t *testing.T, s interface{}) {
			if _, ok := s.(*sqlstore.Store); !ok {
				t.Errorf("expected *sqlstore.Store, got %T", s)
			}
		}},
		{"sqlite memory", "sqlite://:memory:", func(t *testing.T, s interface{}) {
			if _, ok := s.(*sqlstore.Store); !ok {
				t.Errorf("expected *sqlstore.Store, got %T", s)
			}
		}},
		{"json documents", "jsondb://" + filepath.Join(dir, "docs"), func(t *testing.T, s interface{}) {
			if _, ok := s.(*jsondb.JsonDB); !ok {
				t.Errorf("expected *jsondb.JsonDB, got %T", s)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Database.URL = tt.url
			st, err := openStore(cfg)
			if err != nil {
				t.Fatalf("openStore(%q): %v", tt.url, err)
			}
			defer st.Close()
			tt.check(t, st)
			if err := st.Ping(context.Background()); err != nil {
				t.Errorf("Ping: %v", err)
			}
		})
	}

	t.Run("unsupported scheme", func(t *testing.T) {
		cfg := config.Default()
		cfg.Database.URL = "mongodb://localhost"
		if _, err := openStore(cfg); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("expected JSON warn line, got: %s", out)
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf).Info("hello")
	if !strings.Contains(buf.String(), "level=INFO") {
		t.Errorf("unknown level should fall back to info: %s", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	prev := appVersion
	appVersion = "1.2.0"
	t.Cleanup(func() { appVersion = prev })

	cmd := newVersionCmd("1.2.0", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "v1.2.0" {
		t.Errorf("short version = %q, want v1.2.0", got)
	}

	out.Reset()
	cmd = newVersionCmd("1.2.0", "abc123", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), `"commit": "abc123"`) {
		t.Errorf("JSON output missing commit: %s", out.String())
	}
}
