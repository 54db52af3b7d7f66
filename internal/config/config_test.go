package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.WhatsApp.Provider != ProviderTwilio {
		t.Errorf("provider = %q", cfg.WhatsApp.Provider)
	}
	if cfg.Ordering.ReferencePrefix != "CHP" || cfg.Ordering.CountryCode != "237" || cfg.Ordering.MobilePrefix != "6" {
		t.Errorf("ordering = %+v", cfg.Ordering)
	}
	if cfg.Ordering.StatusPolicy != PolicyPermissive {
		t.Errorf("policy = %q", cfg.Ordering.StatusPolicy)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.WhatsApp.Provider = "telegram" }},
		{"policy", func(c *Config) { c.Ordering.StatusPolicy = "lenient" }},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative ttl", func(c *Config) { c.Ordering.SessionTTL = -time.Second }},
		{"negative reminder interval", func(c *Config) { c.Jobs.PendingReminderInterval = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)
			if err := Normalize(&cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if err := Normalize(nil); err == nil {
		t.Error("nil config accepted")
	}
}

func TestSQLiteDriverInferredFromURL(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{URL: "choptime.db"}}
	if err := Normalize(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: "9000"
ordering:
  reference_prefix: ord
  status_policy: Strict
  session_ttl: 30m
notify:
  admin_phones: ["671234567"]
  towns:
    buea: ["680000001"]
    limbe: ["680000002", "680000003"]
whatsapp:
  provider: cloudapi
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("DELIVERY_PHONE", "680000009,680000010")
	t.Setenv("WHATSAPP_TOKEN", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env did not override port: %q", cfg.Server.Port)
	}
	if cfg.Ordering.ReferencePrefix != "ORD" || cfg.Ordering.StatusPolicy != PolicyStrict {
		t.Errorf("ordering = %+v", cfg.Ordering)
	}
	if cfg.Ordering.SessionTTL != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.Ordering.SessionTTL)
	}
	if len(cfg.Notify.AdminPhones) != 1 || cfg.Notify.AdminPhones[0] != "671234567" {
		t.Errorf("admins = %v", cfg.Notify.AdminPhones)
	}
	if len(cfg.Notify.DeliveryPhones) != 2 || cfg.Notify.DeliveryPhones[1] != "680000010" {
		t.Errorf("delivery = %v", cfg.Notify.DeliveryPhones)
	}
	if len(cfg.Notify.Towns["limbe"]) != 2 {
		t.Errorf("towns = %v", cfg.Notify.Towns)
	}
	if cfg.WhatsApp.Provider != ProviderCloudAPI || cfg.WhatsApp.CloudAPI.Token != "secret" {
		t.Errorf("whatsapp = %+v", cfg.WhatsApp)
	}
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("REFERENCE_PREFIX", "abc")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ordering.ReferencePrefix != "ABC" {
		t.Errorf("prefix = %q", cfg.Ordering.ReferencePrefix)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_ = os.WriteFile(path, []byte("server: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := Config{Server: ServerConfig{Environment: " Development "}}
	_ = Normalize(&cfg)
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false")
	}
}

func TestNewLogger(t *testing.T) {
	if ParseLevel("WARNING") != slog.LevelWarn || ParseLevel("bogus") != slog.LevelInfo {
		t.Error("ParseLevel mapping")
	}

	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "reference", "CHP-00001")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, `"reference":"CHP-00001"`) || !strings.Contains(out, `"service":"choptime"`) {
		t.Errorf("unexpected output: %s", out)
	}
}
