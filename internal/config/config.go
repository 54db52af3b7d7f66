package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Messaging providers
const (
	ProviderTwilio   = "twilio"
	ProviderCloudAPI = "cloudapi"
	ProviderUltraMsg = "ultramsg"
	ProviderLog      = "log"
)

// Status policies
const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                     string `yaml:"port" envconfig:"PORT"`
	Environment              string `yaml:"environment" envconfig:"ENVIRONMENT"`
	DisableWebhookValidation bool   `yaml:"disable_webhook_validation" envconfig:"DISABLE_WEBHOOK_VALIDATION"`
	AdminAPIToken            string `yaml:"admin_api_token" envconfig:"ADMIN_API_TOKEN"`
}

// DatabaseConfig selects and configures the order store backend.
type DatabaseConfig struct {
	UseMemoryStore bool   `yaml:"use_memory_store" envconfig:"USE_MEMORY_STORE"`
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	URL            string `yaml:"url" envconfig:"DATABASE_URL"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASS"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	// InstanceConnectionName enables the Cloud SQL unix socket DSN on Cloud Run
	InstanceConnectionName string `yaml:"instance_connection_name" envconfig:"INSTANCE_CONNECTION_NAME"`
}

// TwilioConfig holds Twilio WhatsApp credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_AUTH_TOKEN"`
	From       string `yaml:"from" envconfig:"TWILIO_WHATSAPP_FROM"` // "whatsapp:+14155238886"
}

// CloudAPIConfig holds WhatsApp Cloud API (Graph) credentials.
type CloudAPIConfig struct {
	Token         string `yaml:"token" envconfig:"WHATSAPP_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"PHONE_NUMBER_ID"`
	APIVersion    string `yaml:"api_version" envconfig:"GRAPH_API_VERSION"`
	BaseURL       string `yaml:"base_url" envconfig:"GRAPH_BASE_URL"`
}

// UltraMsgConfig holds UltraMsg gateway credentials.
type UltraMsgConfig struct {
	InstanceID string `yaml:"instance_id" envconfig:"ULTRA_INSTANCE_ID"`
	Token      string `yaml:"token" envconfig:"ULTRA_TOKEN"`
	BaseURL    string `yaml:"base_url" envconfig:"ULTRA_BASE_URL"`
}

// WhatsAppConfig selects the outbound provider and webhook secrets.
type WhatsAppConfig struct {
	Provider    string         `yaml:"provider" envconfig:"WHATSAPP_PROVIDER"`
	VerifyToken string         `yaml:"verify_token" envconfig:"VERIFY_TOKEN"`
	Twilio      TwilioConfig   `yaml:"twilio"`
	CloudAPI    CloudAPIConfig `yaml:"cloudapi"`
	UltraMsg    UltraMsgConfig `yaml:"ultramsg"`
}

// OrderingConfig tunes the conversation and order references.
type OrderingConfig struct {
	ReferencePrefix string        `yaml:"reference_prefix" envconfig:"REFERENCE_PREFIX"`
	CountryCode     string        `yaml:"country_code" envconfig:"COUNTRY_CODE"`
	MobilePrefix    string        `yaml:"mobile_prefix" envconfig:"MOBILE_PREFIX"`
	Currency        string        `yaml:"currency" envconfig:"CURRENCY"`
	Greetings       []string      `yaml:"greetings" envconfig:"GREETINGS"`
	StatusPolicy    string        `yaml:"status_policy" envconfig:"STATUS_POLICY"`
	SessionTTL      time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
}

// NotifyConfig lists who hears about orders and who may issue commands.
type NotifyConfig struct {
	AdminPhones       []string            `yaml:"admin_phones" envconfig:"ADMIN_PHONE"`
	DeliveryPhones    []string            `yaml:"delivery_phones" envconfig:"DELIVERY_PHONE"`
	PrivilegedSenders []string            `yaml:"privileged_senders" envconfig:"PRIVILEGED_SENDERS"`
	Towns             map[string][]string `yaml:"towns" ignored:"true"`
}

// CatalogConfig points at the menu sources.
type CatalogConfig struct {
	MenuFile string `yaml:"menu_file" envconfig:"MENU_FILE"`
}

// RetryConfig bounds outbound send retries.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" envconfig:"SEND_ATTEMPTS"`
	Backoff  time.Duration `yaml:"backoff" envconfig:"SEND_BACKOFF"`
}

// JobsConfig controls the scheduled jobs.
type JobsConfig struct {
	PendingReminderInterval time.Duration `yaml:"pending_reminder_interval" envconfig:"PENDING_REMINDER_INTERVAL"`
	PendingReminderAge      time.Duration `yaml:"pending_reminder_age" envconfig:"PENDING_REMINDER_AGE"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Config aggregates all service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Ordering OrderingConfig `yaml:"ordering"`
	Notify   NotifyConfig   `yaml:"notify"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Retry    RetryConfig    `yaml:"retry"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoadDotEnv loads .env files for local development. Missing files are not an error.
func LoadDotEnv(paths ...string) []string {
	if len(paths) == 0 {
		paths = []string{".env", "environments/.env.development"}
	}
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path or a missing file means environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	cfg.Server.Environment = strings.ToLower(strings.TrimSpace(cfg.Server.Environment))

	if err := normalizeDatabase(&cfg.Database); err != nil {
		return err
	}
	if err := normalizeWhatsApp(&cfg.WhatsApp); err != nil {
		return err
	}
	if err := normalizeOrdering(&cfg.Ordering); err != nil {
		return err
	}

	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.Backoff <= 0 {
		cfg.Retry.Backoff = 500 * time.Millisecond
	}
	if cfg.Jobs.PendingReminderInterval < 0 {
		return fmt.Errorf("jobs.pending_reminder_interval must be >= 0")
	}
	if cfg.Jobs.PendingReminderAge <= 0 {
		cfg.Jobs.PendingReminderAge = 15 * time.Minute
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format %q; allowed: text, json", cfg.Logging.Format)
	}
	return nil
}

func normalizeDatabase(db *DatabaseConfig) error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	if db.Driver == "" {
		if strings.HasSuffix(db.URL, ".db") || strings.HasPrefix(db.URL, "file:") {
			db.Driver = DriverSQLite
		} else {
			db.Driver = DriverPostgres
		}
	}
	switch db.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", db.Driver)
	}
	if db.User == "" {
		db.User = "postgres"
	}
	if db.Name == "" {
		db.Name = "choptime"
	}
	if db.Host == "" {
		db.Host = "localhost"
	}
	return nil
}

func normalizeWhatsApp(wa *WhatsAppConfig) error {
	wa.Provider = strings.ToLower(strings.TrimSpace(wa.Provider))
	if wa.Provider == "" {
		wa.Provider = ProviderTwilio
	}
	switch wa.Provider {
	case ProviderTwilio, ProviderCloudAPI, ProviderUltraMsg, ProviderLog:
	default:
		return fmt.Errorf("invalid whatsapp.provider %q; allowed: twilio, cloudapi, ultramsg, log", wa.Provider)
	}
	if wa.CloudAPI.APIVersion == "" {
		wa.CloudAPI.APIVersion = "v19.0"
	}
	if wa.CloudAPI.BaseURL == "" {
		wa.CloudAPI.BaseURL = "https://graph.facebook.com"
	}
	if wa.UltraMsg.BaseURL == "" {
		wa.UltraMsg.BaseURL = "https://api.ultramsg.com"
	}
	return nil
}

func normalizeOrdering(o *OrderingConfig) error {
	o.ReferencePrefix = strings.ToUpper(strings.TrimSpace(o.ReferencePrefix))
	if o.ReferencePrefix == "" {
		o.ReferencePrefix = "CHP"
	}
	if o.CountryCode == "" {
		o.CountryCode = "237"
	}
	if o.MobilePrefix == "" {
		o.MobilePrefix = "6"
	}
	if o.Currency == "" {
		o.Currency = "FCFA"
	}
	if len(o.Greetings) == 0 {
		o.Greetings = []string{"hi", "hello", "hey", "menu", "order", "start"}
	}
	o.StatusPolicy = strings.ToLower(strings.TrimSpace(o.StatusPolicy))
	if o.StatusPolicy == "" {
		o.StatusPolicy = PolicyPermissive
	}
	if o.StatusPolicy != PolicyPermissive && o.StatusPolicy != PolicyStrict {
		return fmt.Errorf("invalid ordering.status_policy %q; allowed: permissive, strict", o.StatusPolicy)
	}
	if o.SessionTTL < 0 {
		return fmt.Errorf("ordering.session_ttl must be >= 0")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}
