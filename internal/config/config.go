package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"unveil/internal/validation"
)

// Config holds all unveil configuration.
type Config struct {
	// Core settings
	App AppConfig `yaml:"app"`

	// Backend REST API
	API APIConfig `yaml:"api"`

	Search       SearchConfig       `yaml:"search"`
	Validation   ValidationConfig   `yaml:"validation"`
	OTP          OTPConfig          `yaml:"otp"`
	UI           UIConfig           `yaml:"ui"`
	Features     FeaturesConfig     `yaml:"features"`
	Contact      ContactConfig      `yaml:"contact"`
	Store        StoreConfig        `yaml:"store"`
	Verification VerificationConfig `yaml:"verification"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// DataDir holds the local database and debug logs.
	DataDir string `yaml:"data_dir"`
}

// AppConfig describes the application itself.
type AppConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   string          `yaml:"timeout"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// EndpointsConfig lists the backend paths. Vote carries an {id} placeholder.
type EndpointsConfig struct {
	Search    string `yaml:"search"`
	Report    string `yaml:"report"`
	Vote      string `yaml:"vote"`
	OTPSend   string `yaml:"otp_send"`
	OTPVerify string `yaml:"otp_verify"`
}

// SearchConfig configures paging and the local search history.
type SearchConfig struct {
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	Debounce        string `yaml:"debounce"`
	HistoryLimit    int    `yaml:"history_limit"` // entries shown on the home page
}

// ValidationConfig holds the field limits used by the forms.
type ValidationConfig struct {
	MinQueryLength       int `yaml:"min_query_length"`
	MaxQueryLength       int `yaml:"max_query_length"`
	EmailMaxLength       int `yaml:"email_max_length"`
	PhoneMinDigits       int `yaml:"phone_min_digits"`
	PhoneMaxDigits       int `yaml:"phone_max_digits"`
	NameMinLength        int `yaml:"name_min_length"`
	NameMaxLength        int `yaml:"name_max_length"`
	CompanyMinLength     int `yaml:"company_min_length"`
	CompanyMaxLength     int `yaml:"company_max_length"`
	DescriptionMinLength int `yaml:"description_min_length"`
	DescriptionMaxLength int `yaml:"description_max_length"`
}

// OTPConfig configures the email verification codes.
type OTPConfig struct {
	Length         int    `yaml:"length"`
	ResendCooldown string `yaml:"resend_cooldown"`
	Expiry         string `yaml:"expiry"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Theme         string `yaml:"theme"` // auto, dark, light
	ToastDuration string `yaml:"toast_duration"`
	MaxToasts     int    `yaml:"max_toasts"`
}

// FeaturesConfig toggles entry points.
type FeaturesConfig struct {
	EnableReports bool `yaml:"enable_reports"`
	EnableVoting  bool `yaml:"enable_voting"`
}

// ContactConfig is shown on the About page.
type ContactConfig struct {
	SupportEmail string `yaml:"support_email"`
	HelpPhone    string `yaml:"help_phone"`
}

// StoreConfig configures the local SQLite database.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite (pure Go) or sqlite3 (cgo)
	Path   string `yaml:"path"`   // empty means <data_dir>/unveil.db
}

// VerificationConfig controls whether a verified email survives restarts.
type VerificationConfig struct {
	Remember bool `yaml:"remember"`
}

// LoggingConfig configures debug file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, text
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "Unveil",
			Description: "Find Out Truth - Verify suspicious contacts and protect yourself from scams",
			Version:     "1.0.0",
		},

		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "10s",
			Endpoints: EndpointsConfig{
				Search:    "/api/v1/search",
				Report:    "/api/v1/case/report",
				Vote:      "/api/v1/case/{id}/vote",
				OTPSend:   "/api/v1/otp/send",
				OTPVerify: "/api/v1/otp/verify",
			},
		},

		Search: SearchConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			Debounce:        "300ms",
			HistoryLimit:    10,
		},

		Validation: ValidationConfig{
			MinQueryLength:       2,
			MaxQueryLength:       200,
			EmailMaxLength:       254,
			PhoneMinDigits:       10,
			PhoneMaxDigits:       15,
			NameMinLength:        2,
			NameMaxLength:        100,
			CompanyMinLength:     2,
			CompanyMaxLength:     200,
			DescriptionMinLength: 20,
			DescriptionMaxLength: 2000,
		},

		OTP: OTPConfig{
			Length:         6,
			ResendCooldown: "60s",
			Expiry:         "10m",
		},

		UI: UIConfig{
			Theme:         "auto",
			ToastDuration: "5s",
			MaxToasts:     3,
		},

		Features: FeaturesConfig{
			EnableReports: true,
			EnableVoting:  true,
		},

		Contact: ContactConfig{
			SupportEmail: "support@unveil.com",
			HelpPhone:    "1-800-UNVEIL",
		},

		Store: StoreConfig{
			Driver: "sqlite",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		DataDir: DefaultDataDir(),
	}
}

// DefaultDataDir returns ~/.unveil, or .unveil when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".unveil"
	}
	return filepath.Join(home, ".unveil")
}

// DefaultConfigPath returns the config file inside the default data directory.
func DefaultConfigPath() string {
	if dir := os.Getenv("UNVEIL_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults. .env files in the working directory
// and next to the config file are read before environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// loadDotEnv reads each existing file. Variables already set in the
// environment win over .env values.
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("failed to load %s: %w", abs, err)
		}
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// VITE_API_URL is accepted for .env files shared with the web front-end.
	if u := os.Getenv("VITE_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if u := os.Getenv("UNVEIL_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if t := os.Getenv("UNVEIL_TIMEOUT"); t != "" {
		c.API.Timeout = t
	}
	if dir := os.Getenv("UNVEIL_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if theme := os.Getenv("UNVEIL_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// GetAPITimeout returns the per-request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 10*time.Second)
}

// GetSearchDebounce returns the search input debounce interval.
func (c *Config) GetSearchDebounce() time.Duration {
	return parseDuration(c.Search.Debounce, 300*time.Millisecond)
}

// GetResendCooldown returns the OTP resend cooldown.
func (c *Config) GetResendCooldown() time.Duration {
	return parseDuration(c.OTP.ResendCooldown, 60*time.Second)
}

// GetOTPExpiry returns how long an OTP stays valid on the server.
func (c *Config) GetOTPExpiry() time.Duration {
	return parseDuration(c.OTP.Expiry, 10*time.Minute)
}

// GetToastDuration returns how long a toast stays visible.
func (c *Config) GetToastDuration() time.Duration {
	return parseDuration(c.UI.ToastDuration, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// StorePath returns the database path, defaulting into the data directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "unveil.db")
}

// LogsDir returns the directory debug logs are written to.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ValidationRules converts the configured limits into validator rules.
func (c *Config) ValidationRules() validation.Rules {
	v := c.Validation
	return validation.Rules{
		MinQueryLength:       v.MinQueryLength,
		MaxQueryLength:       v.MaxQueryLength,
		EmailMaxLength:       v.EmailMaxLength,
		PhoneMinDigits:       v.PhoneMinDigits,
		PhoneMaxDigits:       v.PhoneMaxDigits,
		NameMinLength:        v.NameMinLength,
		NameMaxLength:        v.NameMaxLength,
		CompanyMinLength:     v.CompanyMinLength,
		CompanyMaxLength:     v.CompanyMaxLength,
		DescriptionMinLength: v.DescriptionMinLength,
		DescriptionMaxLength: v.DescriptionMaxLength,
		OTPLength:            c.OTP.Length,
	}
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "dark", "light"}

// ValidDrivers lists the accepted store.driver values.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", c.API.BaseURL))
	}
	if !strings.Contains(c.API.Endpoints.Vote, "{id}") {
		errs = append(errs, fmt.Errorf("api.endpoints.vote must contain {id}"))
	}
	if c.Search.DefaultPageSize < 1 || c.Search.DefaultPageSize > c.Search.MaxPageSize {
		errs = append(errs, fmt.Errorf("search.default_page_size must be between 1 and %d", c.Search.MaxPageSize))
	}
	if c.Validation.MinQueryLength < 1 || c.Validation.MinQueryLength > c.Validation.MaxQueryLength {
		errs = append(errs, fmt.Errorf("validation query length bounds are inconsistent (%d-%d)",
			c.Validation.MinQueryLength, c.Validation.MaxQueryLength))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, fmt.Errorf("otp.length must be between 4 and 10, got %d", c.OTP.Length))
	}
	if c.UI.MaxToasts < 1 {
		errs = append(errs, fmt.Errorf("ui.max_toasts must be at least 1"))
	}
	if !contains(ValidThemes, c.UI.Theme) {
		errs = append(errs, fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes))
	}
	if !contains(ValidDrivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("invalid store.driver: %s (valid: %v)", c.Store.Driver, ValidDrivers))
	}

	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
