// Package config assembles runtime configuration from defaults, an optional
// YAML file, .env files and PAYROLLSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/phillip-england/payrollsync/internal/consolidate"
	"github.com/phillip-england/payrollsync/internal/envutil"
	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/spf13/viper"
)

const EnvPrefix = "PAYROLLSYNC"

type Config struct {
	Sheets   sheets.Settings   `mapstructure:"sheets" yaml:"sheets"`
	Identity IdentityConfig    `mapstructure:"identity" yaml:"identity"`
	Rules    consolidate.Rules `mapstructure:"rules" yaml:"rules"`
	Payload  PayloadConfig     `mapstructure:"payload" yaml:"payload"`
	Registry RegistryConfig    `mapstructure:"registry" yaml:"registry"`
	Log      logging.Config    `mapstructure:"log" yaml:"log"`
	HTTP     HTTPConfig        `mapstructure:"http" yaml:"http"`
	Store    StoreConfig       `mapstructure:"store" yaml:"store"`
	API      APIConfig         `mapstructure:"api" yaml:"api"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

type IdentityConfig struct {
	identity.Options `mapstructure:",squash" yaml:",inline"`
	// RequireConfirmation keeps fuzzy HIGH matches out of consolidation until
	// someone confirms them.
	RequireConfirmation bool `mapstructure:"require_confirmation" yaml:"require_confirmation"`
}

type PayloadConfig struct {
	MixedPeriodDays int  `mapstructure:"mixed_period_days" yaml:"mixed_period_days"`
	StrictIDs       bool `mapstructure:"strict_ids" yaml:"strict_ids"`
}

type RegistryConfig struct {
	RosterFile   string `mapstructure:"roster_file" yaml:"roster_file"`
	RegionsFile  string `mapstructure:"regions_file" yaml:"regions_file"`
	MappingsFile string `mapstructure:"mappings_file" yaml:"mappings_file"`
}

type HTTPConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr"`
	AdminUsername string `mapstructure:"admin_username" yaml:"admin_username"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	TokenURL     string        `mapstructure:"token_url" yaml:"token_url"`
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string        `mapstructure:"client_secret" yaml:"client_secret"`
	TenantID     string        `mapstructure:"tenant_id" yaml:"tenant_id"`
	Scopes       []string      `mapstructure:"scopes" yaml:"scopes"`
	TokenFile    string        `mapstructure:"token_file" yaml:"token_file"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// Enabled reports whether API credentials are present.
func (c APIConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

func Default() Config {
	return Config{
		Sheets:   sheets.DefaultSettings(),
		Identity: IdentityConfig{Options: identity.DefaultOptions(), RequireConfirmation: true},
		Rules:    consolidate.DefaultRules(),
		Payload:  PayloadConfig{MixedPeriodDays: 30},
		Log:      logging.DefaultConfig(),
		HTTP:     HTTPConfig{Addr: ":8080", AdminUsername: "admin", MaxUploadMB: 32},
		Store:    StoreConfig{Path: "data/payrollsync.db"},
		API: APIConfig{
			BaseURL:    "https://api.xero.com",
			TokenURL:   "https://identity.xero.com/connect/token",
			Scopes:     []string{"payroll.employees.read", "payroll.timesheets", "payroll.settings.read", "accounting.settings.read"},
			TokenFile:  "data/token.json",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
	}
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is read when set and must exist. Otherwise payrollsync.yaml
	// in the working directory is used if present.
	ConfigFile string
	EnvFiles   []string
}

// legacyEnv maps settings to the plain variable names the service has
// always read, checked after the prefixed name.
var legacyEnv = map[string]string{
	"http.addr":           "API_ADDR",
	"http.admin_username": "ADMIN_USERNAME",
	"http.admin_password": "ADMIN_PASSWORD",
	"store.path":          "AUTH_DB_PATH",
	"api.client_id":       "XERO_CLIENT_ID",
	"api.client_secret":   "XERO_CLIENT_SECRET",
	"api.tenant_id":       "XERO_TENANT_ID",
	"log.level":           "LOG_LEVEL",
	"log.format":          "LOG_FORMAT",
}

func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env", ".env.local"}
	}
	if err := envutil.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("payrollsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every field of def so that environment variables can
// override keys that no config file mentions.
func setDefaults(v *viper.Viper, def Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	for key, value := range tree {
		v.SetDefault(key, value)
	}
	return nil
}

// YAML renders the effective configuration, with secrets masked.
func (c Config) YAML() ([]byte, error) {
	masked := c
	if masked.HTTP.AdminPassword != "" {
		masked.HTTP.AdminPassword = "********"
	}
	if masked.API.ClientSecret != "" {
		masked.API.ClientSecret = "********"
	}
	return yaml.Marshal(masked)
}

// Builder returns a payload builder configured from c.
func (c Config) Builder() *payload.Builder {
	b := payload.NewBuilder()
	b.MixedPeriodDays = c.Payload.MixedPeriodDays
	b.StrictIDs = c.Payload.StrictIDs
	return b
}
