// Package config provides YAML-based configuration loading for the agenda bot.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration, loaded from agenda.yaml.
type Config struct {
	Timezone   string           `yaml:"timezone"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Transport  TransportConfig  `yaml:"transport"`
	Classifier ClassifierConfig `yaml:"classifier"`
	NLP        NLPConfig        `yaml:"nlp"`
	Auth       AuthConfig       `yaml:"auth"`
	TTL        TTLConfig        `yaml:"ttl"`
	Digest     DigestConfig     `yaml:"digest"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds connection settings for domain persistence.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"` // sqlite file path
}

// RedisConfig selects the ephemeral store. An empty URL means the
// in-process store is used.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// TransportConfig selects and configures the chat platform.
type TransportConfig struct {
	Platform string         `yaml:"platform"` // whatsapp, slack, discord, console
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Slack    SlackConfig    `yaml:"slack"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// WhatsAppConfig holds WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	PhoneNumberID string `yaml:"phone_number_id"`
	AccessToken   string `yaml:"access_token"`
	VerifyToken   string `yaml:"verify_token"`
	APIBase       string `yaml:"api_base"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
}

// ClassifierConfig configures the intent classifier adapter.
type ClassifierConfig struct {
	Provider   string `yaml:"provider"` // "gemini" or "none"
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// NLPConfig holds the empirically tuned NLP constants.
type NLPConfig struct {
	ReadOnlyThreshold float64 `yaml:"read_only_threshold"`
	MutateThreshold   float64 `yaml:"mutate_threshold"`
	CreateThreshold   float64 `yaml:"create_threshold"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
	HistorySize       int     `yaml:"history_size"`
}

// AuthConfig controls registration, login and lockout.
type AuthConfig struct {
	MaxPINAttempts int `yaml:"max_pin_attempts"`
	LockoutMinutes int `yaml:"lockout_minutes"`
	SessionHours   int `yaml:"session_hours"`
}

// TTLConfig holds lifetimes for ephemeral records, in seconds.
type TTLConfig struct {
	ProcessingLockSec    int `yaml:"processing_lock_sec"`
	ProcessedMarkerSec   int `yaml:"processed_marker_sec"`
	SessionSec           int `yaml:"session_sec"`
	ConfirmationSec      int `yaml:"confirmation_sec"`
	EntityMappingSec     int `yaml:"entity_mapping_sec"`
	QuickContextSec      int `yaml:"quick_context_sec"`
	HintCounterSec       int `yaml:"hint_counter_sec"`
	PastGraceSec         int `yaml:"past_grace_sec"`
	HintCap              int `yaml:"hint_cap"`
	ProcessingRetryLimit int `yaml:"processing_retry_limit"`
}

// DigestConfig controls the morning agenda digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// HTTPConfig controls the webhook/metrics server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to the config is loaded into the environment first, and
// ${VAR} references in the YAML are expanded.
func Load(path string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envPath, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every default applied, suitable for tests
// and the local console.
func Default() *Config {
	cfg := &Config{
		Database:  DatabaseConfig{Driver: "sqlite"},
		Transport: TransportConfig{Platform: "console"},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "agenda"
		}
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "agenda.db"
	}
	if c.Transport.WhatsApp.APIBase == "" {
		c.Transport.WhatsApp.APIBase = "https://graph.facebook.com/v19.0"
	}
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = "gemini"
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = "gemini-2.0-flash"
	}
	if c.Classifier.TimeoutSec == 0 {
		c.Classifier.TimeoutSec = 15
	}

	setFloat(&c.NLP.ReadOnlyThreshold, 0.50)
	setFloat(&c.NLP.MutateThreshold, 0.65)
	setFloat(&c.NLP.CreateThreshold, 0.75)
	setFloat(&c.NLP.FuzzyThreshold, 0.45)
	setInt(&c.NLP.HistorySize, 10)

	setInt(&c.Auth.MaxPINAttempts, 3)
	setInt(&c.Auth.LockoutMinutes, 15)
	setInt(&c.Auth.SessionHours, 24*7)

	setInt(&c.TTL.ProcessingLockSec, 60)
	setInt(&c.TTL.ProcessedMarkerSec, 72*3600)
	setInt(&c.TTL.SessionSec, 24*3600)
	setInt(&c.TTL.ConfirmationSec, 60)
	setInt(&c.TTL.EntityMappingSec, 72*3600)
	setInt(&c.TTL.QuickContextSec, 5*60)
	setInt(&c.TTL.HintCounterSec, 30*24*3600)
	setInt(&c.TTL.PastGraceSec, 30)
	setInt(&c.TTL.HintCap, 3)
	setInt(&c.TTL.ProcessingRetryLimit, 1)

	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 8 * * *"
	}
	setInt(&c.HTTP.Port, 8080)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is invalid", c.Timezone))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	switch c.Transport.Platform {
	case "whatsapp":
		if c.Transport.WhatsApp.PhoneNumberID == "" {
			errs = append(errs, "transport.whatsapp.phone_number_id is required")
		}
		if c.Transport.WhatsApp.AccessToken == "" {
			errs = append(errs, "transport.whatsapp.access_token is required")
		}
		if c.Transport.WhatsApp.VerifyToken == "" {
			errs = append(errs, "transport.whatsapp.verify_token is required")
		}
	case "slack":
		if c.Transport.Slack.AppToken == "" || c.Transport.Slack.BotToken == "" {
			errs = append(errs, "transport.slack.app_token and bot_token are required")
		}
	case "discord":
		if c.Transport.Discord.BotToken == "" {
			errs = append(errs, "transport.discord.bot_token is required")
		}
	case "console":
	case "":
		errs = append(errs, "transport.platform is required")
	default:
		errs = append(errs, fmt.Sprintf("transport.platform %q is not supported", c.Transport.Platform))
	}
	switch c.Classifier.Provider {
	case "gemini":
		if c.Classifier.APIKey == "" {
			errs = append(errs, "classifier.api_key is required for gemini")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("classifier.provider %q is not supported", c.Classifier.Provider))
	}
	for name, v := range map[string]float64{
		"nlp.read_only_threshold": c.NLP.ReadOnlyThreshold,
		"nlp.mutate_threshold":    c.NLP.MutateThreshold,
		"nlp.create_threshold":    c.NLP.CreateThreshold,
		"nlp.fuzzy_threshold":     c.NLP.FuzzyThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0,1]", name))
		}
	}
	if c.NLP.ReadOnlyThreshold > c.NLP.MutateThreshold || c.NLP.MutateThreshold > c.NLP.CreateThreshold {
		errs = append(errs, "nlp thresholds must satisfy read_only <= mutate <= create")
	}
	if c.Digest.Enabled && c.Digest.Cron == "" {
		errs = append(errs, "digest.cron is required when digest is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the configured default timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Seconds converts a TTL config value into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
