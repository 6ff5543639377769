package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	PolicyPowerLaw = "power-law"
	PolicyLinear   = "linear"
)

// envPrefix namespaces environment overrides, e.g. COCONUT_TREES_OVERRIDE
const envPrefix = "COCONUT"

type Config struct {
	Location   LocationConfig   `yaml:"location" envconfig:"location"`
	Weather    WeatherConfig    `yaml:"weather" envconfig:"weather"`
	Trees      TreesConfig      `yaml:"trees" envconfig:"trees"`
	Exposure   ExposureConfig   `yaml:"exposure" envconfig:"exposure"`
	Risk       RiskConfig       `yaml:"risk" envconfig:"risk"`
	Facts      FactsConfig      `yaml:"facts" envconfig:"facts"`
	AI         AIConfig         `yaml:"ai" envconfig:"ai"`
	Email      EmailConfig      `yaml:"email" envconfig:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring" envconfig:"monitoring"`
	Schedule   string           `yaml:"schedule" envconfig:"schedule"`
}

// LocationConfig controls how the coordinate is resolved. With Manual off the
// IP geolocation service stands in for the device location sensor.
type LocationConfig struct {
	Manual     bool          `yaml:"manual" envconfig:"manual"`
	Latitude   float64       `yaml:"latitude" envconfig:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64       `yaml:"longitude" envconfig:"longitude" validate:"gte=-180,lte=180"`
	LocatorURL string        `yaml:"locator_url" envconfig:"locator_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"timeout" validate:"gt=0"`
}

type WeatherConfig struct {
	URL         string        `yaml:"url" envconfig:"url" validate:"required,url"`
	HistoryDays int           `yaml:"history_days" envconfig:"history_days" validate:"gte=1,lte=16"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"timeout" validate:"gt=0"`
}

type TreesConfig struct {
	URL          string        `yaml:"url" envconfig:"url" validate:"required,url"`
	RadiusMeters int           `yaml:"radius_meters" envconfig:"radius_meters" validate:"gt=0"`
	DefaultCount int           `yaml:"default_count" envconfig:"default_count" validate:"gte=0"`
	Override     *int          `yaml:"override" envconfig:"override" validate:"omitempty,gte=0"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"timeout" validate:"gt=0"`
}

type ExposureConfig struct {
	MinutesPerDay *int `yaml:"minutes_per_day" envconfig:"minutes_per_day" validate:"required,gte=0,lte=1440"`
}

type RiskConfig struct {
	Policy string `yaml:"policy" envconfig:"policy" validate:"oneof=power-law linear"`
	// Jitter is the half-width of the random term added to the linear base.
	// Zero keeps scoring deterministic.
	Jitter float64 `yaml:"jitter" envconfig:"jitter" validate:"gte=0"`
}

type FactsConfig struct {
	Interval time.Duration `yaml:"interval" envconfig:"interval" validate:"gt=0"`
	List     []string      `yaml:"list" envconfig:"list"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" envconfig:"gemini_api_key"`
	Model        string `yaml:"model" envconfig:"model"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server" envconfig:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port" envconfig:"smtp_port" validate:"gte=0,lte=65535"`
	Username   string `yaml:"username" envconfig:"username"`
	Password   string `yaml:"password" envconfig:"password"`
	FromEmail  string `yaml:"from_email" envconfig:"from_email" validate:"omitempty,email"`
	ToEmail    string `yaml:"to_email" envconfig:"to_email" validate:"omitempty,email"`
}

// Enabled reports whether enough is configured to send danger alerts
func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != "" && e.ToEmail != "" && e.FromEmail != ""
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port" envconfig:"health_port" validate:"gte=0,lte=65535"`
}

// Load reads .env, the YAML config file (CONFIG_FILE, default config.yaml),
// then environment overrides, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	return LoadFile(configFile)
}

// LoadFile is Load without the .env step. A missing file is not an error;
// every setting has a default.
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults and environment", configFile)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Email.Username == "" {
		cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if cfg.Email.Password == "" {
		cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Location.LocatorURL == "" {
		c.Location.LocatorURL = "http://ip-api.com/json"
	}
	if c.Location.Timeout == 0 {
		c.Location.Timeout = 10 * time.Second
	}
	if c.Weather.URL == "" {
		c.Weather.URL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Weather.HistoryDays == 0 {
		c.Weather.HistoryDays = 5
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = 30 * time.Second
	}
	if c.Trees.URL == "" {
		c.Trees.URL = "https://overpass-api.de/api/interpreter"
	}
	if c.Trees.RadiusMeters == 0 {
		c.Trees.RadiusMeters = 1000
	}
	if c.Trees.DefaultCount == 0 {
		c.Trees.DefaultCount = 5
	}
	if c.Trees.Timeout == 0 {
		c.Trees.Timeout = 30 * time.Second
	}
	if c.Exposure.MinutesPerDay == nil {
		minutes := 30
		c.Exposure.MinutesPerDay = &minutes
	}
	if c.Risk.Policy == "" {
		c.Risk.Policy = PolicyPowerLaw
	}
	if c.Facts.Interval == 0 {
		c.Facts.Interval = 10 * time.Second
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 */30 * * * *" // every 30 minutes
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Location.Manual && c.Location.Latitude == 0 && c.Location.Longitude == 0 {
		return fmt.Errorf("manual location requires coordinates (location.latitude and location.longitude)")
	}
	return nil
}

// ExposureMinutes returns the configured daily exposure in minutes
func (c *Config) ExposureMinutes() int {
	if c.Exposure.MinutesPerDay == nil {
		return 30
	}
	return *c.Exposure.MinutesPerDay
}
