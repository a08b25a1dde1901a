package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// JWT
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Milestone
	PlayerID        string `mapstructure:"PLAYER_ID"`
	TeamAbbrev      string `mapstructure:"TEAM_ABBREV"`
	MilestoneTarget int    `mapstructure:"MILESTONE_TARGET"`
	MilestoneLabel  string `mapstructure:"MILESTONE_LABEL"`
	UpcomingGames   int    `mapstructure:"UPCOMING_GAMES"`

	// Display
	Timezone      string `mapstructure:"TIMEZONE"`
	TimezoneLabel string `mapstructure:"TIMEZONE_LABEL"`

	// NHL API
	NHLAPIBaseURL           string        `mapstructure:"NHL_API_BASE_URL"`
	GameTypes               []int         `mapstructure:"-"`
	RequestTimeout          time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRetries              int           `mapstructure:"MAX_RETRIES"`
	RetryBackoff            time.Duration `mapstructure:"RETRY_BACKOFF"`
	FetchTimeout            time.Duration `mapstructure:"FETCH_TIMEOUT"`
	APIRateLimit            float64       `mapstructure:"API_RATE_LIMIT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"CIRCUIT_BREAKER_TIMEOUT"`

	// Background refresh
	RefreshSchedule string `mapstructure:"REFRESH_SCHEDULE"`

	// SMS Configuration
	SMSProvider string `mapstructure:"SMS_PROVIDER"` // "twilio", "mock"

	// Twilio Configuration
	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	// Notifications
	NotifyNumbers    []string      `mapstructure:"-"`
	NotifyRateLimit  int           `mapstructure:"NOTIFY_RATE_LIMIT"`
	NotifyRateWindow time.Duration `mapstructure:"NOTIFY_RATE_WINDOW"`
}

// LoadConfig reads .env from the working directory or its parent, then the
// environment. Missing files are fine.
func LoadConfig() (*Config, error) {
	return load(".", "..")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Set defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DATABASE_URL", "tracker.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("PLAYER_ID", "8471214") // Alex Ovechkin
	v.SetDefault("TEAM_ABBREV", "WSH")
	v.SetDefault("MILESTONE_TARGET", 895) // one past Gretzky's 894
	v.SetDefault("MILESTONE_LABEL", "Gretzky's 894")
	v.SetDefault("UPCOMING_GAMES", 5)
	v.SetDefault("TIMEZONE", "America/New_York")
	v.SetDefault("TIMEZONE_LABEL", "ET")

	v.SetDefault("NHL_API_BASE_URL", "https://api-web.nhle.com/v1")
	v.SetDefault("GAME_TYPES", "2") // regular season
	v.SetDefault("REQUEST_TIMEOUT", "3s")
	v.SetDefault("MAX_RETRIES", 2)
	v.SetDefault("RETRY_BACKOFF", "500ms")
	v.SetDefault("FETCH_TIMEOUT", "20s")
	v.SetDefault("API_RATE_LIMIT", 5) // requests per second
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)
	v.SetDefault("CIRCUIT_BREAKER_TIMEOUT", "60s")

	v.SetDefault("REFRESH_SCHEDULE", "@every 1h")

	v.SetDefault("SMS_PROVIDER", "mock")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_FROM_NUMBER", "")
	v.SetDefault("NOTIFY_NUMBERS", "")
	v.SetDefault("NOTIFY_RATE_LIMIT", 3)
	v.SetDefault("NOTIFY_RATE_WINDOW", "24h")

	// Read from environment
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.CorsOrigins = splitList(v.GetString("CORS_ORIGINS"))
	config.NotifyNumbers = splitList(v.GetString("NOTIFY_NUMBERS"))

	gameTypes, err := parseGameTypes(v.GetString("GAME_TYPES"))
	if err != nil {
		return nil, err
	}
	config.GameTypes = gameTypes

	return &config, nil
}

// Validate rejects settings the tracker cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.MilestoneTarget <= 0 {
		errs = append(errs, fmt.Errorf("MILESTONE_TARGET must be positive, got %d", c.MilestoneTarget))
	}
	if strings.TrimSpace(c.PlayerID) == "" {
		errs = append(errs, errors.New("PLAYER_ID is required"))
	}
	if strings.TrimSpace(c.TeamAbbrev) == "" {
		errs = append(errs, errors.New("TEAM_ABBREV is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.UpcomingGames < 0 {
		errs = append(errs, fmt.Errorf("UPCOMING_GAMES must not be negative, got %d", c.UpcomingGames))
	}
	return errors.Join(errs...)
}

// Milestone is the configured target
func (c *Config) Milestone() models.Milestone {
	return models.Milestone{
		PlayerID:   c.PlayerID,
		TeamAbbrev: strings.ToUpper(c.TeamAbbrev),
		Target:     c.MilestoneTarget,
		Label:      c.MilestoneLabel,
	}
}

// Location returns the display time zone, UTC if it cannot be loaded.
// Validate reports the load error.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseGameTypes(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("GAME_TYPES: invalid game type %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
