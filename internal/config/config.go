package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/logistics-alert/internal/feishu"
)

const (
	DefaultPath           = "config.json"
	DefaultRetentionDays  = 30
	DefaultSentNewsFile   = "sent_news.json"
	DefaultSQLiteFile     = "sent_news.db"
	DefaultWeatherTime    = "08:00"
	DefaultNewsTime       = "09:00"
	DefaultPollSeconds    = 60
	DefaultSearchTimeout  = 30
	DefaultGeminiDailyCap = 20

	placeholderTavily  = "YOUR_TAVILY_API_KEY"
	placeholderWebhook = "YOUR_FEISHU_WEBHOOK_URL"
	placeholderAppID   = "YOUR_FEISHU_APP_ID"
)

var (
	DefaultCountries       = []string{"Germany", "France", "Netherlands", "Belgium", "Poland"}
	DefaultWeatherKeywords = []string{"extreme weather", "storm", "snow", "heavy rain", "transport disruption"}
	DefaultNewsKeywords    = []string{"strike", "fire", "warehouse", "port closure", "transport disruption", "logistics incident"}
)

// Error is a configuration problem that must stop the process.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

type Config struct {
	TavilyAPIKey string `yaml:"tavily_api_key"`
	SerpAPIKey   string `yaml:"serpapi_api_key"`
	GeminiAPIKey string `yaml:"gemini_api_key"`

	Search     SearchConfig     `yaml:"search"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Feishu     FeishuConfig     `yaml:"feishu"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Storage    StorageConfig    `yaml:"storage"`

	Debug bool `yaml:"-"`
}

type SearchConfig struct {
	Provider       string `yaml:"provider"` // tavily | serpapi | rss
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GeminiConfig struct {
	Model         string `yaml:"model"`
	MaxDailyCalls int    `yaml:"max_daily_calls"`
}

type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	AppID      string `yaml:"app_id"`
	AppSecret  string `yaml:"app_secret"`
	ChatID     string `yaml:"chat_id"`
}

type MonitoringConfig struct {
	Countries           []string `yaml:"countries"`
	WeatherKeywords     []string `yaml:"weather_keywords"`
	NewsKeywords        []string `yaml:"news_keywords"`
	WeatherCheckTime    string   `yaml:"weather_check_time"`
	NewsCheckTime       string   `yaml:"news_check_time"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
}

type StorageConfig struct {
	Backend        string `yaml:"backend"` // file | sqlite | postgres
	SentNewsFile   string `yaml:"sent_news_file"`
	SQLiteFile     string `yaml:"sqlite_file"`
	DatabaseURL    string `yaml:"database_url"`
	MaxHistoryDays *int   `yaml:"max_history_days"`
}

// Load reads the YAML or JSON file at path (a missing file is fine), applies
// environment overrides and fills defaults. It does not validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// env-only configuration
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &Error{Field: path, Reason: "unparseable: " + err.Error()}
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.TavilyAPIKey = getEnvOrDefault("TAVILY_API_KEY", c.TavilyAPIKey)
	c.SerpAPIKey = getEnvOrDefault("SERPAPI_API_KEY", c.SerpAPIKey)
	c.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.GeminiAPIKey)
	c.Search.Provider = getEnvOrDefault("SEARCH_PROVIDER", c.Search.Provider)

	c.Feishu.WebhookURL = getEnvOrDefault("FEISHU_WEBHOOK_URL", c.Feishu.WebhookURL)
	c.Feishu.AppID = getEnvOrDefault("FEISHU_APP_ID", c.Feishu.AppID)
	c.Feishu.AppSecret = getEnvOrDefault("FEISHU_APP_SECRET", c.Feishu.AppSecret)
	c.Feishu.ChatID = getEnvOrDefault("FEISHU_CHAT_ID", c.Feishu.ChatID)

	c.Monitoring.Countries = getEnvListOrDefault("MONITOR_COUNTRIES", c.Monitoring.Countries)
	c.Monitoring.WeatherCheckTime = getEnvOrDefault("WEATHER_CHECK_TIME", c.Monitoring.WeatherCheckTime)
	c.Monitoring.NewsCheckTime = getEnvOrDefault("NEWS_CHECK_TIME", c.Monitoring.NewsCheckTime)

	c.Storage.Backend = getEnvOrDefault("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.SentNewsFile = getEnvOrDefault("SENT_NEWS_FILE", c.Storage.SentNewsFile)
	c.Storage.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.Storage.DatabaseURL)
	if v := os.Getenv("MAX_HISTORY_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Storage.MaxHistoryDays = &days
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		c.Debug = true
	}
}

func (c *Config) applyDefaults() {
	if c.Search.Provider == "" {
		c.Search.Provider = "tavily"
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = DefaultSearchTimeout
	}
	if c.Gemini.MaxDailyCalls == 0 {
		c.Gemini.MaxDailyCalls = DefaultGeminiDailyCap
	}
	if len(c.Monitoring.Countries) == 0 {
		c.Monitoring.Countries = append([]string(nil), DefaultCountries...)
	}
	if len(c.Monitoring.WeatherKeywords) == 0 {
		c.Monitoring.WeatherKeywords = append([]string(nil), DefaultWeatherKeywords...)
	}
	if len(c.Monitoring.NewsKeywords) == 0 {
		c.Monitoring.NewsKeywords = append([]string(nil), DefaultNewsKeywords...)
	}
	if c.Monitoring.WeatherCheckTime == "" {
		c.Monitoring.WeatherCheckTime = DefaultWeatherTime
	}
	if c.Monitoring.NewsCheckTime == "" {
		c.Monitoring.NewsCheckTime = DefaultNewsTime
	}
	if c.Monitoring.PollIntervalSeconds <= 0 {
		c.Monitoring.PollIntervalSeconds = DefaultPollSeconds
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.SentNewsFile == "" {
		c.Storage.SentNewsFile = DefaultSentNewsFile
	}
	if c.Storage.SQLiteFile == "" {
		c.Storage.SQLiteFile = DefaultSQLiteFile
	}
}

// RetentionDays is storage.max_history_days, 30 when unset. An explicit 0 is kept.
func (c *Config) RetentionDays() int {
	if c.Storage.MaxHistoryDays == nil {
		return DefaultRetentionDays
	}
	return *c.Storage.MaxHistoryDays
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitoring.PollIntervalSeconds) * time.Second
}

func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// FeishuSender returns the push settings with placeholder values treated as unset.
func (c *Config) FeishuSender() feishu.Config {
	fc := feishu.Config{
		WebhookURL: c.Feishu.WebhookURL,
		AppID:      c.Feishu.AppID,
		AppSecret:  c.Feishu.AppSecret,
		ChatID:     c.Feishu.ChatID,
	}
	if fc.WebhookURL == placeholderWebhook {
		fc.WebhookURL = ""
	}
	if fc.AppID == placeholderAppID {
		fc.AppID = ""
	}
	return fc
}

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate checks everything a weather/news run needs.
func (c *Config) Validate() error {
	if err := c.ValidateSearch(); err != nil {
		return err
	}
	if err := c.ValidatePush(); err != nil {
		return err
	}
	if err := c.ValidateSchedule(); err != nil {
		return err
	}
	return c.ValidateStorage()
}

// ValidateSchedule checks the daily HH:MM trigger times.
func (c *Config) ValidateSchedule() error {
	if !hhmm.MatchString(c.Monitoring.WeatherCheckTime) {
		return &Error{Field: "monitoring.weather_check_time", Reason: fmt.Sprintf("%q is not HH:MM", c.Monitoring.WeatherCheckTime)}
	}
	if !hhmm.MatchString(c.Monitoring.NewsCheckTime) {
		return &Error{Field: "monitoring.news_check_time", Reason: fmt.Sprintf("%q is not HH:MM", c.Monitoring.NewsCheckTime)}
	}
	return nil
}

// ValidateSearch checks the selected provider and its credential.
func (c *Config) ValidateSearch() error {
	switch c.Search.Provider {
	case "tavily":
		if c.TavilyAPIKey == "" {
			return &Error{Field: "tavily_api_key", Reason: "is required (or set TAVILY_API_KEY)"}
		}
		if c.TavilyAPIKey == placeholderTavily {
			return &Error{Field: "tavily_api_key", Reason: "still set to the placeholder value"}
		}
	case "serpapi":
		if c.SerpAPIKey == "" {
			return &Error{Field: "serpapi_api_key", Reason: "is required (or set SERPAPI_API_KEY)"}
		}
	case "rss":
	default:
		return &Error{Field: "search.provider", Reason: fmt.Sprintf("unknown provider %q (want tavily, serpapi or rss)", c.Search.Provider)}
	}
	return nil
}

// ValidatePush checks that one Feishu delivery mode is fully configured.
func (c *Config) ValidatePush() error {
	if c.FeishuSender().Mode() == feishu.ModeNone {
		return &Error{Field: "feishu", Reason: "set webhook_url, or app_id + app_secret + chat_id"}
	}
	return nil
}

// Warnings lists settings that pass validation but look wrong.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Search.Provider == "tavily" && c.TavilyAPIKey != "" && c.TavilyAPIKey != placeholderTavily &&
		!strings.HasPrefix(c.TavilyAPIKey, "tvly-") {
		warnings = append(warnings, "tavily_api_key does not start with \"tvly-\"")
	}
	if url := c.FeishuSender().WebhookURL; url != "" && !strings.HasPrefix(url, feishu.DefaultBaseURL) {
		warnings = append(warnings, "feishu.webhook_url is not a "+feishu.DefaultBaseURL+" address")
	}
	return warnings
}

// ValidateStorage checks only the history settings, for commands that push nothing.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return &Error{Field: "storage.database_url", Reason: "is required for the postgres backend"}
		}
	default:
		return &Error{Field: "storage.backend", Reason: fmt.Sprintf("unknown backend %q (want file, sqlite or postgres)", c.Storage.Backend)}
	}
	if c.RetentionDays() < 0 {
		return &Error{Field: "storage.max_history_days", Reason: "must be >= 0"}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
