package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the cikit configuration
type Config struct {
	Notifications NotificationsConfig `mapstructure:"notifications"`
	JUnit         JUnitConfig         `mapstructure:"junit"`
	History       HistoryConfig       `mapstructure:"history"`
}

// NotificationsConfig groups the optional notification channels
type NotificationsConfig struct {
	Slack              *SlackConfig              `mapstructure:"slack"`
	GoogleCloudStorage *GoogleCloudStorageConfig `mapstructure:"google_cloud_storage"`
	GitHub             GitHubConfig              `mapstructure:"github"`
}

// SlackConfig configures the Slack webhook notifier
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	// UserHandles maps GitHub logins to Slack member ids
	UserHandles map[string]string `mapstructure:"user_handles"`
}

// HandleFor returns the Slack member id mapped to a GitHub login
func (s *SlackConfig) HandleFor(login string) (string, bool) {
	if s == nil || login == "" {
		return "", false
	}
	// viper lowercases map keys
	handle, ok := s.UserHandles[strings.ToLower(login)]
	return handle, ok && handle != ""
}

// GoogleCloudStorageConfig configures report publishing
type GoogleCloudStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// GitHubConfig configures commit comments
type GitHubConfig struct {
	Token   string `mapstructure:"token"`
	APIURL  string `mapstructure:"api_url"`
	Comment bool   `mapstructure:"comment"`
}

// JUnitConfig configures report discovery
type JUnitConfig struct {
	ReportDirPattern string `mapstructure:"report_dir_pattern"`
	ParserPoolSize   int    `mapstructure:"parser_pool_size"`
}

// HistoryConfig configures the run history database
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Notifications: NotificationsConfig{
			GitHub: GitHubConfig{
				APIURL: "https://api.github.com",
			},
		},
		JUnit: JUnitConfig{
			ReportDirPattern: "**/target/**/test-reports",
			ParserPoolSize:   5,
		},
		History: HistoryConfig{
			Enabled:       false,
			Path:          ".cikit/history.db",
			RetentionDays: 90,
		},
	}
}

// Load reads the configuration at path and applies environment overrides
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (TOML, YAML or JSON)
func (c *Config) LoadFromFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		if c.Notifications.Slack == nil {
			c.Notifications.Slack = &SlackConfig{}
		}
		c.Notifications.Slack.WebhookURL = webhook
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.Notifications.GitHub.Token = token
	}

	if pattern := os.Getenv("CIKIT_REPORT_DIR_PATTERN"); pattern != "" {
		c.JUnit.ReportDirPattern = pattern
	}

	if path := os.Getenv("CIKIT_HISTORY_PATH"); path != "" {
		c.History.Path = path
	}
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JUnit.ReportDirPattern) == "" {
		return fmt.Errorf("junit.report_dir_pattern must not be empty")
	}
	if c.JUnit.ParserPoolSize <= 0 {
		c.JUnit.ParserPoolSize = 5
	}
	if slack := c.Notifications.Slack; slack != nil && slack.WebhookURL == "" {
		return fmt.Errorf("notifications.slack.webhook_url must be set when [notifications.slack] is present")
	}
	if gcs := c.Notifications.GoogleCloudStorage; gcs != nil && gcs.Bucket == "" {
		return fmt.Errorf("notifications.google_cloud_storage.bucket must be set when [notifications.google_cloud_storage] is present")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}
