package conf

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Slack configuration
	Slack SlackConfig

	// Asana configuration
	Asana AsanaConfig

	// LLM classifier configuration
	Classifier ClassifierConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig

	// Debug mode
	Debug bool
}

// SlackConfig contains Slack configuration
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	WorkspaceURL  string
	// CancelReaction is the emoji name that triggers cancellation.
	CancelReaction string
	// OpsChannel receives operational failure alerts. Optional.
	OpsChannel string
}

// AsanaConfig contains Asana configuration
type AsanaConfig struct {
	AccessToken string
	// WebhookTarget is the public URL of the Asana webhook endpoint,
	// only needed by the webhook setup tool.
	WebhookTarget string
}

// ClassifierConfig contains LLM classifier configuration
type ClassifierConfig struct {
	APIKey string
	Model  string
}

// StorageConfig contains persistence and mapping file paths
type StorageConfig struct {
	DBPath         string
	ChannelMapPath string
	AccountsPath   string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	ListenAddr string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("COMMITMENT_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".slack-asana-bridge", "commitments.db")
	}

	channelMapPath := os.Getenv("CHANNEL_MAP_PATH")
	if channelMapPath == "" {
		channelMapPath = "channel_map.json"
	}

	accountsPath := os.Getenv("ACCOUNTS_PATH")
	if accountsPath == "" {
		accountsPath = "accounts.json"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	return &Config{
		Slack: SlackConfig{
			BotToken:       os.Getenv("SLACK_BOT_TOKEN"),
			SigningSecret:  os.Getenv("SLACK_SIGNING_SECRET"),
			WorkspaceURL:   os.Getenv("SLACK_WORKSPACE_URL"),
			CancelReaction: os.Getenv("CANCEL_REACTION"),
			OpsChannel:     os.Getenv("OPS_ALERT_CHANNEL"),
		},
		Asana: AsanaConfig{
			AccessToken:   os.Getenv("ASANA_ACCESS_TOKEN"),
			WebhookTarget: os.Getenv("ASANA_WEBHOOK_TARGET"),
		},
		Classifier: ClassifierConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		},
		Storage: StorageConfig{
			DBPath:         dbPath,
			ChannelMapPath: channelMapPath,
			AccountsPath:   accountsPath,
		},
		Server: ServerConfig{
			ListenAddr: listenAddr,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// ToLifecycleConfig converts to the lifecycle engine's configuration
func (c *Config) ToLifecycleConfig() usecase.LifecycleConfig {
	cfg := usecase.DefaultLifecycleConfig()
	cfg.WorkspaceURL = c.Slack.WorkspaceURL
	cfg.OpsChannel = c.Slack.OpsChannel
	if val := os.Getenv("CANCEL_WINDOW_SECONDS"); val != "" {
		if d, err := time.ParseDuration(val + "s"); err == nil && d > 0 {
			cfg.CancelWindow = d
		}
	}
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return &ConfigError{Field: "SLACK_BOT_TOKEN", Message: "required"}
	}
	if c.Slack.SigningSecret == "" {
		return &ConfigError{Field: "SLACK_SIGNING_SECRET", Message: "required"}
	}
	if c.Asana.AccessToken == "" {
		return &ConfigError{Field: "ASANA_ACCESS_TOKEN", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + " " + e.Message
}
