package conf

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config represents application configuration
type Config struct {
	// HTTP API configuration
	Server ServerConfig

	// Store configuration
	Store StoreConfig

	// LLM replier configuration
	LLM LLMConfig

	// Feishu channel configuration (optional)
	Feishu FeishuConfig

	// Relay and nudge intervals
	Relay RelayConfig
	Nudge NudgeConfig

	// Tunables loaded from YAML
	Tunables *Tunables

	// Debug mode
	Debug bool
}

// ServerConfig contains the HTTP listener configuration
type ServerConfig struct {
	Addr string
}

// StoreConfig contains the record store configuration
type StoreConfig struct {
	DBPath string
}

// LLMConfig contains the generative replier configuration
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// FeishuConfig contains Feishu channel credentials. Empty AppID
// disables the channel.
type FeishuConfig struct {
	AppID          string
	AppSecret      string
	DefaultSession string
}

// RelayConfig contains the outbox relay configuration
type RelayConfig struct {
	PollSeconds int
}

// NudgeConfig contains the proactive scheduler configuration
type NudgeConfig struct {
	IntervalMinutes int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	addr := os.Getenv("MINDER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dbPath := os.Getenv("MINDER_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".minder", "minder.db")
	}

	pollSeconds := 5
	if val := os.Getenv("RELAY_POLL_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			pollSeconds = parsed
		}
	}

	nudgeMinutes := 30
	if val := os.Getenv("NUDGE_INTERVAL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			nudgeMinutes = parsed
		}
	}

	defaultSession := os.Getenv("FEISHU_DEFAULT_SESSION")
	if defaultSession == "" {
		defaultSession = "default"
	}

	tunables, err := LoadTunables(os.Getenv("MINDER_CONFIG_PATH"))
	if err != nil {
		tunables = DefaultTunables()
	}

	return &Config{
		Server: ServerConfig{Addr: addr},
		Store:  StoreConfig{DBPath: dbPath},
		LLM: LLMConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
		},
		Feishu: FeishuConfig{
			AppID:          os.Getenv("FEISHU_APP_ID"),
			AppSecret:      os.Getenv("FEISHU_APP_SECRET"),
			DefaultSession: defaultSession,
		},
		Relay: RelayConfig{PollSeconds: pollSeconds},
		Nudge: NudgeConfig{IntervalMinutes: nudgeMinutes},

		Tunables: tunables,
		Debug:    os.Getenv("DEBUG") == "true",
	}
}
