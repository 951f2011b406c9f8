package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Tunables contains behavior knobs loaded from YAML
type Tunables struct {
	Nudge NudgeTunables `yaml:"nudge"`
	Relay RelayTunables `yaml:"relay"`
	Chat  ChatTunables  `yaml:"chat"`
}

// NudgeTunables tunes the proactive evaluator
type NudgeTunables struct {
	// SuppressMinutes is the repeat-nudge suppression window.
	SuppressMinutes int `yaml:"suppress_minutes"`
	// OpenTaskThreshold triggers the focus nudge.
	OpenTaskThreshold int `yaml:"open_task_threshold"`
}

// SuppressWindow returns the suppression window as a duration.
func (n NudgeTunables) SuppressWindow() time.Duration {
	return time.Duration(n.SuppressMinutes) * time.Minute
}

// RelayTunables tunes the outbox relay
type RelayTunables struct {
	// MaxAttempts stops redelivery of a repeatedly failing entry.
	MaxAttempts int `yaml:"max_attempts"`
}

// ChatTunables tunes the conversational fallback
type ChatTunables struct {
	// HistoryLimit is how many recent messages frame the LLM call.
	HistoryLimit int `yaml:"history_limit"`
}

// DefaultTunables returns the built-in defaults
func DefaultTunables() *Tunables {
	return &Tunables{
		Nudge: NudgeTunables{SuppressMinutes: 60, OpenTaskThreshold: 3},
		Relay: RelayTunables{MaxAttempts: 5},
		Chat:  ChatTunables{HistoryLimit: 12},
	}
}

// LoadTunables loads tunables from a YAML file, trying the usual
// locations when no explicit path is given. Missing files fall back
// to defaults; a malformed file is an error.
func LoadTunables(configPath string) (*Tunables, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/minder.yaml",
			"/etc/minder/minder.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "minder.yaml"))
		}
	}

	var data []byte
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return DefaultTunables(), nil
	}

	config := DefaultTunables()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse minder.yaml: %w", err)
	}
	config.fillDefaults()
	return config, nil
}

// fillDefaults replaces zero values with the built-in defaults.
func (t *Tunables) fillDefaults() {
	def := DefaultTunables()
	if t.Nudge.SuppressMinutes <= 0 {
		t.Nudge.SuppressMinutes = def.Nudge.SuppressMinutes
	}
	if t.Nudge.OpenTaskThreshold <= 0 {
		t.Nudge.OpenTaskThreshold = def.Nudge.OpenTaskThreshold
	}
	if t.Relay.MaxAttempts <= 0 {
		t.Relay.MaxAttempts = def.Relay.MaxAttempts
	}
	if t.Chat.HistoryLimit <= 0 {
		t.Chat.HistoryLimit = def.Chat.HistoryLimit
	}
}
