package config

// Config is the full taskbeat configuration.
//
// The file may be JSON or YAML; YAML is coerced to JSON first so both
// formats go through the same strict decoder (unknown keys rejected).
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Engine   EngineConfig   `json:"engine"`
	Schedule ScheduleConfig `json:"schedule"`
	Notify   *NotifyConfig  `json:"notify,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the record store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./taskbeat.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// EngineConfig controls instance generation.
//
// MinRunInterval is a Go duration string (e.g. "30m", "1h"); runs for a
// user closer together than this are suppressed. Users lists the user
// ids the scheduled trigger generates for.
type EngineConfig struct {
	MinRunInterval string   `json:"min_run_interval,omitempty"`
	Users          []string `json:"users"`
}

// ScheduleConfig controls the periodic trigger.
//
// Spec accepts a cron expression or "@every <duration>". CleanupSpec
// schedules the duplicate-reconciliation pass; empty disables it.
type ScheduleConfig struct {
	Enabled     bool   `json:"enabled"`
	Spec        string `json:"spec,omitempty"`
	CleanupSpec string `json:"cleanup_spec,omitempty"`
	Timezone    string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Berlin"
}

// NotifyConfig controls the optional Telegram run-summary channel.
// If the whole section is omitted, notifications are disabled.
type NotifyConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"` // bot token; do not log
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}
