// Package config loads the TOML configuration file and supplies defaults.
//
// A Config value is constructed once at startup and passed explicitly into
// every component constructor. Components never reach into ambient global
// settings.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/platform"
)

var cfgLog = logging.ForComponent(logging.CompCore)

// ConfigFileName is the TOML config file for user preferences
const ConfigFileName = "config.toml"

// Config is the top-level configuration value.
type Config struct {
	// DataDir is the root for all durable state (default: ~/.copilot-booster)
	DataDir string `toml:"data_dir"`

	// SessionsDir holds the session workspace descriptors. Defaults to
	// <DataDir>/sessions. The descriptors themselves are owned by the
	// agent CLI; this program only reads them.
	SessionsDir string `toml:"sessions_dir"`

	Refresh  RefreshSettings `toml:"refresh"`
	Status   StatusSettings  `toml:"status"`
	Sort     SortSettings    `toml:"sort"`
	Trackers TrackerSettings `toml:"trackers"`
	Probes   ProbeSettings   `toml:"probes"`
	Notify   NotifySettings  `toml:"notify"`
	Logging  LoggingSettings `toml:"logging"`
}

// RefreshSettings controls the aggregator's background loop.
type RefreshSettings struct {
	// IntervalSecs between periodic refreshes (default: 4)
	IntervalSecs int `toml:"interval_secs"`

	// DemandPerMinute caps explicit on-demand refreshes (default: 30)
	DemandPerMinute int `toml:"demand_per_minute"`
}

// StatusSettings controls the events-log detector.
type StatusSettings struct {
	// StalenessCutoffMins after which a session's last event is too old to
	// classify it as working or idle (default: 30)
	StalenessCutoffMins int `toml:"staleness_cutoff_mins"`
}

// SortSettings controls default list ordering.
type SortSettings struct {
	// PrimaryOrder is "running", "alias" or "created" (default: "created")
	PrimaryOrder string `toml:"primary_order"`
}

// TrackerSettings enables trackers per resource kind and configures launch
// command templates. Templates substitute {dir}, {title} and {anchor}.
type TrackerSettings struct {
	Terminal KindSettings `toml:"terminal"`
	Editor   KindSettings `toml:"editor"`
	Explorer KindSettings `toml:"explorer"`
	Browser  KindSettings `toml:"browser"`
}

// KindSettings configures one resource kind.
type KindSettings struct {
	// Disabled turns the tracker off entirely
	Disabled bool `toml:"disabled"`

	// Launch is the command template used to start a new resource
	Launch []string `toml:"launch"`

	// TitleMarkers are substrings that must appear in a window title for
	// discovery to consider it (e.g. " - Visual Studio Code")
	TitleMarkers []string `toml:"title_markers"`
}

// ProbeSettings configures the exec-based OS probes.
type ProbeSettings struct {
	// WindowList is the command producing one window per line in wmctrl -lp
	// format (default: ["wmctrl", "-lp"])
	WindowList []string `toml:"window_list"`

	// WindowFocus is the command template raising a window; {window}
	// substitutes the window id (default: ["wmctrl", "-ia", "{window}"])
	WindowFocus []string `toml:"window_focus"`

	// BrowserTabs is the command producing one tab per line as
	// "<tab-id>\t<title>" (e.g. brotab list). Empty disables tab probing.
	BrowserTabs []string `toml:"browser_tabs"`

	// BrowserFocus is the command template activating a tab; {tab}
	// substitutes the tab id.
	BrowserFocus []string `toml:"browser_focus"`
}

// NotifySettings configures desktop notifications.
type NotifySettings struct {
	// Disabled suppresses all desktop notifications
	Disabled bool `toml:"disabled"`

	// Command overrides the platform notifier; {title} and {body} are
	// substituted.
	Command []string `toml:"command"`
}

// LoggingSettings mirrors logging.Config knobs exposed to users.
type LoggingSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Debug  bool   `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dataDir := filepath.Join(home, ".copilot-booster")

	return Config{
		DataDir:     dataDir,
		SessionsDir: filepath.Join(dataDir, "sessions"),
		Refresh: RefreshSettings{
			IntervalSecs:    4,
			DemandPerMinute: 30,
		},
		Status: StatusSettings{
			StalenessCutoffMins: 30,
		},
		Sort: SortSettings{
			PrimaryOrder: "created",
		},
		Trackers: TrackerSettings{
			Terminal: KindSettings{
				Launch: []string{"x-terminal-emulator", "-T", "{title}"},
			},
			Editor: KindSettings{
				Launch:       []string{"code", "{dir}"},
				TitleMarkers: []string{" - Visual Studio Code"},
			},
			Explorer: KindSettings{
				Launch: platform.DefaultOpener(),
			},
			Browser: KindSettings{},
		},
		Probes: ProbeSettings{
			WindowList:  []string{"wmctrl", "-lp"},
			WindowFocus: []string{"wmctrl", "-ia", "{window}"},
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load reads the config file at path, filling in defaults for anything not
// set. A missing file yields the defaults. A malformed file also yields the
// defaults: configuration corruption degrades, it never blocks startup.
func Load(path string) Config {
	if path == "" {
		path = filepath.Join(Default().DataDir, ConfigFileName)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default()
	}

	// Decode into a zero value so derived paths (sessions dir under the
	// data dir) follow the user's data_dir instead of the built-in one.
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		cfgLog.Warn("config_parse_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return Default()
	}

	cfg.normalize()
	return cfg
}

// normalize fills holes a partial user file may leave.
func (c *Config) normalize() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.SessionsDir == "" {
		c.SessionsDir = filepath.Join(c.DataDir, "sessions")
	}
	if c.Refresh.IntervalSecs <= 0 {
		c.Refresh.IntervalSecs = def.Refresh.IntervalSecs
	}
	if c.Refresh.DemandPerMinute <= 0 {
		c.Refresh.DemandPerMinute = def.Refresh.DemandPerMinute
	}
	if c.Status.StalenessCutoffMins <= 0 {
		c.Status.StalenessCutoffMins = def.Status.StalenessCutoffMins
	}
	switch c.Sort.PrimaryOrder {
	case "running", "alias", "created":
	default:
		c.Sort.PrimaryOrder = def.Sort.PrimaryOrder
	}
	if len(c.Probes.WindowList) == 0 {
		c.Probes.WindowList = def.Probes.WindowList
	}
	if len(c.Probes.WindowFocus) == 0 {
		c.Probes.WindowFocus = def.Probes.WindowFocus
	}
	if len(c.Trackers.Terminal.Launch) == 0 {
		c.Trackers.Terminal.Launch = def.Trackers.Terminal.Launch
	}
	if len(c.Trackers.Editor.Launch) == 0 {
		c.Trackers.Editor.Launch = def.Trackers.Editor.Launch
	}
	if len(c.Trackers.Editor.TitleMarkers) == 0 {
		c.Trackers.Editor.TitleMarkers = def.Trackers.Editor.TitleMarkers
	}
	if len(c.Trackers.Explorer.Launch) == 0 {
		c.Trackers.Explorer.Launch = def.Trackers.Explorer.Launch
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// RefreshInterval returns the periodic refresh interval as a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSecs) * time.Second
}

// StalenessCutoff returns the detector staleness threshold as a duration.
func (c Config) StalenessCutoff() time.Duration {
	return time.Duration(c.Status.StalenessCutoffMins) * time.Minute
}

// EnsureDataDir creates the data directory tree. This is the one hard
// startup failure: without it no durable state can be persisted.
func (c Config) EnsureDataDir() error {
	for _, dir := range []string{c.DataDir, filepath.Join(c.DataDir, "logs"), filepath.Join(c.DataDir, "events")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	return nil
}

// EventsDir returns the directory holding per-session event logs.
func (c Config) EventsDir() string {
	return filepath.Join(c.DataDir, "events")
}

// LogDir returns the directory for rotating log files.
func (c Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
