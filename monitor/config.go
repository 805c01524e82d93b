package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultSourceURL = "https://www.nuvamawealth.com/live-news"

// Duration is a time.Duration written as "90s" or "2m" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected a scalar")
	}
	return d.UnmarshalText([]byte(value.Value))
}

type SourceConfig struct {
	URL          string   `yaml:"url" toml:"url"`
	FetchTimeout Duration `yaml:"fetch_timeout" toml:"fetch_timeout"`
	UserAgent    string   `yaml:"user_agent" toml:"user_agent"`
	MinLen       int      `yaml:"min_headline_len" toml:"min_headline_len"`
	MaxLen       int      `yaml:"max_headline_len" toml:"max_headline_len"`
}

type ScheduleConfig struct {
	Interval        Duration `yaml:"interval" toml:"interval"`
	FailureCooldown Duration `yaml:"failure_cooldown" toml:"failure_cooldown"`
}

type StateConfig struct {
	Dir         string `yaml:"dir" toml:"dir"`
	ArchiveSize int    `yaml:"archive_size" toml:"archive_size"`
	JournalSize int    `yaml:"journal_size" toml:"journal_size"`
}

type TelegramConfig struct {
	Token    string   `yaml:"token" toml:"token"`
	ChatID   string   `yaml:"chat_id" toml:"chat_id"`
	Endpoint string   `yaml:"endpoint" toml:"endpoint"`
	Timeout  Duration `yaml:"timeout" toml:"timeout"`
	// SendEvery spaces consecutive messages to stay under chat rate limits.
	SendEvery Duration `yaml:"send_every" toml:"send_every"`
}

func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.Token) != "" && strings.TrimSpace(t.ChatID) != ""
}

type SyslogConfig struct {
	Addr    string `yaml:"addr" toml:"addr"`
	Service string `yaml:"service" toml:"service"`
}

type FiltersConfig struct {
	ExcludeResults bool `yaml:"exclude_results" toml:"exclude_results"`
}

type DashboardConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type Config struct {
	Source          SourceConfig    `yaml:"source" toml:"source"`
	Schedule        ScheduleConfig  `yaml:"schedule" toml:"schedule"`
	State           StateConfig     `yaml:"state" toml:"state"`
	Timezone        string          `yaml:"timezone" toml:"timezone"`
	Telegram        TelegramConfig  `yaml:"telegram" toml:"telegram"`
	Syslog          SyslogConfig    `yaml:"syslog" toml:"syslog"`
	Filters         FiltersConfig   `yaml:"filters" toml:"filters"`
	AnnounceStartup bool            `yaml:"announce_startup" toml:"announce_startup"`
	Dashboard       DashboardConfig `yaml:"dashboard" toml:"dashboard"`
	Log             LogConfig       `yaml:"log" toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			URL:          DefaultSourceURL,
			FetchTimeout: Duration(45 * time.Second),
			MinLen:       30,
			MaxLen:       1500,
		},
		Schedule: ScheduleConfig{
			Interval:        Duration(60 * time.Second),
			FailureCooldown: Duration(60 * time.Second),
		},
		State: StateConfig{
			Dir:         "state",
			ArchiveSize: DefaultArchiveSize,
			JournalSize: DefaultJournalSize,
		},
		Timezone: "Asia/Kolkata",
		Telegram: TelegramConfig{
			Timeout:   Duration(10 * time.Second),
			SendEvery: Duration(2 * time.Second),
		},
		Dashboard: DashboardConfig{Addr: ":5000"},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads a YAML or TOML file (by extension) over the defaults and
// then applies environment overrides. An empty path yields defaults plus
// environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(b, &cfg)
		default:
			err = yaml.Unmarshal(b, &cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays the environment variables the original deployment used.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TELEGRAM_TOKEN"); ok && v != "" {
		c.Telegram.Token = v
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && v != "" {
		c.Telegram.ChatID = v
	}
	if v, ok := lookup("HEADLINE_MONITOR_STATE_DIR"); ok && v != "" {
		c.State.Dir = v
	}
	if v, ok := lookup("EXCLUDE_RESULTS_ALERTS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("EXCLUDE_RESULTS_ALERTS: %w", err)
		}
		c.Filters.ExcludeResults = b
	}
	return nil
}

// Validate checks the values the loop cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Schedule.Interval.Std() <= 0 {
		return fmt.Errorf("schedule.interval must be positive")
	}
	if strings.TrimSpace(c.State.Dir) == "" {
		return fmt.Errorf("state.dir is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured display timezone. "IST" and the empty
// string map to the fixed UTC+05:30 zone so no tzdata is needed.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "IST", "Asia/Kolkata", "Asia/Calcutta":
		return IST, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) RunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval:        c.Schedule.Interval.Std(),
		FailureCooldown: c.Schedule.FailureCooldown.Std(),
		FetchTimeout:    c.Source.FetchTimeout.Std(),
		NotifyTimeout:   c.Telegram.Timeout.Std(),
		NotifyEvery:     c.Telegram.SendEvery.Std(),
		ExcludeResults:  c.Filters.ExcludeResults,
		AnnounceStartup: c.AnnounceStartup,
	}
}

func (c *Config) ExtractOptions() ExtractOptions {
	return ExtractOptions{MinLen: c.Source.MinLen, MaxLen: c.Source.MaxLen}
}
