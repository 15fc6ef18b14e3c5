// Package config loads the bot configuration from an HCL file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/lox/cardcounter/internal/settings"
)

var (
	ErrMissingToken = errors.New("telegram token is not set (TELEGRAM_TOKEN)")
)

// Config is the complete bot configuration.
type Config struct {
	Telegram TelegramConfig
	Channels ChannelsConfig
	Report   ReportConfig
	Dedup    DedupConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

// TelegramConfig holds the Bot API credentials.
type TelegramConfig struct {
	Token   string `hcl:"token,optional"`
	AdminID int64  `hcl:"admin_id,optional"`
	Timeout int    `hcl:"poll_timeout,optional"`
}

// ChannelsConfig holds the startup channel ids. Values changed by admin
// commands are persisted in the settings file and take precedence.
type ChannelsConfig struct {
	Stat    int64 `hcl:"stat,optional"`
	Display int64 `hcl:"display,optional"`
}

// ReportConfig controls the periodic report.
type ReportConfig struct {
	IntervalMinutes int    `hcl:"interval_minutes,optional"`
	SettingsFile    string `hcl:"settings_file,optional"`
	SendInstant     *bool  `hcl:"send_instant,optional"`
}

// DedupConfig selects the processed-message store.
type DedupConfig struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// HTTPConfig controls the liveness endpoint.
type HTTPConfig struct {
	Addr string `hcl:"addr,optional"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `hcl:"level,optional"`
}

type fileConfig struct {
	Telegram *TelegramConfig `hcl:"telegram,block"`
	Channels *ChannelsConfig `hcl:"channels,block"`
	Report   *ReportConfig   `hcl:"report,block"`
	Dedup    *DedupConfig    `hcl:"dedup,block"`
	HTTP     *HTTPConfig     `hcl:"http,block"`
	Log      *LogConfig      `hcl:"log,block"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	sendInstant := true
	return &Config{
		Telegram: TelegramConfig{Timeout: 60},
		Report: ReportConfig{
			IntervalMinutes: settings.DefaultIntervalMinutes,
			SettingsFile:    "bot_config.json",
			SendInstant:     &sendInstant,
		},
		Dedup: DedupConfig{Driver: "sqlite", Path: "data/processed.db"},
		HTTP:  HTTPConfig{Addr: ":5000"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads filename (a missing file yields the defaults), then applies
// environment overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		var fc fileConfig
		diags = gohcl.DecodeBody(file.Body, nil, &fc)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
		cfg.merge(fc)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from path into the environment when the file
// exists. Variables already set are not overwritten.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) merge(fc fileConfig) {
	if t := fc.Telegram; t != nil {
		setString(&c.Telegram.Token, t.Token)
		setInt64(&c.Telegram.AdminID, t.AdminID)
		setInt(&c.Telegram.Timeout, t.Timeout)
	}
	if ch := fc.Channels; ch != nil {
		setInt64(&c.Channels.Stat, ch.Stat)
		setInt64(&c.Channels.Display, ch.Display)
	}
	if r := fc.Report; r != nil {
		setInt(&c.Report.IntervalMinutes, r.IntervalMinutes)
		setString(&c.Report.SettingsFile, r.SettingsFile)
		if r.SendInstant != nil {
			c.Report.SendInstant = r.SendInstant
		}
	}
	if d := fc.Dedup; d != nil {
		setString(&c.Dedup.Driver, d.Driver)
		setString(&c.Dedup.Path, d.Path)
		setString(&c.Dedup.DSN, d.DSN)
	}
	if h := fc.HTTP; h != nil {
		setString(&c.HTTP.Addr, h.Addr)
	}
	if l := fc.Log; l != nil {
		setString(&c.Log.Level, l.Level)
	}
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.Token, os.Getenv("TELEGRAM_TOKEN"))
	setString(&c.Dedup.DSN, os.Getenv("POSTGRES_DSN"))

	for name, dst := range map[string]*int64{
		"ADMIN_ID":           &c.Telegram.AdminID,
		"STAT_CHANNEL_ID":    &c.Channels.Stat,
		"DISPLAY_CHANNEL_ID": &c.Channels.Display,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = n
	}

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.HTTP.Addr = ":" + port
	}
	return nil
}

// Validate checks the configuration for a bot run.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.Telegram.Timeout < 0 {
		return fmt.Errorf("poll timeout cannot be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Dedup.Driver {
	case "memory":
	case "sqlite":
		if c.Dedup.Path == "" {
			return fmt.Errorf("dedup driver sqlite needs a path")
		}
	case "postgres":
		if c.Dedup.DSN == "" {
			return fmt.Errorf("dedup driver postgres needs a dsn (POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("invalid dedup driver: %s", c.Dedup.Driver)
	}
	if c.Report.IntervalMinutes != settings.ClampInterval(c.Report.IntervalMinutes) {
		return fmt.Errorf("report interval must be between %d and %d minutes",
			settings.MinIntervalMinutes, settings.MaxIntervalMinutes)
	}
	return nil
}

// Instant reports whether an instant summary is sent after each counted message.
func (c *Config) Instant() bool {
	return c.Report.SendInstant == nil || *c.Report.SendInstant
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setInt64(dst *int64, v int64) {
	if v != 0 {
		*dst = v
	}
}
