package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied to any profile field left empty.
const (
	DefaultMessagePollInterval = 5 * time.Second
	DefaultUnreadPollInterval  = 15 * time.Second
	DefaultTimeout             = 10 * time.Second
	DefaultMessagesPerPage     = 50
	DefaultTimeZone            = "Asia/Tokyo"
	DefaultNarrowWidth         = 80
)

// Config represents the global ~/.nicedig/config.toml.
type Config struct {
	DefaultProfile string              `toml:"default_profile"`
	Profiles       map[string]*Profile `toml:"profiles"`
}

// Profile holds the settings for one API endpoint and account.
type Profile struct {
	BaseURL             string   `toml:"base_url"`
	Token               string   `toml:"token"`
	WebURL              string   `toml:"web_url"`
	Timeout             Duration `toml:"timeout"`
	MessagePollInterval Duration `toml:"message_poll_interval"`
	UnreadPollInterval  Duration `toml:"unread_poll_interval"`
	MessagesPerPage     int      `toml:"messages_per_page"`
	TimeZone            string   `toml:"time_zone"`
	NarrowWidth         int      `toml:"narrow_width"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads config from the given path. Returns nil config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Profile returns the named profile with defaults applied. A missing
// profile yields an all-default profile rather than an error so that env
// overrides alone are enough to run.
func (c *Config) Profile(name string) Profile {
	var p Profile
	if c != nil && c.Profiles != nil {
		if found, ok := c.Profiles[name]; ok && found != nil {
			p = *found
		}
	}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills zero-valued fields.
func (p *Profile) ApplyDefaults() {
	if p.Timeout.Duration <= 0 {
		p.Timeout.Duration = DefaultTimeout
	}
	if p.MessagePollInterval.Duration <= 0 {
		p.MessagePollInterval.Duration = DefaultMessagePollInterval
	}
	if p.UnreadPollInterval.Duration <= 0 {
		p.UnreadPollInterval.Duration = DefaultUnreadPollInterval
	}
	if p.MessagesPerPage <= 0 {
		p.MessagesPerPage = DefaultMessagesPerPage
	}
	if p.TimeZone == "" {
		p.TimeZone = DefaultTimeZone
	}
	if p.NarrowWidth <= 0 {
		p.NarrowWidth = DefaultNarrowWidth
	}
}

// ApplyEnv overlays NICEDIG_* environment variables onto the profile.
func (p *Profile) ApplyEnv(getenv func(string) string) {
	if v := getenv("NICEDIG_BASE_URL"); v != "" {
		p.BaseURL = v
	}
	if v := getenv("NICEDIG_TOKEN"); v != "" {
		p.Token = v
	}
	if v := getenv("NICEDIG_WEB_URL"); v != "" {
		p.WebURL = v
	}
}
