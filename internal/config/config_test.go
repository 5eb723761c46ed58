package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultProfile: "work",
		Profiles: map[string]*Profile{
			"work": {
				BaseURL:            "https://api.example.test",
				Token:              "secret",
				UnreadPollInterval: Duration{30 * time.Second},
			},
		},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	p := loaded.Profile("work")
	if p.BaseURL != "https://api.example.test" {
		t.Errorf("BaseURL = %q", p.BaseURL)
	}
	if p.UnreadPollInterval.Duration != 30*time.Second {
		t.Errorf("UnreadPollInterval = %v, want 30s", p.UnreadPollInterval)
	}
	if p.MessagePollInterval.Duration != DefaultMessagePollInterval {
		t.Errorf("MessagePollInterval = %v, want default", p.MessagePollInterval)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `default_profile = "main"

[profiles.main]
base_url = "http://localhost:8080"
message_poll_interval = "2s"
time_zone = "UTC"
narrow_width = 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p := cfg.Profile("main")
	if p.MessagePollInterval.Duration != 2*time.Second {
		t.Errorf("MessagePollInterval = %v, want 2s", p.MessagePollInterval)
	}
	if p.TimeZone != "UTC" || p.NarrowWidth != 100 {
		t.Errorf("TimeZone = %q NarrowWidth = %d", p.TimeZone, p.NarrowWidth)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[profiles.main]\ntimeout = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for bad duration")
	}
}

func TestProfileDefaults(t *testing.T) {
	var cfg *Config
	p := cfg.Profile("missing")
	if p.UnreadPollInterval.Duration != 15*time.Second {
		t.Errorf("UnreadPollInterval = %v, want 15s", p.UnreadPollInterval)
	}
	if p.MessagesPerPage != 50 {
		t.Errorf("MessagesPerPage = %d, want 50", p.MessagesPerPage)
	}
	if p.TimeZone != "Asia/Tokyo" {
		t.Errorf("TimeZone = %q, want Asia/Tokyo", p.TimeZone)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NICEDIG_BASE_URL": "http://env.test",
		"NICEDIG_TOKEN":    "tok",
	}
	p := Profile{BaseURL: "http://file.test", WebURL: "http://web.test"}
	p.ApplyEnv(func(k string) string { return env[k] })

	if p.BaseURL != "http://env.test" {
		t.Errorf("BaseURL = %q, want env value", p.BaseURL)
	}
	if p.Token != "tok" {
		t.Errorf("Token = %q, want tok", p.Token)
	}
	if p.WebURL != "http://web.test" {
		t.Errorf("WebURL = %q, want file value kept", p.WebURL)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
