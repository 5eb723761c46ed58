package profile

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/nicedig/ndm/internal/config"
)

const DefaultName = "main"

// LoadEnv loads ~/.nicedig/.env and ./.env into the process environment.
// Existing variables win; missing files are ignored.
func LoadEnv() {
	for _, p := range []string{".env", EnvPath()} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. NICEDIG_PROFILE
// 3. config.toml default_profile
// 4. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if v := os.Getenv("NICEDIG_PROFILE"); v != "" {
		return v
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

// Settings loads the named profile from config.toml with env overrides
// applied. A missing config file is not an error.
func Settings(name string) config.Profile {
	cfg, err := config.Load(ConfigPath())
	if err != nil {
		cfg = nil
	}
	p := cfg.Profile(name)
	p.ApplyEnv(os.Getenv)
	return p
}
