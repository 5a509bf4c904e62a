package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/tbotcore/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tbotcore"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# tbotcore configuration
# Run: tbotcore --help

# Optional: override the SQLite database location.
# Can also be set via TBOTCORE_DB_PATH or --db-path.
# db_path: ~/.config/tbotcore/tbotcore.db

# Shared variable backend: sqlite (default) or redis.
# Can also be set via TBOTCORE_STORE_BACKEND.
# store_backend: sqlite
# redis_url: redis://localhost:6379/0
# redis_namespace: tbotcore

# Toolkit logging (debug, info, warn, error). TBOTCORE_LOG_LEVEL overrides.
# log_level: info
# log_dir: ~/.config/tbotcore/logs

# Localized text lookup.
# languages_dir: ~/.config/tbotcore/languages
# default_lang: en

# Worker pool size for "tbotcore run" (0 = CPU count x 2).
# workers: 0

# Replace computer_info with "<Masked>" in error reports.
# mask_computer_info: false
`
