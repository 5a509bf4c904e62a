package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	DBPath           string `yaml:"db_path"`
	StoreBackend     string `yaml:"store_backend"`
	RedisURL         string `yaml:"redis_url"`
	RedisNamespace   string `yaml:"redis_namespace"`
	LogLevel         string `yaml:"log_level"`
	LogDir           string `yaml:"log_dir"`
	LanguagesDir     string `yaml:"languages_dir"`
	DefaultLang      string `yaml:"default_lang"`
	Workers          int    `yaml:"workers"`
	MaskComputerInfo bool   `yaml:"mask_computer_info"`
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	defaultRedisURL       = "redis://localhost:6379/0"
	defaultRedisNamespace = "tbotcore"
	defaultLogLevel       = "info"
	defaultLang           = "en"
)

// Runtime is the effective configuration after env overrides and defaults.
type Runtime struct {
	StoreBackend     string `json:"store_backend"`
	RedisURL         string `json:"redis_url"`
	RedisNamespace   string `json:"redis_namespace"`
	LogLevel         string `json:"log_level"`
	LogDir           string `json:"log_dir"`
	LanguagesDir     string `json:"languages_dir"`
	DefaultLang      string `json:"default_lang"`
	Workers          int    `json:"workers"`
	MaskComputerInfo bool   `json:"mask_computer_info"`
}

// EffectiveRuntime returns validated runtime settings.
// Environment variables win over config.yaml; invalid or missing values fall
// back to defaults. The DB path is resolved separately by GetDBPath.
func EffectiveRuntime() (Runtime, error) {
	s, err := LoadSettings()
	if err != nil {
		return Runtime{}, err
	}

	rt := Runtime{
		StoreBackend:     strings.ToLower(strings.TrimSpace(s.StoreBackend)),
		RedisURL:         s.RedisURL,
		RedisNamespace:   s.RedisNamespace,
		LogLevel:         s.LogLevel,
		LogDir:           s.LogDir,
		LanguagesDir:     s.LanguagesDir,
		DefaultLang:      s.DefaultLang,
		Workers:          s.Workers,
		MaskComputerInfo: s.MaskComputerInfo,
	}

	if v := os.Getenv("TBOTCORE_STORE_BACKEND"); v != "" {
		rt.StoreBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("TBOTCORE_REDIS_URL"); v != "" {
		rt.RedisURL = v
	}
	if v := os.Getenv("TBOTCORE_LOG_LEVEL"); v != "" {
		rt.LogLevel = v
	}

	if rt.StoreBackend != BackendRedis {
		rt.StoreBackend = BackendSQLite
	}
	if rt.RedisURL == "" {
		rt.RedisURL = defaultRedisURL
	}
	if rt.RedisNamespace == "" {
		rt.RedisNamespace = defaultRedisNamespace
	}
	if rt.LogLevel == "" {
		rt.LogLevel = defaultLogLevel
	}
	if rt.DefaultLang == "" {
		rt.DefaultLang = defaultLang
	}
	if rt.Workers < 0 {
		rt.Workers = 0
	}

	if rt.LogDir == "" || rt.LanguagesDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return Runtime{}, err
		}
		if rt.LogDir == "" {
			rt.LogDir = filepath.Join(dir, "logs")
		}
		if rt.LanguagesDir == "" {
			rt.LanguagesDir = filepath.Join(dir, "languages")
		}
	}
	rt.LogDir = expandHome(rt.LogDir)
	rt.LanguagesDir = expandHome(rt.LanguagesDir)
	return rt, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// dbPathOverrideMu and dbPathOverride implement a mutex-protected process-wide override for CLI --db-path.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	dbPathOverrideMu sync.RWMutex
	dbPathOverride   string
)

// SetDBPathOverride sets a process-wide database path override.
// Intended for CLI flag support (e.g. --db-path).
func SetDBPathOverride(path string) {
	dbPathOverrideMu.Lock()
	dbPathOverride = path
	dbPathOverrideMu.Unlock()
}

func getDBPathOverride() string {
	dbPathOverrideMu.RLock()
	v := dbPathOverride
	dbPathOverrideMu.RUnlock()
	return v
}

// configPaths lists config files in lookup order (first found wins).
func configPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "tbotcore", "config.yaml"),
		"config.yaml",
	}, nil
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/tbotcore/config.yaml
// 2) /etc/tbotcore/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := configPaths()
		if err != nil {
			settingsErr = err
			return
		}
		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if !errors.Is(err, os.ErrNotExist) {
				settingsErr = err
				return
			}
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: fixed config lookup paths
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
