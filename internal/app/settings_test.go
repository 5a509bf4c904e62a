package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	workdir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return workdir
}

func clearRuntimeEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TBOTCORE_STORE_BACKEND", "TBOTCORE_REDIS_URL", "TBOTCORE_LOG_LEVEL", "TBOTCORE_DB_PATH"} {
		t.Setenv(k, "")
	}
}

func TestLoadSettings_PrefersUserConfigOverLocal(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	workdir := chdirTemp(t)

	userConfigPath := filepath.Join(home, ".config", "tbotcore", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("db_path: /tmp/from-user.db\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("db_path: /tmp/from-local.db\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-user.db", s.DBPath)
}

func TestLoadSettings_FallsBackToLocalConfig(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	workdir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("db_path: /tmp/from-local.db\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-local.db", s.DBPath)
}

func TestLoadSettings_InvalidYAMLReturnsError(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	userConfigPath := filepath.Join(home, ".config", "tbotcore", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("db_path: ["), 0o600))

	_, err := LoadSettings()
	require.Error(t, err)
}

func TestLoadSettingsFile_ReadsAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Join([]string{
		"db_path: /tmp/read.db",
		"store_backend: redis",
		"redis_url: redis://cache:6379/2",
		"redis_namespace: bots",
		"log_level: debug",
		"log_dir: /var/log/tbot",
		"languages_dir: /srv/lang",
		"default_lang: ko",
		"workers: 6",
		"mask_computer_info: true",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, Settings{
		DBPath:           "/tmp/read.db",
		StoreBackend:     "redis",
		RedisURL:         "redis://cache:6379/2",
		RedisNamespace:   "bots",
		LogLevel:         "debug",
		LogDir:           "/var/log/tbot",
		LanguagesDir:     "/srv/lang",
		DefaultLang:      "ko",
		Workers:          6,
		MaskComputerInfo: true,
	}, s)
}

func TestEffectiveRuntime_Defaults(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	clearRuntimeEnv(t)
	chdirTemp(t)

	rt, err := EffectiveRuntime()
	require.NoError(t, err)
	require.Equal(t, Runtime{
		StoreBackend:   BackendSQLite,
		RedisURL:       "redis://localhost:6379/0",
		RedisNamespace: "tbotcore",
		LogLevel:       "info",
		LogDir:         filepath.Join(home, ".config", "tbotcore", "logs"),
		LanguagesDir:   filepath.Join(home, ".config", "tbotcore", "languages"),
		DefaultLang:    "en",
	}, rt)
}

func TestEffectiveRuntime_EnvOverridesConfig(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	clearRuntimeEnv(t)
	chdirTemp(t)

	userConfigPath := filepath.Join(home, ".config", "tbotcore", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte(strings.Join([]string{
		"store_backend: sqlite",
		"log_level: warn",
		"workers: -3",
		"languages_dir: ~/lang",
		"",
	}, "\n")), 0o600))

	t.Setenv("TBOTCORE_STORE_BACKEND", "REDIS")
	t.Setenv("TBOTCORE_REDIS_URL", "redis://other:6380/1")
	t.Setenv("TBOTCORE_LOG_LEVEL", "debug")

	rt, err := EffectiveRuntime()
	require.NoError(t, err)
	require.Equal(t, BackendRedis, rt.StoreBackend)
	require.Equal(t, "redis://other:6380/1", rt.RedisURL)
	require.Equal(t, "debug", rt.LogLevel)
	require.Equal(t, 0, rt.Workers)
	require.Equal(t, filepath.Join(home, "lang"), rt.LanguagesDir)
}

func TestEffectiveRuntime_UnknownBackendFallsBackToSQLite(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	t.Setenv("HOME", t.TempDir())
	clearRuntimeEnv(t)
	chdirTemp(t)
	t.Setenv("TBOTCORE_STORE_BACKEND", "etcd")

	rt, err := EffectiveRuntime()
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, rt.StoreBackend)
}
