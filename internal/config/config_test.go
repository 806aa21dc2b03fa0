package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AllFields(t *testing.T) {
	tmp := t.TempDir()
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
log_level = "debug"

[database]
path = "`+tmp+`/fetcharr.db"

[downloads]
root = "`+tmp+`"
max_concurrent = 5
poll_interval = "500ms"
provider_timeout = "10s"
language = "English Sub"
history_size = 25

[providers]
order = ["VOE", "Vidoza"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, tmp+"/fetcharr.db", cfg.Database.Path)
	assert.Equal(t, tmp, cfg.Downloads.Root)
	assert.Equal(t, 5, cfg.Downloads.MaxConcurrent)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout())
	assert.Equal(t, "English Sub", cfg.Downloads.Language)
	assert.Equal(t, 25, cfg.Downloads.HistorySize)
	assert.Equal(t, []string{"VOE", "Vidoza"}, cfg.Providers.Order)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8486, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "./data/fetcharr.db", cfg.Database.Path)
	assert.NotEmpty(t, cfg.Downloads.Root)
	assert.Equal(t, 3, cfg.Downloads.MaxConcurrent)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout())
	assert.Equal(t, "German Dub", cfg.Downloads.Language)
	assert.Equal(t, 10, cfg.Downloads.HistorySize)
	assert.Empty(t, cfg.Providers.Order)
}

func TestLoad_SubstitutesEnvVars(t *testing.T) {
	t.Setenv("FETCHARR_TEST_ROOT", "/srv/media")

	path := writeConfig(t, `
[downloads]
root = "${FETCHARR_TEST_ROOT}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media", cfg.Downloads.Root)
}

func TestLoad_UnsetEnvVarLeftVerbatim(t *testing.T) {
	path := writeConfig(t, `
[downloads]
root = "${FETCHARR_DEFINITELY_UNSET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${FETCHARR_DEFINITELY_UNSET}", cfg.Downloads.Root)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "[server\nport = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "port out of range",
			content: "[server]\nport = 99999\n",
			wantMsg: "server.port",
		},
		{
			name:    "bad log level",
			content: "[server]\nlog_level = \"verbose\"\n",
			wantMsg: "server.log_level",
		},
		{
			name:    "negative max concurrent",
			content: "[downloads]\nmax_concurrent = -2\n",
			wantMsg: "downloads.max_concurrent",
		},
		{
			name:    "negative history size",
			content: "[downloads]\nhistory_size = -1\n",
			wantMsg: "downloads.history_size",
		},
		{
			name:    "bad duration",
			content: "[downloads]\npoll_interval = \"fast\"\n",
			wantMsg: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
