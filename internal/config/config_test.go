package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, Default().Cassettes, cfg.Cassettes)
	assert.Equal(t, []string{"ilcorsaronero"}, cfg.TLS.BrokenCertAllowlist)
	assert.False(t, cfg.TLS.Verify)
	assert.Equal(t, "table", cfg.Run.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
cassettes:
  dir: /var/lib/providercheck/cassettes
  mode: replay-only
feeds:
  - id: showrss
    url: https://showrss.example/feed.xml
tls:
  verify: true
run:
  enabled: [eztv, showrss]
  format: json
metrics:
  textfile: /tmp/providercheck.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "replay-only", cfg.Cassettes.Mode)
	assert.Equal(t, "/var/lib/providercheck/cassettes", cfg.Cassettes.Dir)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "showrss", cfg.Feeds[0].ID)
	assert.True(t, cfg.TLS.Verify)
	assert.Equal(t, []string{"eztv", "showrss"}, cfg.Run.Enabled)
	assert.Equal(t, "json", cfg.Run.Format)
	assert.Equal(t, "/tmp/providercheck.prom", cfg.Metrics.Textfile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "cassettes:\n  mode: new-episodes\n")
	t.Setenv("PROVIDERCHECK_CASSETTES_MODE", "replay-only")
	t.Setenv("PROVIDERCHECK_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "replay-only", cfg.Cassettes.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"mode", "cassettes:\n  mode: once\n"},
		{"format", "run:\n  format: xml\n"},
		{"feed without url", "feeds:\n  - id: a\n"},
		{"duplicate feed", "feeds:\n  - {id: a, url: http://a}\n  - {id: a, url: http://b}\n"},
		{"syntax", "cassettes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
