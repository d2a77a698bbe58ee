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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_RegistryWithHTTPGateway(t *testing.T) {
	t.Setenv("TEST_GENAI_URL", "http://genai.local:9000")

	path := writeConfig(t, `
app:
  name: madlibs-test
source:
  kind: registry
  registry_path: ./stories.yaml
genai:
  provider: http
  base_url: ${TEST_GENAI_URL}
workers:
  generate-story:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "madlibs-test", cfg.App.Name)
	assert.Equal(t, SourceRegistry, cfg.Source.Kind)
	assert.Equal(t, "http://genai.local:9000", cfg.GenAI.BaseURL)
	assert.Equal(t, 300, cfg.GenAI.DefaultMaxTokens)
	assert.Equal(t, 60000, cfg.GenAI.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Address())
	assert.Equal(t, "json", cfg.Logging.Format)

	w := cfg.Workers["generate-story"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 65000, w.Timeout)
}

func TestLoadFromFile_CosmicSecretsFromEnvironment(t *testing.T) {
	t.Setenv("COSMIC_BUCKET_SLUG", "madlibs-bucket")
	t.Setenv("COSMIC_READ_KEY", "read-key")
	t.Setenv("COSMIC_WRITE_KEY", "write-key")

	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: x\n"))
	require.NoError(t, err)

	assert.Equal(t, SourceCMS, cfg.Source.Kind)
	assert.Equal(t, ProviderCosmic, cfg.GenAI.Provider)
	assert.Equal(t, "madlibs-bucket", cfg.CMS.BucketSlug)
	assert.Equal(t, "https://api.cosmicjs.com/v3", cfg.CMS.BaseURL)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "unknown source",
			body:   "source:\n  kind: mongo\n",
			errMsg: "source.kind",
		},
		{
			name:   "registry without path",
			body:   "source:\n  kind: registry\ngenai:\n  provider: http\n  base_url: http://x\n",
			errMsg: "source.registry_path",
		},
		{
			name:   "gemini without key",
			body:   "source:\n  kind: registry\n  registry_path: r.yaml\ngenai:\n  provider: gemini\n",
			errMsg: "genai.api_key",
		},
		{
			name:   "cache without redis",
			body:   "source:\n  kind: registry\n  registry_path: r.yaml\ngenai:\n  provider: http\n  base_url: http://x\ncache:\n  enabled: true\n",
			errMsg: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{GenAI: GenAIConfig{Timeout: 1000}}
	w := GetWorkerConfig(cfg, "generate-story")
	assert.True(t, w.Enabled)
	assert.Equal(t, 6000, w.Timeout)
}
