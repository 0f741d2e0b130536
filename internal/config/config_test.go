package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 1, cfg.Pipeline.Concurrency)
	require.Equal(t, "abort", cfg.Pipeline.OnStepError)
	require.Equal(t, 2, cfg.Worker.Count)
	require.Equal(t, "local", cfg.Storage.Backend)
	require.Equal(t, "meta-llama/llama-4-scout-17b-16e-instruct", cfg.LLM.Model)
	require.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	require.False(t, cfg.Headless.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
pipeline:
  concurrency: 4
  on_step_error: continue
llm:
  base_url: http://localhost:9999/v1
  api_key: test-key
  model: test-model
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 4, cfg.Pipeline.Concurrency)
	require.Equal(t, "continue", cfg.Pipeline.OnStepError)
	require.Equal(t, "test-model", cfg.LLM.Model)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad error policy",
			yaml: "pipeline:\n  on_step_error: retry\n",
			want: "on_step_error",
		},
		{
			name: "auth without key",
			yaml: "auth:\n  enabled: true\n",
			want: "auth.api_key",
		},
		{
			name: "unknown storage backend",
			yaml: "storage:\n  backend: s3\n",
			want: "storage.backend",
		},
		{
			name: "zero workers",
			yaml: "worker:\n  count: -1\n",
			want: "worker.count",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))
			_, err := Load(path)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, cfg.LLMTimeout().Seconds(), float64(cfg.LLM.TimeoutSeconds))
	require.Equal(t, cfg.ScrapeTimeout().Seconds(), float64(cfg.Scraper.TimeoutSeconds))
	require.Equal(t, cfg.ServerTimeout().Seconds(), float64(cfg.Server.TimeoutSeconds))
}
