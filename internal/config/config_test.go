package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(envOf(map[string]string{"GITHUB_WORKSPACE": "/github/workspace"}))
	require.NoError(t, err)
	require.Equal(t, "/github/workspace", cfg.Workspace)
	require.Equal(t, DefaultSandboxImage, cfg.Sandbox.Image)
	require.Equal(t, []string{"python3", "-m", "grader"}, cfg.Sandbox.Command)
	require.Equal(t, DefaultSandboxRetries, cfg.Sandbox.Retries)
	require.EqualValues(t, DefaultMaxRefBytes, cfg.MaxReferenceBytes)
	require.Equal(t, 5*time.Minute, cfg.DownloadTimeout)
	require.Nil(t, cfg.Minio)
	require.Nil(t, cfg.Redis)
}

func TestLoad_MissingWorkspace(t *testing.T) {
	t.Parallel()

	_, err := Load(envOf(nil))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "GITHUB_WORKSPACE", cfgErr.Variable)
}

func TestLoad_RelativeWorkspace(t *testing.T) {
	t.Parallel()

	_, err := Load(envOf(map[string]string{"GITHUB_WORKSPACE": "workspace"}))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "GITHUB_WORKSPACE", cfgErr.Variable)
	require.Equal(t, "must be an absolute path", cfgErr.Message)
}

func TestLoad_Integrations(t *testing.T) {
	t.Parallel()

	cfg, err := Load(envOf(map[string]string{
		"GITHUB_WORKSPACE":           "/ws",
		"SANDBOX_IMAGE":              "ghcr.io/acme/grader:1",
		"SANDBOX_COMMAND":            "grade --strict",
		"REFERENCE_DOWNLOAD_TIMEOUT": "30s",
		"MINIO_ENDPOINT":             "minio:9000",
		"MINIO_ACCESS_KEY":           "key",
		"MINIO_SECRET_KEY":           "secret",
		"MINIO_USE_SSL":              "true",
		"ARTIFACT_BUCKET":            "grading-artifacts",
		"REDIS_HOST":                 "redis:6379",
		"REDIS_DB":                   "2",
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"grade", "--strict"}, cfg.Sandbox.Command)
	require.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	require.Equal(t, &MinioConfig{Endpoint: "minio:9000", AccessKeyID: "key", SecretAccessKey: "secret", UseSSL: true}, cfg.Minio)
	require.Equal(t, "grading-artifacts", cfg.ArtifactBucket)
	require.Equal(t, &RedisConfig{Addr: "redis:6379", DB: 2}, cfg.Redis)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"SANDBOX_RETRIES":            {"SANDBOX_RETRIES": "many"},
		"REFERENCE_MAX_BYTES":        {"REFERENCE_MAX_BYTES": "-1"},
		"REFERENCE_DOWNLOAD_TIMEOUT": {"REFERENCE_DOWNLOAD_TIMEOUT": "soon"},
		"MINIO_USE_SSL":              {"MINIO_ENDPOINT": "minio:9000", "MINIO_USE_SSL": "maybe"},
		"ARTIFACT_BUCKET":            {"ARTIFACT_BUCKET": "b"},
		"REDIS_DB":                   {"REDIS_HOST": "redis:6379", "REDIS_DB": "x"},
	}
	for variable, vars := range cases {
		vars["GITHUB_WORKSPACE"] = "/ws"
		_, err := Load(envOf(vars))

		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr, variable)
		require.Equal(t, variable, cfgErr.Variable)
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHECKRUNNER_DOTENV_TEST=from-file\n"), 0644))
	t.Setenv("CHECKRUNNER_DOTENV_TEST", "")
	os.Unsetenv("CHECKRUNNER_DOTENV_TEST")

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "from-file", os.Getenv("CHECKRUNNER_DOTENV_TEST"))
}
