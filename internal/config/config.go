// Package config reads the run configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSandboxImage    = "python:3.12-slim"
	DefaultSandboxCommand  = "python3 -m grader"
	DefaultSandboxRetries  = 3
	DefaultMaxRefBytes     = 256 << 20
	DefaultDownloadTimeout = 5 * time.Minute
)

type ConfigurationError struct {
	Variable string
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Variable, e.Message)
}

type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SandboxConfig struct {
	Image   string
	Command []string
	Retries int
}

type Config struct {
	Workspace         string
	Sandbox           SandboxConfig
	MaxReferenceBytes int64
	DownloadTimeout   time.Duration

	// Minio is nil when object storage is not configured.
	Minio          *MinioConfig
	ArtifactBucket string
	// Redis is nil when completion events are not configured.
	Redis *RedisConfig
}

// LoadDotEnv loads variables from path without overriding the ones already
// set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load(getenv func(string) string) (*Config, error) {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	workspace := get("GITHUB_WORKSPACE")
	if workspace == "" {
		return nil, &ConfigurationError{Variable: "GITHUB_WORKSPACE", Message: "must be set"}
	}
	if !filepath.IsAbs(workspace) {
		return nil, &ConfigurationError{Variable: "GITHUB_WORKSPACE", Message: "must be an absolute path"}
	}

	cfg := &Config{
		Workspace: workspace,
		Sandbox: SandboxConfig{
			Image:   orDefault(get("SANDBOX_IMAGE"), DefaultSandboxImage),
			Command: strings.Fields(orDefault(get("SANDBOX_COMMAND"), DefaultSandboxCommand)),
		},
		ArtifactBucket: get("ARTIFACT_BUCKET"),
	}

	var err error
	if cfg.Sandbox.Retries, err = parseInt("SANDBOX_RETRIES", get("SANDBOX_RETRIES"), DefaultSandboxRetries); err != nil {
		return nil, err
	}

	maxBytes, err := parseInt("REFERENCE_MAX_BYTES", get("REFERENCE_MAX_BYTES"), DefaultMaxRefBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxReferenceBytes = int64(maxBytes)

	cfg.DownloadTimeout = DefaultDownloadTimeout
	if raw := get("REFERENCE_DOWNLOAD_TIMEOUT"); raw != "" {
		if cfg.DownloadTimeout, err = time.ParseDuration(raw); err != nil {
			return nil, &ConfigurationError{Variable: "REFERENCE_DOWNLOAD_TIMEOUT", Message: err.Error()}
		}
	}

	if endpoint := get("MINIO_ENDPOINT"); endpoint != "" {
		useSSL, err := strconv.ParseBool(orDefault(get("MINIO_USE_SSL"), "false"))
		if err != nil {
			return nil, &ConfigurationError{Variable: "MINIO_USE_SSL", Message: err.Error()}
		}
		cfg.Minio = &MinioConfig{
			Endpoint:        endpoint,
			AccessKeyID:     get("MINIO_ACCESS_KEY"),
			SecretAccessKey: get("MINIO_SECRET_KEY"),
			UseSSL:          useSSL,
		}
	}
	if cfg.ArtifactBucket != "" && cfg.Minio == nil {
		return nil, &ConfigurationError{Variable: "ARTIFACT_BUCKET", Message: "requires MINIO_ENDPOINT"}
	}

	if host := get("REDIS_HOST"); host != "" {
		db, err := parseInt("REDIS_DB", get("REDIS_DB"), 0)
		if err != nil {
			return nil, err
		}
		cfg.Redis = &RedisConfig{
			Addr:     host,
			Password: getenv("REDIS_PASSWORD"),
			DB:       db,
		}
	}

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseInt(key, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, &ConfigurationError{Variable: key, Message: fmt.Sprintf("must be a non-negative integer, got %q", raw)}
	}
	return value, nil
}
