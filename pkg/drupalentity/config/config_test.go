package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fssource "github.com/tendant/drupal-entity/pkg/drupalentity/source/fs"
	memorysource "github.com/tendant/drupal-entity/pkg/drupalentity/source/memory"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DRUPAL_BASE_URL", "SOURCE_URL", "LOG_LEVEL", "LOG_FORMAT", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, "memory://", cfg.SourceURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
}

func TestLoad_EnvAndOptions(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRUPAL_BASE_URL", "https://cms.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cms.example.com", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Load(WithBaseURL("http://localhost:8888"), WithBaseURL(""), WithLogLevel("warn"), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"Valid", Config{SourceURL: "memory://", LogLevel: "info", LogFormat: "text"}, ""},
		{"BadBaseURL", Config{BaseURL: "ftp://cms", LogLevel: "info", LogFormat: "text"}, "http or https"},
		{"BadSource", Config{SourceURL: "gs://bucket", LogLevel: "info", LogFormat: "text"}, "unsupported SOURCE_URL"},
		{"EmptyFilePath", Config{SourceURL: "file://", LogLevel: "info", LogFormat: "text"}, "cannot be empty"},
		{"BadLevel", Config{LogLevel: "loud", LogFormat: "text"}, "invalid log_level"},
		{"BadFormat", Config{LogLevel: "info", LogFormat: "xml"}, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSource(t *testing.T) {
	cfg := Config{SourceURL: "s3://uploads?endpoint=http://localhost:9000&path_style=true", AWS: AWSConfig{Region: "eu-west-1"}}
	spec, err := cfg.Source()
	require.NoError(t, err)
	assert.Equal(t, SourceSpec{
		Type:      "s3",
		Bucket:    "uploads",
		Region:    "eu-west-1",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
	}, spec)

	cfg.SourceURL = "s3://uploads?region=us-west-2"
	spec, err = cfg.Source()
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", spec.Region)

	cfg.SourceURL = "s3://uploads?path_style=maybe"
	_, err = cfg.Source()
	assert.Error(t, err)

	cfg.SourceURL = "file:///var/files"
	spec, err = cfg.Source()
	require.NoError(t, err)
	assert.Equal(t, SourceSpec{Type: "fs", BaseDir: "/var/files"}, spec)
}

func TestBuildFileStore(t *testing.T) {
	ctx := context.Background()

	store, err := (&Config{SourceURL: "memory://"}).BuildFileStore(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &memorysource.Store{}, store)

	dir := t.TempDir()
	store, err = (&Config{SourceURL: "file://" + dir}).BuildFileStore(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &fssource.Store{}, store)

	_, err = (&Config{SourceURL: "file://" + filepath.Join(dir, "missing")}).BuildFileStore(ctx, nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRUPAL_BASE_URL=https://dotenv.example.com\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DRUPAL_BASE_URL") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.BaseURL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := (&Config{LogLevel: "warn", LogFormat: "json"}).NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}
