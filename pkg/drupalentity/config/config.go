package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/drupal-entity/pkg/drupalentity"
	fssource "github.com/tendant/drupal-entity/pkg/drupalentity/source/fs"
	memorysource "github.com/tendant/drupal-entity/pkg/drupalentity/source/memory"
	s3source "github.com/tendant/drupal-entity/pkg/drupalentity/source/s3"
)

// Config holds the settings of the request builder tooling.
//
// Environment variables:
//
//	DRUPAL_BASE_URL - Prefix of every generated URL (default: "")
//	SOURCE_URL      - Where upload payloads are read from:
//	                  "memory://", "file:///path/to/files" or
//	                  "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	LOG_LEVEL       - debug, info, warn or error (default: "info")
//	LOG_FORMAT      - text or json (default: "text")
//
// AWS credentials for s3:// sources come from AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_REGION.
type Config struct {
	BaseURL   string `env:"DRUPAL_BASE_URL" env-default:""`
	SourceURL string `env:"SOURCE_URL" env-default:"memory://"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
	AWS       AWSConfig
}

// AWSConfig holds credentials for S3 sources
type AWSConfig struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
}

// Option applies configuration on top of the environment.
type Option func(*Config) error

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads the environment, applies opts and validates the result.
func Load(opts ...Option) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithBaseURL overrides the base URL when base is not empty.
func WithBaseURL(base string) Option {
	return func(c *Config) error {
		if base != "" {
			c.BaseURL = base
		}
		return nil
	}
}

// WithSourceURL overrides the upload source when source is not empty.
func WithSourceURL(source string) Option {
	return func(c *Config) error {
		if source != "" {
			c.SourceURL = source
		}
		return nil
	}
}

// WithLogLevel overrides the log level when level is not empty.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		if level != "" {
			c.LogLevel = level
		}
		return nil
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid DRUPAL_BASE_URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("DRUPAL_BASE_URL must be an http or https URL, got %q", c.BaseURL)
		}
	}

	if _, err := c.Source(); err != nil {
		return err
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}

	return nil
}

// SourceSpec is a parsed SOURCE_URL
type SourceSpec struct {
	Type      string // "memory", "fs", "s3"
	BaseDir   string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Source parses SourceURL.
func (c *Config) Source() (SourceSpec, error) {
	raw := c.SourceURL
	if raw == "" || raw == "memory" || raw == "memory://" {
		return SourceSpec{Type: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return SourceSpec{}, fmt.Errorf("invalid SOURCE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Host + u.Path
		if dir == "" {
			return SourceSpec{}, errors.New("filesystem path cannot be empty in SOURCE_URL")
		}
		return SourceSpec{Type: "fs", BaseDir: dir}, nil
	case "s3":
		if u.Host == "" {
			return SourceSpec{}, errors.New("S3 bucket name cannot be empty in SOURCE_URL")
		}
		q := u.Query()
		spec := SourceSpec{
			Type:     "s3",
			Bucket:   u.Host,
			Region:   c.AWS.Region,
			Endpoint: q.Get("endpoint"),
		}
		if region := q.Get("region"); region != "" {
			spec.Region = region
		}
		if v := q.Get("path_style"); v != "" {
			spec.PathStyle, err = strconv.ParseBool(v)
			if err != nil {
				return SourceSpec{}, fmt.Errorf("invalid path_style in SOURCE_URL: %w", err)
			}
		}
		return spec, nil
	}

	return SourceSpec{}, fmt.Errorf("unsupported SOURCE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

// BuildFileStore creates the configured upload source
func (c *Config) BuildFileStore(ctx context.Context, logger *slog.Logger) (drupalentity.FileStore, error) {
	spec, err := c.Source()
	if err != nil {
		return nil, err
	}

	switch spec.Type {
	case "fs":
		store, err := fssource.New(fssource.Config{BaseDir: spec.BaseDir, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem source: %w", err)
		}
		return store, nil
	case "s3":
		store, err := s3source.New(ctx, s3source.Config{
			Region:          spec.Region,
			Bucket:          spec.Bucket,
			AccessKeyID:     c.AWS.AccessKeyID,
			SecretAccessKey: c.AWS.SecretAccessKey,
			Endpoint:        spec.Endpoint,
			UsePathStyle:    spec.PathStyle,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		return store, nil
	default:
		return memorysource.New(), nil
	}
}

// NewLogger creates the slog logger described by LogLevel and LogFormat
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return l, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	return l, nil
}
