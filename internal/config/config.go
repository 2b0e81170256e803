// Package config provides configuration management for mori.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the project-local config file name.
const DefaultConfigFile = "mori.yml"

// Environment variable names that override file values.
const (
	EnvSourceDir    = "MORI_SOURCE_DIR"
	EnvBuildDir     = "MORI_BUILD_DIR"
	EnvTemplatesDir = "MORI_TEMPLATES_DIR"
	EnvMetricsFile  = "MORI_METRICS_FILE"
)

// Config holds the mori configuration.
type Config struct {
	SourceDir    string `yaml:"source_dir"`
	BuildDir     string `yaml:"build_dir"`
	TemplatesDir string `yaml:"templates_dir,omitempty"`
	TemplateName string `yaml:"template_name,omitempty"`
	Math         *bool  `yaml:"math,omitempty"`
	UnsafeHTML   bool   `yaml:"unsafe_html,omitempty"`
	SafeScripts  bool   `yaml:"safe_scripts,omitempty"`
	Clean        bool   `yaml:"clean,omitempty"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SourceDir:    "src",
		BuildDir:     "build",
		TemplateName: "template.html",
	}
}

// MathEnabled reports whether math parsing is on (the default).
func (c *Config) MathEnabled() bool {
	return c.Math == nil || *c.Math
}

// TemplatesPath returns the templates directory, defaulting to
// <build_dir>/templates.
func (c *Config) TemplatesPath() string {
	if c.TemplatesDir != "" {
		return c.TemplatesDir
	}
	return filepath.Join(c.BuildDir, "templates")
}

// TemplatePath returns the template file copied for every Markdown file.
func (c *Config) TemplatePath() string {
	name := c.TemplateName
	if name == "" {
		name = "template.html"
	}
	return filepath.Join(c.TemplatesPath(), name)
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New("source_dir is required")
	}
	if c.BuildDir == "" {
		return errors.New("build_dir is required")
	}
	if strings.ContainsAny(c.TemplateName, `/\`) {
		return errors.New("template_name must be a file name, not a path")
	}

	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return fmt.Errorf("invalid source_dir: %w", err)
	}
	build, err := filepath.Abs(c.BuildDir)
	if err != nil {
		return fmt.Errorf("invalid build_dir: %w", err)
	}
	if src == build {
		return errors.New("source_dir and build_dir must differ")
	}
	if rel, err := filepath.Rel(src, build); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("build_dir must not be inside source_dir")
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override existing values only if set and non-empty.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv(EnvSourceDir); v != "" {
		c.SourceDir = v
	}
	if v := os.Getenv(EnvBuildDir); v != "" {
		c.BuildDir = v
	}
	if v := os.Getenv(EnvTemplatesDir); v != "" {
		c.TemplatesDir = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		c.MetricsFile = v
	}
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if p := os.Getenv("MORI_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigFile
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads the configuration from the specified path. Fields missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithEnv loads configuration from file and overrides with environment
// variables. A .env file next to the working directory is read first; a
// missing config file or .env file is not an error, a malformed one is.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}

	cfg.LoadFromEnv()
	return cfg, nil
}
