package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/deskview/internal/errors"
	"gopkg.in/yaml.v3"
)

// Output formats understood by the formatter
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// DefaultTimeout bounds every call to the ticketing API.
const DefaultTimeout = 30 * time.Second

// DefaultCreateColumns is the column preference list for create responses
var DefaultCreateColumns = []string{
	"id",
	"subject",
	"description",
	"requester.id",
	"requester.name",
	"status.name",
	"site.name",
	"account.name",
	"created_time.display_value",
}

// DefaultViewColumns is the column preference list for request listings
var DefaultViewColumns = []string{
	"id",
	"subject",
	"requester.id",
	"requester.name",
	"status.name",
	"priority.name",
	"technician.name",
	"assigned_to.name",
	"group.name",
	"site.name",
	"account.name",
	"created_time",
	"created_time.display_value",
	"due_by_time.display_value",
}

// Config represents the complete configuration for deskview
type Config struct {
	API     APIConfig     `yaml:"api"`
	Columns ColumnsConfig `yaml:"columns"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig describes the ticketing endpoint and its credentials
type APIConfig struct {
	URL           string        `yaml:"url"`
	AuthToken     string        `yaml:"auth_token"`
	TechnicianKey string        `yaml:"technician_key"`
	VerifySSL     bool          `yaml:"verify_ssl"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ColumnsConfig holds the column preference lists
type ColumnsConfig struct {
	Create []string `yaml:"create"`
	View   []string `yaml:"view"`
}

// DisplayConfig controls rendering and export
type DisplayConfig struct {
	Format       string            `yaml:"format"`
	TitleHeaders bool              `yaml:"title_headers"`
	Aliases      map[string]string `yaml:"aliases"`
	Export       bool              `yaml:"export"`
	OutputDir    string            `yaml:"output_dir"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		API: APIConfig{
			VerifySSL: true,
			Timeout:   DefaultTimeout,
		},
		Columns: ColumnsConfig{
			Create: append([]string(nil), DefaultCreateColumns...),
			View:   append([]string(nil), DefaultViewColumns...),
		},
		Display: DisplayConfig{
			Format:    FormatTable,
			Aliases:   make(map[string]string),
			OutputDir: ".",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Display.Aliases == nil {
		cfg.Display.Aliases = make(map[string]string)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".deskview.yml", ".deskview.yaml", "deskview.yml", "deskview.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Display.Format {
	case FormatTable, FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want table, csv or json)", c.Display.Format)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.API.Timeout)
	}
	return nil
}

// RequireEndpoint reports a configuration error when no API endpoint is set.
// Commands that call the API check it before building a client.
func (c *Config) RequireEndpoint() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.NewConfigError("API endpoint is not set", errors.ErrMissingURL)
	}
	return nil
}

// HeaderLabel returns the display label for a column: an alias when one is
// configured, otherwise a title-cased label when enabled, otherwise the name.
func (c *Config) HeaderLabel(column string) string {
	if alias, ok := c.Display.Aliases[column]; ok && alias != "" {
		return alias
	}
	if !c.Display.TitleHeaders {
		return column
	}

	var words []string
	for _, segment := range strings.Split(column, ".") {
		for _, word := range strings.Fields(strcase.ToDelimited(segment, ' ')) {
			words = append(words, capitalize(word))
		}
	}
	if len(words) == 0 {
		return column
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}

// Overrides carries values given on the command line. Zero values leave the
// loaded configuration untouched.
type Overrides struct {
	URL           string
	AuthToken     string
	TechnicianKey string
	Insecure      bool
	Timeout       time.Duration
	Format        string
	Export        bool
	OutputDir     string
	Debug         bool
}

// MergeConfigs applies CLI overrides on top of a base config
func MergeConfigs(base *Config, override Overrides) *Config {
	merged := *base

	if override.URL != "" {
		merged.API.URL = override.URL
	}
	if override.AuthToken != "" {
		merged.API.AuthToken = override.AuthToken
	}
	if override.TechnicianKey != "" {
		merged.API.TechnicianKey = override.TechnicianKey
	}
	if override.Insecure {
		merged.API.VerifySSL = false
	}
	if override.Timeout > 0 {
		merged.API.Timeout = override.Timeout
	}
	if override.Format != "" {
		merged.Display.Format = override.Format
	}
	if override.Export {
		merged.Display.Export = true
	}
	if override.OutputDir != "" {
		merged.Display.OutputDir = override.OutputDir
	}
	if override.Debug {
		merged.Log.Level = "debug"
	}

	return &merged
}

// Load builds the configuration once at start-up: defaults, then the config
// file (configPath, or one found by FindConfigFile), then environment values
// from envFiles and the process, then CLI overrides.
func Load(configPath string, envFiles []string, override Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath == "" {
		configPath = FindConfigFile()
	}
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	env, err := ReadEnv(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, env); err != nil {
		return nil, err
	}

	cfg = MergeConfigs(cfg, override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
