// Package config resolves the client's settings. Sources, lowest precedence
// first: built-in defaults, the TOML config file, a .env file, JOBCHAT_*
// environment variables and finally command-line flags (applied by the cli
// package through Overrides).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultTimeout      = 90 * time.Second
	DefaultGlamourStyle = "dark"
	DefaultLogLevel     = "info"
	DefaultExportFormat = "markdown"

	envPrefix = "JOBCHAT_"
	appName   = "jobchat"
)

type AppConfig struct {
	APIURL       string        `toml:"api_url" env:"API_URL"`
	Timeout      time.Duration `toml:"timeout" env:"TIMEOUT"`
	DBPath       string        `toml:"db_path" env:"DB_PATH"`
	ExportDir    string        `toml:"export_dir" env:"EXPORT_DIR"`
	ExportFormat string        `toml:"export_format" env:"EXPORT_FORMAT"`
	GlamourStyle string        `toml:"glamour_style" env:"GLAMOUR_STYLE"`
	LogLevel     string        `toml:"log_level" env:"LOG_LEVEL"`
	LogFile      string        `toml:"log_file" env:"LOG_FILE"`
	Ephemeral    bool          `toml:"ephemeral" env:"EPHEMERAL"`
	Verbose      bool          `toml:"verbose" env:"VERBOSE"`

	// Where the values came from, for `jobchat doctor`.
	ConfigFile string `toml:"-" env:"-"`
	EnvFile    string `toml:"-" env:"-"`
}

type LoadOptions struct {
	ConfigPath string
	EnvFile    string
	// Environ replaces os.Environ when set.
	Environ []string
}

// Overrides carries command-line values. Nil fields were not given.
type Overrides struct {
	APIURL       *string
	DBPath       *string
	LogFile      *string
	ExportFormat *string
	Verbose      *bool
	Ephemeral    *bool
}

func Defaults() AppConfig {
	return AppConfig{
		APIURL:       DefaultAPIURL,
		Timeout:      DefaultTimeout,
		GlamourStyle: DefaultGlamourStyle,
		LogLevel:     DefaultLogLevel,
		ExportFormat: DefaultExportFormat,
	}
}

// Load layers defaults, the config file, the .env file and the environment.
// Paths are not resolved yet; call Finalize after applying Overrides.
func Load(opts LoadOptions) (AppConfig, error) {
	cfg := Defaults()

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	vars := env.ToMap(environ)

	configPath, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		if fromEnv := vars[envPrefix+"CONFIG"]; fromEnv != "" {
			configPath, explicit = fromEnv, true
		}
	}
	configPath, err := DetectConfigPath(configPath)
	if err != nil {
		return cfg, err
	}
	if err := loadTOML(&cfg, configPath, explicit); err != nil {
		return cfg, err
	}

	dotenv, envFile, err := readDotenv(opts.EnvFile)
	if err != nil {
		return cfg, err
	}
	cfg.EnvFile = envFile
	// Real environment variables win over the .env file.
	for k, v := range vars {
		dotenv[k] = v
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix, Environment: dotenv}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *AppConfig, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// readDotenv reads path, or ./.env when path is empty and the file exists.
func readDotenv(path string) (map[string]string, string, error) {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return map[string]string{}, "", nil
		}
		path = ".env"
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, "", fmt.Errorf("load env file %s: %w", path, err)
	}
	return vars, path, nil
}

func (c *AppConfig) Apply(o Overrides) {
	if o.APIURL != nil {
		c.APIURL = *o.APIURL
	}
	if o.DBPath != nil {
		c.DBPath = *o.DBPath
	}
	if o.LogFile != nil {
		c.LogFile = *o.LogFile
	}
	if o.ExportFormat != nil {
		c.ExportFormat = *o.ExportFormat
	}
	if o.Verbose != nil {
		c.Verbose = *o.Verbose
	}
	if o.Ephemeral != nil {
		c.Ephemeral = *o.Ephemeral
	}
}

// Finalize fills in default paths, expands ~ and validates the result.
func (c *AppConfig) Finalize() error {
	var err error
	if c.DBPath, err = DetectDBPath(c.DBPath); err != nil {
		return err
	}
	if c.LogFile, err = DetectLogFile(c.LogFile); err != nil {
		return err
	}
	if c.ExportDir, err = expandHome(strings.TrimSpace(c.ExportDir)); err != nil {
		return err
	}
	return c.Validate()
}

func (c AppConfig) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want http(s)://host[:port]", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(c.ExportFormat)) {
	case "", "md", "markdown", "json", "yaml", "yml":
	default:
		return fmt.Errorf("invalid export_format %q: want markdown, json or yaml", c.ExportFormat)
	}
	return nil
}

func DetectConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return expandHome(explicit)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

func DetectDBPath(explicit string) (string, error) {
	if explicit != "" {
		return expandHome(explicit)
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "state.sqlite"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName, "state.sqlite"), nil
}

func DetectLogFile(explicit string) (string, error) {
	if explicit != "" {
		return expandHome(explicit)
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, appName+".log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName, appName+".log"), nil
}

func expandHome(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Clean(p), nil
}
