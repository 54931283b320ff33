// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	// ErrInvalidConfig is returned when a parsed value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

// CookieDBName is the cookie database file inside DataDir.
const CookieDBName = "cookies.db"

// Config holds every setting the application reads at startup.
type Config struct {
	BaseURL     string        `env:"ARTSY_BASE_URL" envDefault:"http://10.0.2.2:3000"`
	DataDir     string        `env:"ARTSY_DATA_DIR" envDefault:"~/.artsy"`
	HTTPTimeout time.Duration `env:"ARTSY_HTTP_TIMEOUT" envDefault:"0s"`
	LogLevel    string        `env:"ARTSY_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"ARTSY_LOG_FORMAT" envDefault:"text"`
}

// Load reads the given dotenv files, or .env in the working directory when
// none are given, then parses the environment. Values already present in
// the environment win over dotenv values. A missing default .env is not an
// error; a missing named file is.
func Load(envFiles ...string) (Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Read is Load without validation, for callers that override values
// before calling Validate themselves.
func Read(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("failed to load env files: %w", err)
	}
	return decode(env.Options{})
}

// LoadFrom parses settings from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	cfg, err := decode(env.Options{Environment: environ})
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: ARTSY_BASE_URL %q must be an http(s) URL", ErrInvalidConfig, c.BaseURL)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: ARTSY_DATA_DIR is empty", ErrInvalidConfig)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: ARTSY_HTTP_TIMEOUT must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: ARTSY_LOG_FORMAT %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ResolvedDataDir returns DataDir with a leading ~ expanded.
func (c Config) ResolvedDataDir() (string, error) {
	return ExpandHome(c.DataDir)
}

// CookieDBPath returns the location of the cookie database.
func (c Config) CookieDBPath() (string, error) {
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CookieDBName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
