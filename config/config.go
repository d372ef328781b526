// Package config loads settings from the environment and optional dotenv files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable, e.g. ESCOLAS_API_BASE_URL.
const EnvPrefix = "ESCOLAS"

// Config holds the settings shared by all subcommands.
type Config struct {
	Env            string
	Debug          bool
	APIBaseURL     string
	SessionFile    string
	Addr           string
	SessionKey     string
	SecureCookies  bool
	RequestTimeout time.Duration
}

// Load reads configuration. Values come from, in order of precedence: the
// process environment, dir/.env.<env>, dir/.env, then built-in defaults.
// ESCOLAS_ENV selects <env> (dev, test, prod; default dev).
func Load(dir string) (*Config, error) {
	env := strings.ToLower(os.Getenv(EnvPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}

	// godotenv.Load never overrides variables already set, so the more
	// specific file goes first.
	for _, name := range []string{".env." + env, ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, errors.Wrapf(err, "config: loading %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "config: stat %s", path)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", env)
	v.SetDefault("debug", env == "dev")
	v.SetDefault("api_base_url", "http://localhost:3000")
	v.SetDefault("session_file", defaultSessionFile())
	v.SetDefault("addr", ":8080")
	v.SetDefault("session_key", "")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// The web frontend's deployments set API_BASE_URL without a prefix.
	if err := v.BindEnv("api_base_url", EnvPrefix+"_API_BASE_URL", "API_BASE_URL"); err != nil {
		return nil, errors.Wrap(err, "config: binding api_base_url")
	}

	cfg := &Config{
		Env:            v.GetString("env"),
		Debug:          v.GetBool("debug"),
		APIBaseURL:     strings.TrimRight(v.GetString("api_base_url"), "/"),
		SessionFile:    v.GetString("session_file"),
		Addr:           v.GetString("addr"),
		SessionKey:     v.GetString("session_key"),
		SecureCookies:  v.GetBool("secure_cookies"),
		RequestTimeout: v.GetDuration("request_timeout"),
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: api_base_url is empty")
	}
	return cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "escolas", "session.json")
}

// Logger builds the application logger: human-readable development output
// when Debug is set, JSON otherwise. Both write to stderr.
func (c *Config) Logger() (*zap.Logger, error) {
	if c.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
