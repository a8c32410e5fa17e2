package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBPath          string
	CalendarBaseURL string
	IdentityBaseURL string
	SessionCookie   string
	ClientTimeout   time.Duration
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	TraceStdout     bool
}

func Default() Config {
	return Config{
		Port:            "5000",
		DBPath:          "./sprint-manager.db",
		CalendarBaseURL: "http://127.0.0.1:8080",
		IdentityBaseURL: "http://127.0.0.1:5001",
		SessionCookie:   "jwt",
		ClientTimeout:   10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsAddr:     ":9090",
	}
}

// Load reads envFiles (".env" when none are given) into the environment and
// builds a Config from it. A missing env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, falling back to Default for unset keys.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setString("PORT", &cfg.Port)
	setString("DB_PATH", &cfg.DBPath)
	setString("CALENDAR_BASE_URL", &cfg.CalendarBaseURL)
	setString("IDENTITY_BASE_URL", &cfg.IdentityBaseURL)
	setString("SESSION_COOKIE", &cfg.SessionCookie)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)

	// An explicitly empty METRICS_ADDR turns the metrics listener off.
	if v, ok := lookup("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if v, ok := lookup("HTTP_CLIENT_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
		}
		cfg.ClientTimeout = d
	}

	if v, ok := lookup("TRACE_STDOUT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse TRACE_STDOUT: %w", err)
		}
		cfg.TraceStdout = b
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.SessionCookie == "" {
		return errors.New("session cookie name is required")
	}
	if c.ClientTimeout < 0 {
		return errors.New("http client timeout must not be negative")
	}
	for name, raw := range map[string]string{
		"calendar base url": c.CalendarBaseURL,
		"identity base url": c.IdentityBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q is not an absolute url", name, raw)
		}
	}
	return nil
}

func (c Config) ListenAddr() string {
	return ":" + c.Port
}
