// Package config loads authbridge settings.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/authbridge"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvRedisURL = "AUTHBRIDGE_REDIS_URL"
	EnvLogLevel = "AUTHBRIDGE_LOG_LEVEL"
)

type (
	// Config is the authbridge configuration.
	Config struct {
		Redis     Redis     `yaml:"redis"`
		Popup     Popup     `yaml:"popup"`
		KeepAlive KeepAlive `yaml:"keepAlive"`
		Request   Request   `yaml:"request"`
		Store     Store     `yaml:"store"`
		Log       Log       `yaml:"log"`
		Metrics   Metrics   `yaml:"metrics"`
	}

	// Redis configures the shared bus; an empty URL uses the in-process bus.
	Redis struct {
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	}

	// Popup configures the popup window.
	Popup struct {
		URL     string `yaml:"url"`
		Command string `yaml:"command"`
		Width   int    `yaml:"width"`
		Height  int    `yaml:"height"`
		// Host runs the popup over ssh with credentials from Secret.
		Host   string `yaml:"host"`
		Secret string `yaml:"secret"`
	}

	KeepAlive struct {
		Interval time.Duration `yaml:"interval"`
		Alarm    string        `yaml:"alarm"`
	}

	Request struct {
		// Timeout of zero waits for the user indefinitely.
		Timeout time.Duration `yaml:"timeout"`
	}

	Store struct {
		// Retention bounds how long resolved requests are kept.
		Retention time.Duration `yaml:"retention"`
	}

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Metrics struct {
		Addr string `yaml:"addr"`
	}
)

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Popup.URL == "" {
		return fmt.Errorf("popup.url is required")
	}
	if c.Popup.Host != "" && c.Popup.Secret == "" {
		return fmt.Errorf("popup.secret is required for popup.host %s", c.Popup.Host)
	}
	if c.Popup.Width <= 0 || c.Popup.Height <= 0 {
		return fmt.Errorf("invalid popup size %dx%d", c.Popup.Width, c.Popup.Height)
	}
	if c.KeepAlive.Interval <= 0 {
		return fmt.Errorf("invalid keepAlive.interval: %s", c.KeepAlive.Interval)
	}
	if c.Request.Timeout < 0 {
		return fmt.Errorf("invalid request.timeout: %s", c.Request.Timeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("unsupported log.format: %s", c.Log.Format)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Redis: Redis{Prefix: "authbridge:"},
		Popup: Popup{
			URL:     "authbridge://popup/",
			Command: "authbridge popup",
			Width:   authbridge.DefaultPopupWidth,
			Height:  authbridge.DefaultPopupHeight,
		},
		KeepAlive: KeepAlive{Interval: authbridge.DefaultKeepAliveInterval, Alarm: authbridge.KeepAliveAlarm},
		Request:   Request{Timeout: authbridge.DefaultRequestTimeout},
		Store:     Store{Retention: 24 * time.Hour},
		Log:       Log{Level: "info", Format: FormatText},
		Metrics:   Metrics{Addr: ":8080"},
	}
}

// Load reads a YAML config from any afs supported URL over the defaults, then applies env overrides.
// An empty URL returns the defaults with env overrides.
func Load(ctx context.Context, URL string) (*Config, error) {
	ret := Default()
	if URL != "" {
		URL = url.Normalize(URL, file.Scheme)
		data, err := afs.New().DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download config %s: %w", URL, err)
		}
		if err = yaml.Unmarshal(data, ret); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
		}
	}
	ret.applyEnv(os.Getenv)
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if value := getenv(EnvRedisURL); value != "" {
		c.Redis.URL = value
	}
	if value := getenv(EnvLogLevel); value != "" {
		c.Log.Level = value
	}
}
