package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server, source and guide settings. Values come from an
// optional YAML file overlaid by STEADYSTREAM_* environment variables;
// env always wins. Call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// Server
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	// Sources
	M3UURL        string `yaml:"m3u_url"`
	EPGURL        string `yaml:"epg_url"`
	XtreamBaseURL string `yaml:"xtream_url"`
	XtreamUser    string `yaml:"xtream_user"`
	XtreamPass    string `yaml:"xtream_pass"`

	// Fetching
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	UseRelays    bool          `yaml:"use_relays"` // fall back to public CORS relays on direct-fetch failure
	Relays       []string      `yaml:"relays"`     // override the built-in relay list

	// Guide layout
	PixelsPerMinute float64 `yaml:"pixels_per_minute"`
	SlotMinutes     int     `yaml:"slot_minutes"`

	// Profiles
	ProfileDBPath string `yaml:"profile_db"`

	// Logging
	LogLevel  string `yaml:"log_level"`  // trace|debug|info|warn|error
	LogFormat string `yaml:"log_format"` // text|json
}

// Load builds a Config from defaults, an optional YAML file, then env.
// path may be empty; a missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	c := &Config{
		ListenAddr:      ":8080",
		DataDir:         "./data",
		FetchTimeout:    45 * time.Second,
		UseRelays:       true,
		PixelsPerMinute: 5,
		SlotMinutes:     30,
		LogLevel:        "info",
		LogFormat:       "text",
	}
	explicit := path != ""
	if path == "" {
		path = getEnv("STEADYSTREAM_CONFIG", "steadystream.yaml")
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if explicit || !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c.applyEnv()
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 45 * time.Second
	}
	if c.PixelsPerMinute <= 0 {
		c.PixelsPerMinute = 5
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = 30
	}
	if c.ProfileDBPath == "" {
		c.ProfileDBPath = c.DataDir + "/profiles.db"
	}
	return c, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&c.ListenAddr, "STEADYSTREAM_LISTEN")
	setStr(&c.DataDir, "STEADYSTREAM_DATA")
	setStr(&c.M3UURL, "STEADYSTREAM_M3U_URL")
	setStr(&c.EPGURL, "STEADYSTREAM_EPG_URL")
	setStr(&c.XtreamBaseURL, "STEADYSTREAM_XTREAM_URL")
	setStr(&c.XtreamUser, "STEADYSTREAM_XTREAM_USER")
	setStr(&c.XtreamPass, "STEADYSTREAM_XTREAM_PASS")
	setStr(&c.ProfileDBPath, "STEADYSTREAM_PROFILE_DB")
	setStr(&c.LogLevel, "STEADYSTREAM_LOG_LEVEL")
	setStr(&c.LogFormat, "STEADYSTREAM_LOG_FORMAT")
	c.FetchTimeout = getEnvDuration("STEADYSTREAM_FETCH_TIMEOUT", c.FetchTimeout)
	c.UseRelays = getEnvBool("STEADYSTREAM_USE_RELAYS", c.UseRelays)
	c.PixelsPerMinute = getEnvFloat("STEADYSTREAM_PIXELS_PER_MINUTE", c.PixelsPerMinute)
	c.SlotMinutes = getEnvInt("STEADYSTREAM_SLOT_MINUTES", c.SlotMinutes)
	if v := os.Getenv("STEADYSTREAM_RELAYS"); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		c.Relays = out
	}
}

// HasXtream reports whether panel credentials are fully configured.
func (c *Config) HasXtream() bool {
	return c.XtreamBaseURL != "" && c.XtreamUser != "" && c.XtreamPass != ""
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
