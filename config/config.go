// Package config provides YAML configuration parsing for AquaBoard.
//
// This package enables running AquaBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Planta Norte
//	port: 8080
//	poll_interval: 60s
//	lookback: 7d
//
//	influx:
//	  url: ${INFLUX_URL}
//	  token: ${INFLUX_TOKEN}
//	  org: aqua
//	  bucket: sensors
//
//	retain:
//	  count: 500
//
//	fields:
//	  - name: ph
//	    label: pH
//	    range: [0, 14]
//	  - name: turbidez
//	    label: Turbidez
//	    unit: NTU
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo database

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/aquaboard/source"
)

// minPollInterval is the minimum allowed polling interval for production configs.
// This prevents accidental load on the bucket with overly aggressive polling.
const minPollInterval = 1 * time.Second

// Environment variables consulted when a connection setting is left blank.
const (
	EnvURL    = "INFLUX_URL"
	EnvToken  = "INFLUX_TOKEN"
	EnvOrg    = "INFLUX_ORG"
	EnvBucket = "INFLUX_BUCKET"
)

// Config is the root configuration structure for AquaBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "AquaBoard" if not set.
	// Supports environment variable substitution.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between fetches.
	// Accepts duration strings like "30s", "1m", "1d".
	// Defaults to 60s.
	PollInterval Duration `yaml:"poll_interval"`

	// Lookback is how far back each range query reaches. Defaults to 7d.
	Lookback Duration `yaml:"lookback"`

	// FetchTimeout bounds a single fetch. Must be shorter than PollInterval.
	// If not specified, the SDK default applies.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// Timezone is the IANA zone timestamps are displayed in, e.g.
	// "America/Mexico_City". Defaults to UTC.
	Timezone string `yaml:"timezone"`

	// Influx holds the connection to the bucket.
	Influx InfluxConfig `yaml:"influx"`

	// Retain bounds the window. At most one of its settings may be given.
	Retain RetainConfig `yaml:"retain"`

	// Fields lists the readings to show, in display order.
	// If empty, the SDK default fields are used.
	Fields []FieldConfig `yaml:"fields"`
}

// InfluxConfig defines the connection to an InfluxDB bucket.
//
// Every value supports environment variable substitution. A value left
// blank falls back to the matching INFLUX_* environment variable. Values
// that are still missing are not a parse error: the dashboard starts and
// reports the connection as not configured.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// RetainConfig bounds how many samples the window keeps.
type RetainConfig struct {
	// Count keeps only the most recent samples.
	Count int `yaml:"count"`

	// Age keeps only samples newer than Age, measured from each fetch.
	Age Duration `yaml:"age"`
}

// FieldConfig describes one reading.
type FieldConfig struct {
	// Name is the field key as stored in the bucket.
	Name string `yaml:"name"`

	// Label is the display name. Defaults to Name.
	Label string `yaml:"label"`

	// Unit is shown next to values, e.g. "NTU".
	Unit string `yaml:"unit"`

	// Color is any CSS color. Defaults to the dashboard palette.
	Color string `yaml:"color"`

	// Range is the expected [min, max] of the reading, if known.
	Range []float64 `yaml:"range"`
}

// Duration wraps time.Duration for YAML unmarshalling.
//
// In addition to [time.ParseDuration] syntax it accepts a leading day
// count, as in "7d" or "1d12h".
type Duration time.Duration

// dayPattern matches a leading day count and the remainder.
var dayPattern = regexp.MustCompile(`^(\d+)d(.*)$`)

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := parseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (time.Duration, error) {
	m := dayPattern.FindStringSubmatch(s)
	if m == nil {
		return time.ParseDuration(s)
	}

	days, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	total := time.Duration(days) * 24 * time.Hour
	if m[2] == "" {
		return total, nil
	}
	rest, err := time.ParseDuration(m[2])
	if err != nil {
		return 0, err
	}
	return total + rest, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment
// values. An unset variable without a default is an error when required is
// set and expands to the empty string otherwise.
func expandEnvVars(s string, required bool) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			if !required {
				return ""
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Title and the influx values.
// Defaults are applied for Port (8080), PollInterval (60s) and
// Lookback (7d).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(60 * time.Second)
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = Duration(7 * 24 * time.Hour)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Connection returns the configured InfluxDB connection. Missing values are
// left blank; they are reported when the dashboard first polls.
func (c *Config) Connection() source.Connection {
	return source.Connection{
		URL:    c.Influx.URL,
		Token:  c.Influx.Token,
		Org:    c.Influx.Org,
		Bucket: c.Influx.Bucket,
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	title, err := expandEnvVars(c.Title, true)
	if err != nil {
		return fmt.Errorf("title: %w", err)
	}
	c.Title = title

	for _, s := range []struct {
		name  string
		env   string
		value *string
	}{
		{"url", EnvURL, &c.Influx.URL},
		{"token", EnvToken, &c.Influx.Token},
		{"org", EnvOrg, &c.Influx.Org},
		{"bucket", EnvBucket, &c.Influx.Bucket},
	} {
		expanded, err := expandEnvVars(*s.value, false)
		if err != nil {
			return fmt.Errorf("influx.%s: %w", s.name, err)
		}
		if strings.TrimSpace(expanded) == "" {
			expanded = os.Getenv(s.env)
		}
		*s.value = strings.TrimSpace(expanded)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.Lookback.Duration() <= 0 {
		return fmt.Errorf("lookback must be positive, got %s", c.Lookback.Duration())
	}
	if c.FetchTimeout != 0 {
		if c.FetchTimeout.Duration() < 0 {
			return fmt.Errorf("fetch_timeout cannot be negative, got %s", c.FetchTimeout.Duration())
		}
		if c.FetchTimeout >= c.PollInterval {
			return fmt.Errorf("fetch_timeout (%s) must be shorter than poll_interval (%s)",
				c.FetchTimeout.Duration(), c.PollInterval.Duration())
		}
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	if c.Retain.Count < 0 {
		return fmt.Errorf("retain.count cannot be negative, got %d", c.Retain.Count)
	}
	if c.Retain.Age.Duration() < 0 {
		return fmt.Errorf("retain.age cannot be negative, got %s", c.Retain.Age.Duration())
	}
	if c.Retain.Count > 0 && c.Retain.Age > 0 {
		return fmt.Errorf("retain: count and age are mutually exclusive")
	}

	seen := make(map[string]bool, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		f.Name = strings.TrimSpace(f.Name)

		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("fields[%d] (%s): duplicate field name", i, f.Name)
		}
		seen[f.Name] = true

		switch len(f.Range) {
		case 0:
		case 2:
			if f.Range[0] >= f.Range[1] {
				return fmt.Errorf("fields[%d] (%s): range minimum (%g) must be below maximum (%g)",
					i, f.Name, f.Range[0], f.Range[1])
			}
		default:
			return fmt.Errorf("fields[%d] (%s): range must have exactly two values, got %d", i, f.Name, len(f.Range))
		}
	}

	return nil
}
