// Package config loads mcpbench settings from defaults, an optional YAML file, a .env
// file and the environment, in increasing order of precedence. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit file is given and it exists.
const DefaultFile = "mcpbench.yaml"

// Tracker backends.
const (
	TrackerMemory = "memory"
	TrackerRedis  = "redis"
	TrackerGitHub = "github"
)

// Config holds every setting of the harness.
type Config struct {
	BinaryAddr string `yaml:"binary_addr" mapstructure:"binary_addr"`
	HTTPAddr   string `yaml:"http_addr" mapstructure:"http_addr"`

	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json

	CallTimeout    time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" mapstructure:"handler_timeout"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MaxInFlight    int           `yaml:"max_in_flight" mapstructure:"max_in_flight"`

	Tracker string       `yaml:"tracker" mapstructure:"tracker"`
	Redis   RedisConfig  `yaml:"redis" mapstructure:"redis"`
	GitHub  GitHubConfig `yaml:"github" mapstructure:"github"`
	Bench   BenchConfig  `yaml:"bench" mapstructure:"bench"`
}

// RedisConfig selects the Redis issue tracker.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// GitHubConfig selects the GitHub issue tracker.
type GitHubConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	Repo    string `yaml:"repo" mapstructure:"repo"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Retries int    `yaml:"retries" mapstructure:"retries"`
}

// BenchConfig drives the bench command.
type BenchConfig struct {
	Repetitions int      `yaml:"repetitions" mapstructure:"repetitions"`
	Warmup      int      `yaml:"warmup" mapstructure:"warmup"`
	Operations  []string `yaml:"operations,omitempty" mapstructure:"operations"`
	Issues      bool     `yaml:"issues" mapstructure:"issues"`
	Transports  []string `yaml:"transports" mapstructure:"transports"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BinaryAddr:     "127.0.0.1:8080",
		HTTPAddr:       "127.0.0.1:8001",
		LogLevel:       "info",
		LogFormat:      "text",
		CallTimeout:    10 * time.Second,
		HandlerTimeout: 30 * time.Second,
		MaxConnections: 1024,
		MaxInFlight:    256,
		Tracker:        TrackerMemory,
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "mcpbench:",
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
			Retries: 2,
		},
		Bench: BenchConfig{
			Repetitions: 10,
			Warmup:      3,
			Transports:  []string{"typed-binary", "text-based"},
		},
	}
}

// envBindings maps environment variables to config keys.
var envBindings = map[string][]string{
	"MCPBENCH_BINARY_ADDR":     {"binary_addr"},
	"MCPBENCH_HTTP_ADDR":       {"http_addr"},
	"MCPBENCH_LOG_LEVEL":       {"log_level"},
	"MCPBENCH_LOG_FORMAT":      {"log_format"},
	"MCPBENCH_CALL_TIMEOUT":    {"call_timeout"},
	"MCPBENCH_HANDLER_TIMEOUT": {"handler_timeout"},
	"MCPBENCH_MAX_CONNECTIONS": {"max_connections"},
	"MCPBENCH_MAX_IN_FLIGHT":   {"max_in_flight"},
	"MCPBENCH_TRACKER":         {"tracker"},
	"MCPBENCH_REDIS_ADDR":      {"redis", "addr"},
	"MCPBENCH_REDIS_PASSWORD":  {"redis", "password"},
	"MCPBENCH_REDIS_DB":        {"redis", "db"},
	"MCPBENCH_REDIS_PREFIX":    {"redis", "prefix"},
	"GITHUB_TOKEN":             {"github", "token"},
	"GITHUB_REPO":              {"github", "repo"},
	"MCPBENCH_GITHUB_BASE_URL": {"github", "base_url"},
	"MCPBENCH_GITHUB_RETRIES":  {"github", "retries"},
	"MCPBENCH_REPETITIONS":     {"bench", "repetitions"},
	"MCPBENCH_WARMUP":          {"bench", "warmup"},
	"MCPBENCH_OPERATIONS":      {"bench", "operations"},
	"MCPBENCH_TRANSPORTS":      {"bench", "transports"},
}

// Load builds the configuration. path may be empty, in which case DefaultFile is used
// if present. Variables from a .env file in the working directory are loaded into the
// process environment first; existing variables win.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := decode(fromEnv(os.LookupEnv), cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadDotEnv loads path into the environment without overriding set variables.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func fromEnv(lookup func(string) (string, bool)) map[string]any {
	raw := map[string]any{}
	for name, keys := range envBindings {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		m := raw
		for _, k := range keys[:len(keys)-1] {
			next, ok := m[k].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[k] = next
			}
			m = next
		}
		m[keys[len(keys)-1]] = v
	}
	return raw
}

// decode overlays raw onto cfg. Only keys present in raw are touched.
func decode(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Tracker {
	case TrackerMemory, TrackerRedis, TrackerGitHub:
	default:
		errs = append(errs, fmt.Errorf("unknown tracker %q (want memory, redis or github)", c.Tracker))
	}
	if c.Tracker == TrackerGitHub && (c.GitHub.Token == "" || c.GitHub.Repo == "") {
		errs = append(errs, errors.New("github tracker requires GITHUB_TOKEN and GITHUB_REPO"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.Bench.Repetitions <= 0 {
		errs = append(errs, errors.New("bench.repetitions must be positive"))
	}
	if c.Bench.Warmup < 1 {
		errs = append(errs, errors.New("bench.warmup must be at least 1"))
	}
	if c.MaxConnections <= 0 || c.MaxInFlight <= 0 {
		errs = append(errs, errors.New("max_connections and max_in_flight must be positive"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Bench.Operations = append([]string(nil), c.Bench.Operations...)
	out.Bench.Transports = append([]string(nil), c.Bench.Transports...)
	if out.GitHub.Token != "" {
		out.GitHub.Token = "****"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "****"
	}
	return &out
}

// YAML renders the configuration in the file format Load accepts.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
