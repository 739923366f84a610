package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

// Config holds the complete application configuration
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Engine  EngineConfig  `toml:"engine" yaml:"engine"`
	Console ConsoleConfig `toml:"console" yaml:"console"`
	Process ProcessConfig `toml:"process" yaml:"process"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	DataDir   string `toml:"data_dir" yaml:"data_dir"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// EngineConfig holds the script engine limits and syntax markers
type EngineConfig struct {
	ExecMaxCount     int    `toml:"exec_max_count" yaml:"exec_max_count"`
	GotoMaxCount     int    `toml:"goto_max_count" yaml:"goto_max_count"`
	StopOnError      bool   `toml:"stop_on_error" yaml:"stop_on_error"`
	CommentPrefix    string `toml:"comment_prefix" yaml:"comment_prefix"`
	CollateralPrefix string `toml:"collateral_prefix" yaml:"collateral_prefix"`
	NoEmptyVars      bool   `toml:"no_empty_vars" yaml:"no_empty_vars"`
	DebugLog         bool   `toml:"debug_log" yaml:"debug_log"`
	ShareLocalVars   bool   `toml:"share_local_vars" yaml:"share_local_vars"`
}

// ConsoleConfig holds console output settings
type ConsoleConfig struct {
	Colour bool   `toml:"colour" yaml:"colour"`
	Output string `toml:"output" yaml:"output"`
}

// ProcessConfig holds child process settings
type ProcessConfig struct {
	// Shell is used to start command lines, empty runs them directly
	Shell       string   `toml:"shell" yaml:"shell"`
	KillTimeout Duration `toml:"kill_timeout" yaml:"kill_timeout"`
	ExitCommand string   `toml:"exit_command" yaml:"exit_command"`
}

// StoreConfig holds script library and run history settings
type StoreConfig struct {
	Type        string `toml:"type" yaml:"type"`
	Path        string `toml:"path" yaml:"path"`
	HistoryPath string `toml:"history_path" yaml:"history_path"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration string from YAML
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML formats the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.Console.Colour = true
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file, picked by extension
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "config file not readable").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Load").
			WithDetail("path", path)
	}

	// Console colour defaults to on unless the file says otherwise
	cfg := Config{Console: ConsoleConfig{Colour: true}}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		_, err = toml.Decode(string(data), &cfg)
	}
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to parse config").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Load").
			WithDetail("path", path)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from MEXEC_CONFIG or a default location.
// Without any file the defaults are returned.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv("MEXEC_CONFIG"); path != "" {
		return Load(path)
	}

	defaultPaths := []string{
		"./configs/config.toml",
		"./config.toml",
		filepath.Join(os.Getenv("HOME"), ".config/mexec/config.toml"),
	}
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

func (c *Config) applyDefaults() {
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "console"
	}

	if c.Engine.ExecMaxCount == 0 {
		c.Engine.ExecMaxCount = 100000
	}
	if c.Engine.GotoMaxCount == 0 {
		c.Engine.GotoMaxCount = 10000
	}
	if c.Engine.CommentPrefix == "" {
		c.Engine.CommentPrefix = "//"
	}
	if c.Engine.CollateralPrefix == "" {
		c.Engine.CollateralPrefix = "nppexec:"
	}

	if c.Console.Output == "" {
		c.Console.Output = "stdout"
	}

	if c.Process.KillTimeout.Duration == 0 {
		c.Process.KillTimeout.Duration = 2 * time.Second
	}

	if c.Store.Type == "" {
		c.Store.Type = "yaml"
	}
	if c.Store.Path == "" {
		if c.Store.Type == "sqlite" {
			c.Store.Path = filepath.Join(c.General.DataDir, "scripts.db")
		} else {
			c.Store.Path = filepath.Join(c.General.DataDir, "scripts.yaml")
		}
	}
	if c.Store.HistoryPath == "" {
		c.Store.HistoryPath = filepath.Join(c.General.DataDir, "history.db")
	}
}

func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.Store.HistoryPath = os.ExpandEnv(c.Store.HistoryPath)
	c.Process.Shell = os.ExpandEnv(c.Process.Shell)
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	invalid := func(key string, value interface{}, reason string) error {
		return mdwerror.New("invalid configuration value").
			WithCode(mdwerror.CodeInvalidConfig).
			WithOperation("config.Validate").
			WithDetail("key", key).
			WithDetail("value", value).
			WithDetail("reason", reason)
	}

	if c.Engine.ExecMaxCount < 1 {
		return invalid("engine.exec_max_count", c.Engine.ExecMaxCount, "must be positive")
	}
	if c.Engine.GotoMaxCount < 1 {
		return invalid("engine.goto_max_count", c.Engine.GotoMaxCount, "must be positive")
	}
	if strings.TrimSpace(c.Engine.CollateralPrefix) != c.Engine.CollateralPrefix {
		return invalid("engine.collateral_prefix", c.Engine.CollateralPrefix, "must not contain surrounding spaces")
	}
	switch c.Store.Type {
	case "yaml", "sqlite":
	default:
		return invalid("store.type", c.Store.Type, "must be yaml or sqlite")
	}
	switch c.Console.Output {
	case "stdout", "stderr":
	default:
		return invalid("console.output", c.Console.Output, "must be stdout or stderr")
	}
	if c.Process.KillTimeout.Duration < 0 {
		return invalid("process.kill_timeout", c.Process.KillTimeout.String(), "must not be negative")
	}
	return nil
}

// Summary returns a one-line description used in debug logs
func (c *Config) Summary() string {
	return fmt.Sprintf("exec_max=%d goto_max=%d stop_on_error=%t store=%s",
		c.Engine.ExecMaxCount, c.Engine.GotoMaxCount, c.Engine.StopOnError, c.Store.Type)
}
