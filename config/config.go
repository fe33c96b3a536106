package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"phantomlink/dispatch"
	"phantomlink/motion"
	"phantomlink/operator"
	"phantomlink/preset"
	"phantomlink/serialcomm"
)

// Config holds the phantomd configuration.
type Config struct {
	Serial Serial `yaml:"serial"`
	Engine Engine `yaml:"engine"`
	Preset Preset `yaml:"preset"`
	Link   Link   `yaml:"link"`
	Log    Log    `yaml:"log"`
}

type Serial struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// Driver selects the serial implementation: tarm or bugst.
	Driver string `yaml:"driver"`
}

type Engine struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type Preset struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

type Link struct {
	// Listen is the address phantomd serve accepts operators on.
	Listen string `yaml:"listen"`
	// URL is the websocket URL phantomd attach dials.
	URL         string        `yaml:"url"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type Log struct {
	History int `yaml:"history"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Serial: Serial{
			BaudRate:    motion.DefaultBaudRate,
			ReadTimeout: motion.DefaultReadTimeout,
			Driver:      serialcomm.DriverTarm,
		},
		Engine: Engine{FlushInterval: motion.DefaultFlushInterval},
		Preset: Preset{TickInterval: preset.TickIncrement * time.Millisecond},
		Link: Link{
			Listen:      "127.0.0.1:7878",
			URL:         "ws://127.0.0.1:7878/commands",
			PollTimeout: dispatch.DefaultPollTimeout,
		},
		Log: Log{History: operator.DefaultHistory},
	}
}

// DefaultPath returns the default config file path: ~/.phantomlink/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".phantomlink", "config.yaml")
	}
	return filepath.Join(home, ".phantomlink", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the components cannot run with.
func (c *Config) Validate() error {
	if _, err := serialcomm.OpenerFor(c.Serial.Driver); err != nil {
		return err
	}
	switch {
	case c.Serial.BaudRate <= 0:
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	case c.Engine.FlushInterval <= 0:
		return fmt.Errorf("engine.flush_interval must be positive, got %s", c.Engine.FlushInterval)
	case c.Preset.TickInterval <= 0:
		return fmt.Errorf("preset.tick_interval must be positive, got %s", c.Preset.TickInterval)
	case c.Log.History <= 0:
		return fmt.Errorf("log.history must be positive, got %d", c.Log.History)
	}
	return nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
