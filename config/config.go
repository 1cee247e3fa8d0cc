// Package config defines the flat configuration the core framework consumes
// and loads it from a YAML file. The logging backend the framework writes
// to is a host application concern.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// IPFamily selects which address family to dial.
type IPFamily string

const (
	IPv4 IPFamily = "inet4"
	IPv6 IPFamily = "inet6"
)

// Config holds every option the core framework recognizes.
type Config struct {
	Server      string   `yaml:"server"`
	ServerIPType IPFamily `yaml:"server_ip_type"`
	Port        int      `yaml:"port"`
	UseSSL      bool     `yaml:"use_ssl"`
	BotName     string   `yaml:"bot_name"`
	Password    string   `yaml:"password"`
	Channels    []string `yaml:"channels"`
	HelpCmd     string   `yaml:"help_cmd"`

	// ReconnectIntervalMS is the backoff spacing between reconnect attempts,
	// in milliseconds. Stored as a plain int in YAML and converted to a
	// time.Duration by ReconnectInterval(); see DESIGN.md Open Question 1 — the source's
	// seconds-vs-milliseconds asymmetry between plain and TLS paths is not
	// reproduced here.
	ReconnectIntervalMS int `yaml:"reconnect_interval"`

	// ServerTimeoutMS is the liveness deadline in milliseconds. Zero disables
	// the check.
	ServerTimeoutMS int `yaml:"server_timeout"`

	// NickAlternateSuffix is appended to the bot's nick when the server
	// reports 433 (nick in use). Defaults to "_".
	NickAlternateSuffix string `yaml:"nick_alternate_suffix"`
}

// ReconnectInterval returns the configured reconnect backoff as a Duration.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalMS) * time.Millisecond
}

// ServerTimeout returns the configured liveness deadline, or zero if
// disabled.
func (c *Config) ServerTimeout() time.Duration {
	if c.ServerTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.ServerTimeoutMS) * time.Millisecond
}

// Fatal wraps a configuration error that should abort startup.
type Fatal struct {
	Reason string
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("configuration fault: %s", e.Reason)
}

// Load reads and parses a YAML configuration file, applies defaults, and
// validates the startup contract: bot_name, server, and port are required.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		NickAlternateSuffix: "_",
		ServerIPType:        IPv4,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.NickAlternateSuffix == "" {
		cfg.NickAlternateSuffix = "_"
	}
	if cfg.ServerIPType == "" {
		cfg.ServerIPType = IPv4
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.BotName == "":
		return &Fatal{Reason: "bot_name is required"}
	case c.Server == "":
		return &Fatal{Reason: "server is required"}
	case c.Port == 0:
		return &Fatal{Reason: "port is required"}
	}
	return nil
}
