// Package config parses and validates the CLI surface from spec.md §6.3.
// It is the "plain string-to-struct validator" spec §1 calls out as an
// external collaborator to the connection engine, plus the optional YAML
// config file SPEC_FULL.md adds on top of it: flags win, the file only
// supplies defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds validated startup configuration.
type Config struct {
	Port            int
	MaxConnections  int
	Backlog         int
	RecvBufferBytes int
	SendBufferBytes int
	LogLevel        string
	ConfigFile      string
}

// Defaults returns the values from spec §6.3's table.
func Defaults() Config {
	return Config{
		Port:            8080,
		MaxConnections:  10000,
		Backlog:         1024,
		RecvBufferBytes: 65536,
		SendBufferBytes: 65536,
		LogLevel:        "info",
	}
}

type fileConfig struct {
	Port            *int    `yaml:"port"`
	MaxConnections  *int    `yaml:"max_connections"`
	Backlog         *int    `yaml:"backlog"`
	RecvBufferBytes *int    `yaml:"recv_buffer"`
	SendBufferBytes *int    `yaml:"send_buffer"`
	LogLevel        *string `yaml:"log_level"`
}

func (c *Config) applyFile(fc fileConfig) {
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.MaxConnections != nil {
		c.MaxConnections = *fc.MaxConnections
	}
	if fc.Backlog != nil {
		c.Backlog = *fc.Backlog
	}
	if fc.RecvBufferBytes != nil {
		c.RecvBufferBytes = *fc.RecvBufferBytes
	}
	if fc.SendBufferBytes != nil {
		c.SendBufferBytes = *fc.SendBufferBytes
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
}

// findConfigFlag scans raw args for -config/--config before the real flag
// set runs, since the config file's values must become defaults that the
// real flags (parsed afterward) are still free to override.
func findConfigFlag(args []string) (path string, ok bool) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1], true
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config="), true
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config="), true
		}
	}
	return "", false
}

// Parse builds a Config from an optional YAML file (defaults layer) and
// the CLI flags in spec §6.3 (override layer), then validates it.
func Parse(args []string) (Config, error) {
	cfg := Defaults()

	if path, ok := findConfigFlag(args); ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading --config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parsing --config file: %w", err)
		}
		cfg.applyFile(fc)
		cfg.ConfigFile = path
	}

	fs := flag.NewFlagSet("netloopd", flag.ContinueOnError)
	fs.Usage = func() { Usage(fs) }

	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listening port (1024-65535)")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Maximum concurrent connections")
	fs.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "listen() backlog")
	fs.IntVar(&cfg.RecvBufferBytes, "recv-buffer", cfg.RecvBufferBytes, "Socket receive buffer size in bytes")
	fs.IntVar(&cfg.SendBufferBytes, "send-buffer", cfg.SendBufferBytes, "Socket send buffer size in bytes")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "one of debug, info, warn, error")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "optional YAML file supplying defaults")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Usage prints the option list, matching original_source/server/main.cpp's
// print_usage.
func Usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: netloopd [options]")
	fmt.Fprintln(os.Stderr, "Options:")
	fs.PrintDefaults()
}

// Validate applies exactly the rules from
// original_source/server/main.cpp's validate_config, which spec §6.3
// carries forward as the flag constraint table.
func (c Config) Validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1024 and 65535", c.Port)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max-connections must be > 0")
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be > 0")
	}
	if c.Backlog > c.MaxConnections {
		return fmt.Errorf("backlog cannot exceed max-connections")
	}
	if c.RecvBufferBytes < 4096 {
		return fmt.Errorf("recv-buffer must be >= 4096 bytes")
	}
	if c.SendBufferBytes < 4096 {
		return fmt.Errorf("send-buffer must be >= 4096 bytes")
	}
	if _, err := c.ZerologLevel(); err != nil {
		return err
	}
	return nil
}

// ZerologLevel maps the validated --log-level string onto zerolog's level
// type.
func (c Config) ZerologLevel() (zerolog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log-level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
}
