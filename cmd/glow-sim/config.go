package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glowkit/glow-go/cmd/glow-sim/sim"
)

// Config holds the simulator configuration. Values come from defaults, then
// the YAML file, then flags set on the command line.
type Config struct {
	Protocol      int32    `yaml:"protocol"`
	Blocks        bool     `yaml:"blocks"`
	DisableBlocks bool     `yaml:"disable_blocks"`
	Compression   int      `yaml:"compression"`
	EntityType    int32    `yaml:"entity_type"`
	MarkerIDBase  int32    `yaml:"marker_id_base"`
	Capture       string   `yaml:"capture"`
	LogLevel      string   `yaml:"log_level"`
	MetricsAddr   string   `yaml:"metrics_addr"`
	Clients       []string `yaml:"clients"`
	Interactive   bool     `yaml:"interactive"`
}

func defaultConfig() Config {
	d := sim.DefaultConfig()
	return Config{
		Protocol:     d.Protocol,
		Blocks:       d.Blocks,
		Compression:  d.Compression,
		EntityType:   d.EntityType,
		MarkerIDBase: d.Engine.MarkerIDBase,
		LogLevel:     "info",
		Interactive:  true,
	}
}

// registerFlags binds the flags to cfg's fields.
func registerFlags(fs *flag.FlagSet, cfg *Config, configFile *string) {
	var protocol, entityType, markerBase int
	fs.StringVar(configFile, "config", "", "YAML configuration file")
	fs.Func("protocol", "Protocol version the host speaks (default 767)", func(s string) error {
		_, err := fmt.Sscan(s, &protocol)
		cfg.Protocol = int32(protocol)
		return err
	})
	fs.BoolVar(&cfg.Blocks, "blocks", cfg.Blocks, "Host supports block highlights")
	fs.BoolVar(&cfg.DisableBlocks, "disable-blocks", cfg.DisableBlocks, "Disable the block extension in the engine")
	fs.IntVar(&cfg.Compression, "compression", cfg.Compression, "Frame compression threshold (negative disables)")
	fs.Func("entity-type", "Entity type ID for non-player entities", func(s string) error {
		_, err := fmt.Sscan(s, &entityType)
		cfg.EntityType = int32(entityType)
		return err
	})
	fs.Func("marker-id-base", "Highest entity ID used for block markers", func(s string) error {
		_, err := fmt.Sscan(s, &markerBase)
		cfg.MarkerIDBase = int32(markerBase)
		return err
	})
	fs.StringVar(&cfg.Capture, "capture", cfg.Capture, "Write capture events to this file (.glog or .glog.zst)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Start the interactive console")
}

// parseConfig parses args: the YAML file named by -config is applied first,
// then flags given on the command line override it.
func parseConfig(args []string) (Config, error) {
	var configFile string
	probe := flag.NewFlagSet("glow-sim", flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	var scratch Config
	registerFlags(probe, &scratch, &configFile)
	if err := probe.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if configFile != "" {
		if err := loadConfigFile(configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	fs := flag.NewFlagSet("glow-sim", flag.ContinueOnError)
	registerFlags(fs, &cfg, &configFile)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Clients = append(cfg.Clients, fs.Args()...)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Protocol <= 0 {
		return fmt.Errorf("protocol must be positive, got %d", c.Protocol)
	}
	if c.MarkerIDBase <= 0 {
		return fmt.Errorf("marker_id_base must be positive, got %d", c.MarkerIDBase)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Clients))
	for _, name := range c.Clients {
		if seen[name] {
			return fmt.Errorf("duplicate client %q", name)
		}
		seen[name] = true
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
}

// simConfig converts the file/flag configuration into the world's.
func (c Config) simConfig() sim.Config {
	s := sim.DefaultConfig()
	s.Protocol = c.Protocol
	s.Blocks = c.Blocks
	s.Compression = c.Compression
	s.EntityType = c.EntityType
	s.Engine.DisableBlocks = c.DisableBlocks
	s.Engine.MarkerIDBase = c.MarkerIDBase
	return s
}
