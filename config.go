package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyber-boost/helix/logging"
	"github.com/cyber-boost/helix/pkg/binary"
)

// Config is the CLI's configuration: compiler defaults and logging level.
// Loaded from a JSON or YAML file, falling back to DefaultConfig when no
// path is given or the file doesn't exist.
type Config struct {
	Compiler CompilerConfig `json:"compiler" yaml:"compiler"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// CompilerConfig mirrors binary.CompileOptions for file-based configuration.
type CompilerConfig struct {
	Compression string `json:"compression" yaml:"compression"` // "none", "lz4", "gzip", "zstd"
	Checksum    bool   `json:"checksum" yaml:"checksum"`
	OptLevel    int    `json:"opt_level" yaml:"opt_level"` // 0-3
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// DefaultConfig returns the default configuration: zstd compression with
// a checksum, O1 (matching binary.DefaultCompileOptions's own default
// compression/checksum choice, O1 instead of O0 as a reasonable default
// for CLI use), info-level logging.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Compression: "zstd",
			Checksum:    true,
			OptLevel:    1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CompileOptions converts the loaded CompilerConfig into binary.CompileOptions.
func (c *Config) CompileOptions() binary.CompileOptions {
	var comp binary.CompressionType
	switch strings.ToLower(c.Compiler.Compression) {
	case "none":
		comp = binary.CompressNone
	case "lz4":
		comp = binary.CompressLZ4
	case "gzip":
		comp = binary.CompressGzip
	default:
		comp = binary.CompressZstd
	}
	return binary.CompileOptions{
		Compression: comp,
		Checksum:    c.Compiler.Checksum,
		OptLevel:    binary.OptLevel(c.Compiler.OptLevel),
	}
}

// Logger builds a logging.Logger at the configured level, used for
// compile progress.
func (c *Config) Logger() logging.Logger {
	var level logging.LogLevel
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		level = logging.LevelDebug
	case "warn", "warning":
		level = logging.LevelWarning
	case "error":
		level = logging.LevelError
	default:
		level = logging.LevelInfo
	}
	return logging.NewDefaultLoggerWithConfig(logging.LoggerConfig{Level: level})
}

// LoadConfig loads configuration from a JSON or YAML file. An empty path,
// or a path that doesn't exist, returns DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	path = expandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %v", err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	return config, nil
}

// SaveConfig saves configuration to a file, inferring format from its extension.
func SaveConfig(config *Config, path string) error {
	path = expandHome(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %v", err)
		}
	}

	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
