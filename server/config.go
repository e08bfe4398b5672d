// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration, defaults and YAML loading.

package server

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/momentics/loopws/protocol"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Host             string  `yaml:"host"`               // bind address
	Port             int     `yaml:"port"`               // TCP port, 0 picks one
	ReadBufferSize   int     `yaml:"read_buffer_size"`   // bytes requested per transport read
	MaxMessageSize   int     `yaml:"max_message_size"`   // bound on frame and message payloads
	MaxHandshakeSize int     `yaml:"max_handshake_size"` // bound on the upgrade request head
	AcceptErrorRate  float64 `yaml:"accept_error_rate"`  // accept retries per second after errors
	AcceptErrorBurst int     `yaml:"accept_error_burst"`
	EventBatchSize   int     `yaml:"event_batch_size"` // tasks taken per event loop wakeup
	ReusePort        bool    `yaml:"reuse_port"`
	NoDelay          bool    `yaml:"no_delay"`

	Logger *log.Logger `yaml:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             9000,
		ReadBufferSize:   8192,
		MaxMessageSize:   protocol.DefaultMaxMessageSize,
		MaxHandshakeSize: protocol.MaxHandshakeSize,
		AcceptErrorRate:  10,
		AcceptErrorBurst: 1,
		EventBatchSize:   64,
		NoDelay:          true,
		Logger:           log.New(os.Stderr, "[loopws] ", log.LstdFlags),
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ReadBufferSize < 0 || c.MaxMessageSize < 0 || c.MaxHandshakeSize < 0 {
		return fmt.Errorf("buffer sizes must not be negative")
	}
	if c.AcceptErrorRate < 0 || c.AcceptErrorBurst < 0 {
		return fmt.Errorf("accept error pacing must not be negative")
	}
	return nil
}
