package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AdminAddr       string        `mapstructure:"admin_addr" yaml:"admin_addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	OutboundBuffer  int           `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`
	MaxLineBytes    int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:            ":12345",
		AdminAddr:       ":9090",
		LogLevel:        "info",
		LogFormat:       "console",
		OutboundBuffer:  256,
		MaxLineBytes:    16 << 20,
		WriteTimeout:    0,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Sanitize replaces unusable values with defaults.
func (c *Config) Sanitize() {
	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = def.OutboundBuffer
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}
