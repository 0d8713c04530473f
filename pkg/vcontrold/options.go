package vcontrold

import (
	"errors"
	"log/slog"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig) error

// clientConfig holds the configuration for a Client.
type clientConfig struct {
	port             int
	connectTimeout   time.Duration
	readTimeout      time.Duration
	maxReplySize     int
	identifyAttempts int
	logger           *slog.Logger
	sanitize         SanitizeOptions
	excludeTimers    bool
}

// defaultConfig returns the default client configuration.
func defaultConfig() *clientConfig {
	return &clientConfig{
		port:             3002,
		connectTimeout:   10 * time.Second,
		readTimeout:      30 * time.Second,
		maxReplySize:     DefaultMaxReplySize,
		identifyAttempts: 3,
		logger:           nil,
		sanitize: SanitizeOptions{
			SwitchAsBool: true,
		},
	}
}

// WithPort sets the TCP port vcontrold listens on.
// Default is 3002.
func WithPort(port int) ClientOption {
	return func(c *clientConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		c.port = port
		return nil
	}
}

// WithConnectTimeout sets the timeout for establishing a connection.
// Default is 10 seconds.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("connect timeout must be positive")
		}
		c.connectTimeout = d
		return nil
	}
}

// WithReadTimeout sets how long a single receive may block.
// vcontrold needs a few seconds per command, so keep this generous.
// Default is 30 seconds.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("read timeout must be positive")
		}
		c.readTimeout = d
		return nil
	}
}

// WithMaxReplySize sets the byte ceiling for a single reply read.
// Default is 1000 bytes.
func WithMaxReplySize(n int) ClientOption {
	return func(c *clientConfig) error {
		if n <= 0 {
			return errors.New("max reply size must be positive")
		}
		c.maxReplySize = n
		return nil
	}
}

// WithIdentifyAttempts sets how often the identification command is tried.
// Default is 3.
func WithIdentifyAttempts(n int) ClientOption {
	return func(c *clientConfig) error {
		if n < 1 {
			return errors.New("identify attempts must be at least 1")
		}
		c.identifyAttempts = n
		return nil
	}
}

// WithLogger sets a structured logger for debug and error logging.
// By default, no logging is performed.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) error {
		c.logger = logger
		return nil
	}
}

// WithSwitchAsBool selects how switch values are rendered: true/false
// when enabled, "on"/"off" otherwise. Default is true.
func WithSwitchAsBool(enabled bool) ClientOption {
	return func(c *clientConfig) error {
		c.sanitize.SwitchAsBool = enabled
		return nil
	}
}

// WithFahrenheit converts temperatures to Fahrenheit. Default is false.
func WithFahrenheit(enabled bool) ClientOption {
	return func(c *clientConfig) error {
		c.sanitize.Fahrenheit = enabled
		return nil
	}
}

// WithExcludeTimers drops the execution time fields from reports.
// Default is false.
func WithExcludeTimers(enabled bool) ClientOption {
	return func(c *clientConfig) error {
		c.excludeTimers = enabled
		return nil
	}
}
