package vcontrold

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithPort_Valid(t *testing.T) {
	cfg := defaultConfig()

	err := WithPort(3002)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3002, cfg.port)

	err = WithPort(1)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.port)

	err = WithPort(65535)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 65535, cfg.port)
}

func TestWithPort_Invalid(t *testing.T) {
	cfg := defaultConfig()

	assert.Error(t, WithPort(0)(cfg))
	assert.Error(t, WithPort(-1)(cfg))
	assert.Error(t, WithPort(65536)(cfg))
	assert.Equal(t, 3002, cfg.port)
}

func TestWithConnectTimeout_Valid(t *testing.T) {
	cfg := defaultConfig()

	err := WithConnectTimeout(3 * time.Second)(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.connectTimeout)
}

func TestWithConnectTimeout_Invalid(t *testing.T) {
	cfg := defaultConfig()

	assert.Error(t, WithConnectTimeout(0)(cfg))
	assert.Error(t, WithConnectTimeout(-1*time.Second)(cfg))
}

func TestWithReadTimeout(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithReadTimeout(45*time.Second)(cfg))
	assert.Equal(t, 45*time.Second, cfg.readTimeout)

	assert.Error(t, WithReadTimeout(0)(cfg))
}

func TestWithMaxReplySize(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithMaxReplySize(4096)(cfg))
	assert.Equal(t, 4096, cfg.maxReplySize)

	assert.Error(t, WithMaxReplySize(0)(cfg))
}

func TestWithIdentifyAttempts(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithIdentifyAttempts(1)(cfg))
	assert.Equal(t, 1, cfg.identifyAttempts)

	assert.Error(t, WithIdentifyAttempts(0)(cfg))
}

func TestWithLogger(t *testing.T) {
	cfg := defaultConfig()
	assert.Nil(t, cfg.logger)

	logger := slog.Default()
	err := WithLogger(logger)(cfg)
	require.NoError(t, err)
	assert.Equal(t, logger, cfg.logger)
}

func TestWithLogger_Nil(t *testing.T) {
	cfg := defaultConfig()
	cfg.logger = slog.Default()

	err := WithLogger(nil)(cfg)
	require.NoError(t, err)
	assert.Nil(t, cfg.logger)
}

func TestRenderingOptions(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, WithSwitchAsBool(false)(cfg))
	require.NoError(t, WithFahrenheit(true)(cfg))
	require.NoError(t, WithExcludeTimers(true)(cfg))

	assert.Equal(t, SanitizeOptions{SwitchAsBool: false, Fahrenheit: true}, cfg.sanitize)
	assert.True(t, cfg.excludeTimers)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, 3002, cfg.port)
	assert.Equal(t, 10*time.Second, cfg.connectTimeout)
	assert.Equal(t, 30*time.Second, cfg.readTimeout)
	assert.Equal(t, 1000, cfg.maxReplySize)
	assert.Equal(t, 3, cfg.identifyAttempts)
	assert.True(t, cfg.sanitize.SwitchAsBool)
	assert.False(t, cfg.sanitize.Fahrenheit)
	assert.False(t, cfg.excludeTimers)
	assert.Nil(t, cfg.logger)
}
