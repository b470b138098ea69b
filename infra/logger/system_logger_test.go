package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSystemLogger(t *testing.T) {
	config := SystemLoggerConfig{
		EnableConsole:    true,
		EnableOpenSearch: false,
		MinLevel:         LevelInfo,
		Service:          "test-service",
		Version:          "1.0.0",
		Environment:      "test",
	}

	logger := NewSystemLogger(nil, config)

	assert.NotNil(t, logger)
	assert.Equal(t, config.EnableConsole, logger.enableConsole)
	assert.Equal(t, config.MinLevel, logger.minLevel)
	assert.Equal(t, config.Service, logger.service)
	assert.Equal(t, config.Version, logger.version)
	assert.Equal(t, config.Environment, logger.environment)

	// OpenSearch stays disabled without a client even when requested
	config.EnableOpenSearch = true
	logger = NewSystemLogger(nil, config)
	assert.False(t, logger.enableOpenSearch)
}

func TestSystemLogger_LogLevels(t *testing.T) {
	config := SystemLoggerConfig{
		EnableConsole: false, // Disable console to avoid output during tests
		MinLevel:      LevelDebug,
		Service:       "test-service",
		Version:       "1.0.0",
		Environment:   "test",
	}

	logger := NewSystemLogger(nil, config)

	// Test all log levels
	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message", errors.New("test error"))

	// No assertions needed as we're just testing that methods don't panic
}

func TestSystemLogger_WithContext(t *testing.T) {
	config := SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
		Service:       "test-service",
		Version:       "1.0.0",
		Environment:   "test",
	}

	logger := NewSystemLogger(nil, config)

	ctx := LogContext{
		Provider:    "ecpay",
		OrderNumber: "ORD20250101001",
		RequestID:   "req-12345678",
		Fields:      map[string]any{"key": "value"},
	}

	logger.Debug("Debug with context", ctx)
	logger.Info("Info with context", ctx)
	logger.Warn("Warning with context", ctx)
	logger.Error("Error with context", errors.New("test error"), ctx)

	// No assertions needed as we're just testing that methods don't panic
}

func TestSystemLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		name     string
		minLevel LogLevel
		level    LogLevel
		expected bool
	}{
		{"debug_level_allows_all", LevelDebug, LevelDebug, true},
		{"info_level_blocks_debug", LevelInfo, LevelDebug, false},
		{"info_level_allows_info", LevelInfo, LevelInfo, true},
		{"warn_level_allows_error", LevelWarn, LevelError, true},
		{"error_level_blocks_warn", LevelError, LevelWarn, false},
		{"fatal_level_allows_fatal", LevelFatal, LevelFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewSystemLogger(nil, SystemLoggerConfig{MinLevel: tt.minLevel})
			assert.Equal(t, tt.expected, logger.shouldLog(tt.level))
		})
	}
}

func TestContextLogger(t *testing.T) {
	logger := NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: false,
		MinLevel:      LevelDebug,
	})

	cl := logger.WithContext(LogContext{Provider: "linepay"}).
		SetOrderNumber("ORD20250101001").
		AddField("transaction_id", "2021121600000001")

	assert.Equal(t, "linepay", cl.context.Provider)
	assert.Equal(t, "ORD20250101001", cl.context.OrderNumber)
	assert.Equal(t, "2021121600000001", cl.context.Fields["transaction_id"])

	cl.Debug("debug")
	cl.Info("info")
	cl.Warn("warn")
	cl.Error("error", errors.New("test error"))
}

func TestSystemLogger_ExtractComponent(t *testing.T) {
	logger := NewSystemLogger(nil, SystemLoggerConfig{})

	assert.Equal(t, "provider/ecpay", logger.extractComponent("/home/dev/paygate/provider/ecpay/ecpay.go"))
	assert.Equal(t, "handler/callback.go", logger.extractComponent("/home/dev/paygate/handler/callback.go"))
	assert.Equal(t, "tmp", logger.extractComponent("/tmp/main.go"))
}
