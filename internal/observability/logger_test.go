// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blackvectorops/ytghost/internal/config"
)

// setupTestLogger initializes the global logger to write to a buffer.
func setupTestLogger(cfg config.LoggerConfig) *bytes.Buffer {
	buf := new(bytes.Buffer)
	initializeLogger(cfg, zapcore.AddSync(buf))
	return buf
}

// resetGlobalLogger ensures test isolation; the logger is a global singleton.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

func TestInitializeLogger(t *testing.T) {
	t.Run("console logger with colors", func(t *testing.T) {
		resetGlobalLogger()

		buf := setupTestLogger(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "ytghost-test",
			Colors:      config.ColorConfig{Info: "green"},
		})

		GetLogger().Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
	})

	t.Run("json logger", func(t *testing.T) {
		resetGlobalLogger()

		buf := setupTestLogger(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "ytghost-test",
		})

		GetLogger().Info("structured entry", zap.String("key", "value"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "structured entry", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("debug suppressed at info level", func(t *testing.T) {
		resetGlobalLogger()

		buf := setupTestLogger(config.LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "ytghost-test",
		})

		GetLogger().Debug("should not appear")
		assert.NotContains(t, buf.String(), "should not appear")
	})
}

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	resetGlobalLogger()
	assert.NotNil(t, GetLogger())
}
