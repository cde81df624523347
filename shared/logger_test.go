package shared

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newObservedLogger builds a Logger over an in-memory core so tests can
// inspect every emitted entry.
func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zap.DebugLevel)
	logger := &Logger{
		Logger:      zap.New(core),
		serviceName: "test",
	}
	return logger, recorded
}

func TestNewLoggerLevels(t *testing.T) {
	t.Run("ProductionSuppressesDebug", func(t *testing.T) {
		logger, err := NewLogger(LoggerConfig{ServiceName: "test"})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("production logger should not enable debug level")
		}
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("production logger should enable info level")
		}
	})

	t.Run("DevelopmentEnablesDebug", func(t *testing.T) {
		logger, err := NewLogger(LoggerConfig{ServiceName: "test", Development: true})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("development logger should enable debug level")
		}
	})
}

func TestNewLoggerFromEnv(t *testing.T) {
	t.Setenv("DEVELOPMENT", "true")
	logger, err := NewLoggerFromEnv("test")
	if err != nil {
		t.Fatalf("NewLoggerFromEnv failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("DEVELOPMENT=true should enable debug level")
	}

	t.Setenv("DEVELOPMENT", "false")
	logger, err = NewLoggerFromEnv("test")
	if err != nil {
		t.Fatalf("NewLoggerFromEnv failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("DEVELOPMENT=false should not enable debug level")
	}
}

func TestCriticalAndMismatchMarkers(t *testing.T) {
	logger, recorded := newObservedLogger()

	logger.Critical("vector execution failed", zap.String("vector", "v1"))
	logger.Mismatch("computed bytes diverge", zap.String("vector", "v2"))

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}

	critical := entries[0]
	if critical.Level != zapcore.ErrorLevel {
		t.Errorf("Critical level: got %v, want %v", critical.Level, zapcore.ErrorLevel)
	}
	if marked, ok := critical.ContextMap()["critical"].(bool); !ok || !marked {
		t.Error("Critical entry should carry critical=true")
	}
	if critical.ContextMap()["vector"] != "v1" {
		t.Errorf("Critical fields: got %v, want vector=v1", critical.ContextMap())
	}

	mismatch := entries[1]
	if mismatch.Level != zapcore.WarnLevel {
		t.Errorf("Mismatch level: got %v, want %v", mismatch.Level, zapcore.WarnLevel)
	}
	if marked, ok := mismatch.ContextMap()["mismatch"].(bool); !ok || !marked {
		t.Error("Mismatch entry should carry mismatch=true")
	}
}

func TestWithRunPropagatesRunID(t *testing.T) {
	logger, recorded := newObservedLogger()

	// The run ID must survive into the marker methods of the derived logger
	runLogger := logger.WithRun("a3c1")
	runLogger.Info("starting conformance run")
	runLogger.Critical("vector execution failed")

	for i, entry := range recorded.All() {
		if entry.ContextMap()["run_id"] != "a3c1" {
			t.Errorf("entry %d: missing run_id, fields %v", i, entry.ContextMap())
		}
	}

	if logger.WithRun("") != logger {
		t.Error("empty run ID should return the logger unchanged")
	}
}

func TestWithVectorAndCryptoOp(t *testing.T) {
	logger, recorded := newObservedLogger()

	logger.WithVector("chacha20-client-finished-seal").Debug("vector passed")
	logger.WithCryptoOp("seal").Debug("executing vector")

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].ContextMap()["vector"] != "chacha20-client-finished-seal" {
		t.Errorf("vector field: got %v", entries[0].ContextMap())
	}
	if entries[1].ContextMap()["crypto_operation"] != "seal" {
		t.Errorf("crypto_operation field: got %v", entries[1].ContextMap())
	}

	if logger.WithVector("") != logger.Logger {
		t.Error("empty vector name should return the embedded logger unchanged")
	}
}

func TestLoggerClose(t *testing.T) {
	logger, _ := newObservedLogger()
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
