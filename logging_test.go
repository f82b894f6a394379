// logging_test.go: logging interface tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"context"
	"sync"
	"testing"
)

// TestLogger_BasicMessageCapture tests the core logging functionality
// Covers: Debug(), Info(), Warn(), Error() message capture
func TestLogger_BasicMessageCapture(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(*TestLogger, string, ...any)
		level   string
		message string
		args    []any
	}{
		{
			name:    "Debug_SimpleMessage",
			logFunc: (*TestLogger).Debug,
			level:   "DEBUG",
			message: "debug message",
			args:    nil,
		},
		{
			name:    "Info_SimpleMessage",
			logFunc: (*TestLogger).Info,
			level:   "INFO",
			message: "info message",
			args:    nil,
		},
		{
			name:    "Warn_SimpleMessage",
			logFunc: (*TestLogger).Warn,
			level:   "WARN",
			message: "warn message",
			args:    nil,
		},
		{
			name:    "Error_SimpleMessage",
			logFunc: (*TestLogger).Error,
			level:   "ERROR",
			message: "error message",
			args:    nil,
		},
		{
			name:    "Info_WithStructuredArgs",
			logFunc: (*TestLogger).Info,
			level:   "INFO",
			message: "plugin loaded",
			args:    []any{"plugin", "greeter", "version", "v1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewTestLogger()

			tt.logFunc(logger, tt.message, tt.args...)

			if len(logger.Messages) != 1 {
				t.Fatalf("Expected 1 message, got %d", len(logger.Messages))
			}

			msg := logger.Messages[0]
			if msg.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, msg.Level)
			}

			if msg.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, msg.Message)
			}

			if tt.args != nil {
				if len(msg.Args) != len(tt.args) {
					t.Errorf("Expected %d args, got %d", len(tt.args), len(msg.Args))
				}

				for i, arg := range tt.args {
					if msg.Args[i] != arg {
						t.Errorf("Arg[%d]: expected %v, got %v", i, arg, msg.Args[i])
					}
				}
			}
		})
	}
}

// TestLogger_TestUtilities tests HasMessage() and Clear() functionality
func TestLogger_TestUtilities(t *testing.T) {
	t.Run("HasMessage_MessageExistsAndMissing", func(t *testing.T) {
		logger := NewTestLogger()
		logger.Info("plugin registered", "plugin", "greeter")
		logger.Error("manifest parse failed")
		logger.Debug("manifest cache hit", "path", "/plugins/greeter/.plugin.yml")

		if !logger.HasMessage("INFO", "plugin registered") {
			t.Error("Expected to find INFO message 'plugin registered'")
		}

		if !logger.HasMessage("ERROR", "manifest parse failed") {
			t.Error("Expected to find ERROR message 'manifest parse failed'")
		}

		if !logger.HasMessage("DEBUG", "manifest cache hit") {
			t.Error("Expected to find DEBUG message 'manifest cache hit'")
		}

		// Wrong level or wrong text must not match.
		if logger.HasMessage("WARN", "plugin registered") {
			t.Error("HasMessage matched the wrong level")
		}

		if logger.HasMessage("INFO", "plugin deregistered") {
			t.Error("HasMessage matched a message that was never logged")
		}
	})

	t.Run("Clear_RemovesAllMessages", func(t *testing.T) {
		logger := NewTestLogger()
		logger.Info("first")
		logger.Warn("second")

		if len(logger.Messages) != 2 {
			t.Fatalf("Expected 2 messages before Clear, got %d", len(logger.Messages))
		}

		logger.Clear()

		if len(logger.Messages) != 0 {
			t.Errorf("Expected 0 messages after Clear, got %d", len(logger.Messages))
		}

		if logger.HasMessage("INFO", "first") {
			t.Error("HasMessage found a cleared message")
		}

		// Logger remains usable after Clear.
		logger.Error("third")
		if !logger.HasMessage("ERROR", "third") {
			t.Error("Expected logger to capture messages after Clear")
		}
	})
}

// TestLogger_WithMethod tests the With() context chaining behavior
func TestLogger_WithMethod(t *testing.T) {
	t.Run("With_ReturnsIndependentCopy", func(t *testing.T) {
		original := NewTestLogger()
		original.Info("before with")

		derived := original.With("plugin", "greeter")

		derivedLogger, ok := derived.(*TestLogger)
		if !ok {
			t.Fatalf("Expected With to return *TestLogger, got %T", derived)
		}

		// The copy carries the snapshot taken at With time.
		if len(derivedLogger.Messages) != 1 {
			t.Fatalf("Expected 1 snapshot message, got %d", len(derivedLogger.Messages))
		}

		// New messages do not cross between the two loggers.
		derived.Info("derived only")
		original.Info("original only")

		if original.HasMessage("INFO", "derived only") {
			t.Error("Original logger captured a message logged on the derived logger")
		}

		if !derivedLogger.HasMessage("INFO", "derived only") {
			t.Error("Derived logger did not capture its own message")
		}

		if derivedLogger.HasMessage("INFO", "original only") {
			t.Error("Derived logger captured a message logged after the snapshot")
		}
	})
}

// TestLogger_ContextIntegration tests context-based logger passing
func TestLogger_ContextIntegration(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		logger := NewTestLogger()
		ctx := ContextWithLogger(context.Background(), logger)

		extracted := LoggerFromContext(ctx)
		if extracted != Logger(logger) {
			t.Error("Expected LoggerFromContext to return the stored logger")
		}

		extracted.Info("via context")
		if !logger.HasMessage("INFO", "via context") {
			t.Error("Expected message logged through extracted logger to be captured")
		}
	})

	t.Run("FallbackToDefault", func(t *testing.T) {
		extracted := LoggerFromContext(context.Background())

		if extracted == nil {
			t.Fatal("Expected fallback logger, got nil")
		}

		if _, ok := extracted.(*NoOpLogger); !ok {
			t.Errorf("Expected *NoOpLogger fallback, got %T", extracted)
		}
	})

	t.Run("ForeignContextValueIgnored", func(t *testing.T) {
		type otherKey string
		ctx := context.WithValue(context.Background(), otherKey("logger"), "not a logger")

		extracted := LoggerFromContext(ctx)
		if _, ok := extracted.(*NoOpLogger); !ok {
			t.Errorf("Expected *NoOpLogger for unrelated context value, got %T", extracted)
		}
	})
}

// TestNewLogger_Factory tests the NewLogger conversion rules
func TestNewLogger_Factory(t *testing.T) {
	t.Run("LoggerInterface_PassedThrough", func(t *testing.T) {
		testLogger := NewTestLogger()

		result := NewLogger(testLogger)
		if result != Logger(testLogger) {
			t.Error("Expected NewLogger to return the same Logger instance")
		}
	})

	t.Run("Nil_ReturnsNoOp", func(t *testing.T) {
		result := NewLogger(nil)

		if _, ok := result.(*NoOpLogger); !ok {
			t.Errorf("Expected *NoOpLogger for nil input, got %T", result)
		}
	})

	t.Run("UnsupportedType_Panics", func(t *testing.T) {
		unsupported := []any{"string logger", 42, struct{}{}}

		for _, input := range unsupported {
			func() {
				defer func() {
					if recover() == nil {
						t.Errorf("Expected panic for input %T", input)
					}
				}()
				NewLogger(input)
			}()
		}
	})
}

// TestNoOpLogger_Behavior verifies the silent logger discards everything
func TestNoOpLogger_Behavior(t *testing.T) {
	logger := NewNoOpLogger()

	// None of these must panic or block.
	logger.Debug("debug", "k", "v")
	logger.Info("info")
	logger.Warn("warn", "count", 3)
	logger.Error("error")

	derived := logger.With("plugin", "greeter")
	if derived != Logger(logger) {
		t.Error("Expected NoOpLogger.With to return the same instance")
	}

	if def, ok := DefaultLogger().(*NoOpLogger); !ok {
		t.Errorf("Expected DefaultLogger to be *NoOpLogger, got %T", def)
	}
}

// TestLogger_ThreadSafety verifies concurrent captures do not race
func TestLogger_ThreadSafety(t *testing.T) {
	logger := NewTestLogger()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				logger.Info("concurrent message", "goroutine", id, "iteration", j)
				_ = logger.HasMessage("INFO", "concurrent message")
			}
		}(i)
	}

	wg.Wait()

	if len(logger.Messages) != goroutines*perGoroutine {
		t.Errorf("Expected %d messages, got %d", goroutines*perGoroutine, len(logger.Messages))
	}
}
