package common

import (
	"bytes"
	"strings"
	"testing"

	_ "factorydash.xyz/alert-engine/pkg/testing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Rule fired", zap.String("rule_id", "loom-temp"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Rule fired") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "loom-temp") {
		t.Errorf("expected log output to contain field, got: %s", logOutput)
	}
}

func TestLoggingCaptureWithCategory(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.WarnLevel)

	logger := GetLoggerWith(LoggerNameAlertCore, zap.String(LoggerFieldAlertCategory, LoggerCategoryAlertRule))
	logger.Info("below level")
	logger.Warn("rule disabled at load")

	logOutput := buf.String()
	if strings.Contains(logOutput, "below level") {
		t.Errorf("expected info entry to be filtered, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, `"category":"rule"`) {
		t.Errorf("expected category field, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, LoggerNameAlertCore) {
		t.Errorf("expected logger name, got: %s", logOutput)
	}
}
