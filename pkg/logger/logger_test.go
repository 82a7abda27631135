package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"xlatorbot/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "bot").Info("Reply posted", "conv_id", "-100", "lang", "it", "ok", true, "error", errors.New("boom"))

	entry := decodeEntry(t, out.String())
	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Reply posted" {
		t.Fatalf("message = %q, want %q", entry.Message, "Reply posted")
	}
	if entry.Component != "bot" {
		t.Fatalf("component = %q, want %q", entry.Component, "bot")
	}
	if entry.ConvID != "-100" {
		t.Fatalf("conv_id = %q, want %q", entry.ConvID, "-100")
	}
	if _, ok := entry.Fields["conv_id"]; ok {
		t.Fatalf("conv_id left in fields: %v", entry.Fields)
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["lang"]; got != "it" {
		t.Fatalf("fields.lang = %v, want %q", got, "it")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
	if got := entry.Fields["error"]; got != "boom" {
		t.Fatalf("fields.error = %v, want %q", got, "boom")
	}
}

func TestLoggerGroupsPrefixKeys(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("item").Info("Skipped", "id", "7", "conv_id", "-5")

	entry := decodeEntry(t, out.String())
	if got := entry.Fields["item.conv_id"]; got != "-5" || entry.ConvID != "" {
		t.Fatalf("grouped conv_id = %v (entry %q), want field only", got, entry.ConvID)
	}
	if got := entry.Fields["item.id"]; got != "7" {
		t.Fatalf("fields[item.id] = %v, want %q", got, "7")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestSDKLoggerUsesItsOwnLevel(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newSDKWithWriter(config.LoggingConfig{Format: "json", Level: "debug", SDKLevel: "error"}, &out)
	if err != nil {
		t.Fatalf("newSDKWithWriter error: %v", err)
	}

	log.Warn("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for warn, got %q", got)
	}

	log.Error("Request failed")
	entry := decodeEntry(t, out.String())
	if entry.Component != "sdk" {
		t.Fatalf("component = %q, want %q", entry.Component, "sdk")
	}
}

func TestSDKLoggerDefaultsToWarn(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newSDKWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newSDKWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	clearLoggingEnv(t)
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	clearLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	clearLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "trace"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := newSDKWithWriter(config.LoggingConfig{SDKLevel: "verbose"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown sdk level")
	}
}

func decodeEntry(t *testing.T, raw string) LogEntry {
	t.Helper()

	line := strings.TrimSpace(raw)
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	return entry
}

func clearLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envLogLevel, "")
	t.Setenv(envLogFormat, "")
	t.Setenv(envSDKLogLevel, "")
	t.Setenv(envLogAddSource, "")
}
