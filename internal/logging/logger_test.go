package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForComponentBeforeInit(t *testing.T) {
	// A component logger created before Init must pick up the real handler
	// once Init runs, not stay bound to the discard handler.
	log := ForComponent("early")

	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "debug", Debug: true})
	defer Shutdown()

	log.Info("hello_after_init")

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello_after_init") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), `"component":"early"`) {
		t.Errorf("log file missing component attr, got: %s", data)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "warn", Debug: true})
	defer Shutdown()

	log := ForComponent("lvl")
	log.Debug("below_threshold")
	log.Warn("at_threshold")

	data, _ := os.ReadFile(filepath.Join(dir, "debug.log"))
	if strings.Contains(string(data), "below_threshold") {
		t.Error("debug message should have been filtered")
	}
	if !strings.Contains(string(data), "at_threshold") {
		t.Error("warn message should have been written")
	}
}

func TestLoggerBeforeInitDiscards(t *testing.T) {
	Shutdown()
	// Must not panic and must return a usable logger.
	Logger().Info("discarded")
}

func TestTextFormat(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info", Format: "text", Debug: true})
	defer Shutdown()

	ForComponent("fmt").Info("text_mode")

	data, _ := os.ReadFile(filepath.Join(dir, "debug.log"))
	if !strings.Contains(string(data), "msg=text_mode") {
		t.Errorf("expected text handler output, got: %s", data)
	}
}
