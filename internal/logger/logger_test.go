package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func initFile(t *testing.T, level string, cfg FileConfig) {
	t.Helper()
	if err := InitWithFileConfig(level, cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(Reset)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	Sync()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(content)
}

func TestLogRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "viewer.log")

	// 1MB is the smallest size lumberjack rotates at.
	initFile(t, "debug", FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1})

	payload := strings.Repeat("v", 256)
	for i := 0; i < 6000; i++ {
		Sugar.Infof("frame %d %s", i, payload)
	}
	Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	rotated := 0
	for _, e := range entries {
		name := e.Name()
		if name == "viewer.log" {
			continue
		}
		// viewer-2006-01-02T15-04-05.000.log
		if strings.HasPrefix(name, "viewer-20") && strings.HasSuffix(name, ".log") {
			rotated++
		}
	}
	if rotated == 0 {
		t.Errorf("no rotated files in %v", entries)
	}
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("current log file missing: %v", err)
	}
}

func TestLogLevels(t *testing.T) {
	all := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	tests := []struct {
		level string
		first int // index into all of the lowest level written
	}{
		{"error", 3},
		{"warn", 2},
		{"info", 1},
		{"debug", 0},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), tt.level+".log")
			initFile(t, tt.level, FileConfig{Path: logFile, MaxSizeMB: 10})

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := readLog(t, logFile)
			for i, lvl := range all {
				if got, want := strings.Contains(out, lvl), i >= tt.first; got != want {
					t.Errorf("level %s present = %v, want %v", lvl, got, want)
				}
			}
		})
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/viewer.log")
	want := FileConfig{Path: "/tmp/viewer.log", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7, Compress: true}
	if cfg != want {
		t.Errorf("DefaultFileConfig = %+v, want %+v", cfg, want)
	}
}

func TestNamedBeforeInit(t *testing.T) {
	Reset()
	if Named("mesh").Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger taken before Init should discard everything")
	}
}

func TestNamedComponent(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "named.log")
	initFile(t, "info", FileConfig{Path: logFile, MaxSizeMB: 1})

	Named("framebuffer").Info("target created", zap.String("kind", "depth"))

	out := readLog(t, logFile)
	for _, want := range []string{"framebuffer", "target created", "depth"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"WARN", zapcore.WarnLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
