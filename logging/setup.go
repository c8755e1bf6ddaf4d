package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile is the append-only log name under the logs directory.
const LogFile = "app.log"

// Setup installs the default slog logger: rotated app.log under logsDir,
// console echo, ring buffer and broadcast hub. The returned close func
// flushes the file sink.
func Setup(levelName, logsDir string) (*Hub, func(), error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create logs dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, LogFile),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	hub := NewHub()
	handler := NewHandler(parseLevel(levelName), hub, file, os.Stdout)
	slog.SetDefault(slog.New(handler))

	return hub, func() { file.Close() }, nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
