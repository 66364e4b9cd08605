package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/logix-service/internal/infrastructure/config"
)

// FailureLog records request failures to a size-rotated file.
//
// Each failure becomes one JSON line holding the message, the request
// payload, the error text and the goroutine stack at the point of the report.
// Failures are mirrored at error level to the console logger when one is set.
//
// Thread Safety:
//   - ReportFailure is safe for concurrent use.
type FailureLog struct {
	out     io.WriteCloser
	log     *slog.Logger
	mirror  *Logger
	closeMu sync.Once
}

// NewFailureLog opens the rotating failure log described by cfg.
//
// MaxSize is in megabytes, MaxAge in days. The parent directory is created
// if it does not exist.
func NewFailureLog(cfg config.FileLoggingConfig, version string, mirror *Logger) (*FailureLog, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("failure log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating failure log directory: %w", err)
	}

	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return newFailureLog(out, version, mirror), nil
}

func newFailureLog(out io.WriteCloser, version string, mirror *Logger) *FailureLog {
	f := &FailureLog{
		out:    out,
		log:    slog.New(newHandler(out, "json", slog.LevelInfo, version)),
		mirror: mirror,
	}
	f.log.Info("failure log started")
	return f
}

// ReportFailure writes one failure record.
//
// payload is the decoded request (or raw JSON) that was being handled.
func (f *FailureLog) ReportFailure(message string, payload any, err error) {
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}

	f.log.Error(message,
		"payload", payload,
		"error", errText,
		"stack", string(debug.Stack()),
	)

	if f.mirror != nil {
		f.mirror.Error(message, "payload", payload, "error", errText)
	}
}

// Close writes the end marker and closes the underlying file.
func (f *FailureLog) Close() error {
	var err error
	f.closeMu.Do(func() {
		f.log.Info("failure log ended")
		err = f.out.Close()
	})
	return err
}
