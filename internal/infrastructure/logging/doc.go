// Package logging provides structured logging for the Logix service.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - A separate size-rotated failure log (FailureLog) that captures the
//     request payload and stack of every failed request
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//	  file:
//	    path: "./logs/service.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//	    max_age: 0       # days, 0 keeps all
//	    compress: false
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	failures, err := logging.NewFailureLog(cfg.Logging.File, "1.0.0", logger)
//	failures.ReportFailure("read failed", payload, err)
package logging
