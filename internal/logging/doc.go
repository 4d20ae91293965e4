// Package logging provides structured logging for waitroom.
//
// This package wraps Go's log/slog to write JSON lines, one per event, so
// that a wait session can be reconstructed after the fact: registration,
// every heartbeat, delivery or timeout, and any store read failures that
// were swallowed while polling.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{
//	    Dir:      "/var/log/waitroom",
//	    Level:    "INFO",
//	    Rotation: logging.DefaultRotationConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	agentLog := logger.WithAgent("reviewer").WithSession(sessionID)
//	agentLog.Info("heartbeat sent", "heartbeat", 2, "elapsed_seconds", 60)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"heartbeat sent","agent":"reviewer","session_id":"...","heartbeat":2,"elapsed_seconds":60}
//
// # Log Rotation
//
// When a directory is configured the log is written through [RotatingWriter],
// which renames waitroom.log to waitroom.log.1 once it exceeds MaxSizeMB,
// shifting older backups up to MaxBackups. With Compress set, rotated files
// are gzipped in the background.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted entries.
package logging
