// Package logger provides the structured logging interface used across
// threadscraper.
//
// It wraps zerolog behind the Logger interface with support for:
// - Levels (debug, info, warn, error, fatal, disabled)
// - Structured fields via WithField, WithFields and the *WithFields methods
// - Coloured console output or raw JSON lines (logging.format)
// - An optional log file written alongside stderr
// - Request IDs carried through context.Context
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "engine")
//	log.InfoWithFields("Run started", map[string]interface{}{
//	    "run_id": runID,
//	    "query":  query,
//	})
//
// Tests inject NewNopLogger or NewTestLogger, whose captured messages can be
// inspected with GetMessages, GetMessagesByLevel and HasMessage.
package logger
