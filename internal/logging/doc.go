// Package logging provides structured logging helpers for propertyinbox.
//
// All packages log through log/slog. This package holds the shared attribute
// keys so that run, message and stage identifiers look the same in every log
// line, plus a constructor that builds the process logger from configuration.
//
// Typical use:
//
//	logger := logging.WithOperation(slog.Default(), "organizer.run")
//	logger.Info("message organized",
//	    logging.MessageID(id),
//	    logging.Folder(name))
//
// Secrets are never logged directly; use SanitizeToken for credentials.
package logging
