// Package logging provides leveled, subsystem-tagged logging for postern.
//
// Two modes are supported. CLI mode writes slog text lines to a writer
// and filters by level at the handler. Console mode buffers structured
// entries on a channel for the interactive terminal UI, which renders
// and filters them itself.
//
// Call one of InitCLI or InitConsole once at startup, then log through
// the package-level helpers:
//
//	logging.Info("Auth", "flow complete for request=%s", logging.TruncateID(id))
//	logging.Error("Auth", err, "token exchange failed")
//
// Identifiers should be passed through TruncateID; credential values
// must never be logged (see pkg/oauth.Redacted).
package logging
