// Package logging provides structured logging for node-setup.
//
// The package wraps a zap logger with a few convenience functions, a helper
// for store writes and MaskSecrets, which blanks password values before they
// reach a log line or the terminal.
//
// # Log Levels
//
//   - Debug: effective models, change sets, command lines
//   - Info: saved sections, committed steps
//   - Warn: failed probes, dry-run substitutions
//   - Error: failed steps and store errors
//
// # Silent by Default
//
// The wizard and the CLI print their own curated output. Logging stays
// silent unless a level is given on the command line or through
// NODE_SETUP_LOG_LEVEL:
//
//	NODE_SETUP_LOG_LEVEL=debug node-setup engine --address engine.example.com
//
// Initialize logging at startup and flush on exit:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// When a file is configured, output goes there instead of stderr so that log
// lines never tear the full-screen wizard.
package logging
