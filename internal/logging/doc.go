// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to stderr (or Config.Output) as text or JSON
//   - Also logs to systemd journal when available (Linux systems with journald)
//
// Stdout is never written: cmdutils copies the output of the commands it
// runs there.
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"runner": "debug",  // Per-module overrides
//			"jobs":   "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("mymodule")
//	logger.Info("Starting up", "job", name)
//	logger.Debug("Details", "config", cfg)
//
// # Output Destinations
//
//	Journal available → MultiHandler (writer + journal)
//	Otherwise         → TextHandler or JSONHandler
//
// Journal availability is checked via [github.com/coreos/go-systemd/v22/journal.Enabled].
//
// # Viewing Logs
//
//	journalctl -t cmdutils                 # All cmdutils logs
//	journalctl -t cmdutils -f              # Follow live
//	journalctl -t cmdutils MODULE=runner   # Runner only
//	journalctl -t cmdutils RUN_ID=<uuid>   # One invocation
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	runner = "debug"   # any other key is a module name
package logging
