// Package logging builds the slog loggers used across nassav.
//
// It offers a console handler that renders one readable line per record and a
// JSON handler for machine consumption, selected by configuration. Helper
// constructors standardize component attribution and field names so log
// output stays greppable across the daemon, orchestrator, and CLI.
package logging
