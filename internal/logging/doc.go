// Package logging builds the slog loggers used across podwatch.
//
// It supports a human-oriented console format and a machine-oriented JSON
// format, multiplexes output across stdout/stderr and log files, and exposes
// typed attribute helpers plus the standardized field names shared by the
// watcher and the CLI.
package logging
