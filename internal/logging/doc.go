// Package logging builds the slog loggers used across viva.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for ingestion. Standardized field keys keep
// submission session identifiers and component names consistent across
// the daemon, the HTTP API, and the CLI.
package logging
