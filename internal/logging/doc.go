// Package logging configures slog handlers for the daemon and CLI.
//
// Two output formats are supported: a single-line console format for
// interactive use and JSON for log aggregation. Format "auto" selects
// console when stdout is a terminal. Standardized field keys keep unit,
// phase, and correlation identifiers consistent across components.
package logging
