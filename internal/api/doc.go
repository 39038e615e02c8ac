// Package api defines wire-format types and converters for the daemon's HTTP
// API. It translates internal unit and state models into transport-friendly
// DTOs and provides the client the CLI uses to talk to a running daemon.
//
// DTOs use camelCase JSON tags. Internal enums (procstate.Phase) are exposed
// as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
