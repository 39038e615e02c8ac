// Package services defines shared utilities consumed by the pipeline
// orchestrator and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp unit IDs, phase names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across clients.
//   - A shared HTTP request helper with transient retry used by every
//     external client.
//
// Use these helpers when wiring new service integrations so operational
// behaviour (error handling, observability, retries) stays uniform.
package services
