// Package daemon hosts the long-running lectern process: the recovery
// scheduler, the transcription poller, and the HTTP API that receives
// operator commands and ingestion callbacks. A lock file under the log
// directory enforces single-instance execution.
package daemon
