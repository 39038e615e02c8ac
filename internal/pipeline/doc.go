// Package pipeline orchestrates lecture unit processing. The orchestrator
// drives units from idle through playlist lookup, transcription, and
// knowledge ingestion, recording progress in the procstate store. Recovery
// sweeps and the transcription poller run alongside the daemon and feed the
// same handlers as external callbacks.
package pipeline
