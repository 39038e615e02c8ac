// Package procstate persists lecture units, their processing states, and
// transcription records in SQLite. The store is the single owner of the
// database; all mutations of a unit's state go through WithUnitLock so that
// concurrent triggers, callbacks, and sweeps never interleave on one unit.
package procstate
