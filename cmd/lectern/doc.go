// Package main hosts the lectern CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, issues
// HTTP API calls against a running daemon for unit mutations, reads the
// state database directly for inspection commands, and scaffolds
// configuration files. It centralizes configuration resolution so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
