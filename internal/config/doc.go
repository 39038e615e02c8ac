// Package config loads, normalizes, and validates Lectern configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LECTERN_API_TOKEN. The Config type centralizes every knob the daemon and CLI
// need, from external service endpoints to sweep cadences and retry budgets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
