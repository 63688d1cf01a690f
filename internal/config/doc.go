// Package config loads, normalizes, and validates mediafetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIAFETCH_OUTPUT_DIR. The Config type centralizes the network identity,
// retry policy, selection filters, and tool locations the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
