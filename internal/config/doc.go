// Package config loads, normalizes, and validates notedump configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NOTEDUMP_CLIENT_ID. Always obtain settings through this package so
// downstream code receives sanitized paths, canonical log formats, and
// clear validation errors.
package config
