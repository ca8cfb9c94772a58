// Package config loads, normalizes, and validates switchscan configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCORD_TOKEN and the CHANNEL_INITIAL_LIMIT family of tuning keys. A dotenv
// file may provide the same variables without exporting them into the
// process environment.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
