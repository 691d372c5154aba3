// Package config loads, normalizes, and validates Aerial configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// BARK_DEVICE_KEY. The Config type centralizes every knob the daemon and CLI
// need, from playlist sources and probe budgets to output naming and log
// retention, so everything is discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
