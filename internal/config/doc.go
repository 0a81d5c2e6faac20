// Package config loads, normalizes, and validates nassav configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: the output root that sandboxes task directories, the
// external acquisition tool and its supervision timeouts, and stream cadences.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
