// Package config loads runtime configuration from a YAML file and
// TOOLROUTING_* environment variables, with defaults matching the
// documented behavior of each component (similarity threshold 0.65,
// RRF k 60, top-K 10).
package config
