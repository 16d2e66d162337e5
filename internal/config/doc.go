// Package config loads and merges ccr configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CCR_MODEL, CCR_RULES_DIR, CCR_FORMAT, etc.)
//  3. Config file (<rules dir>/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write one back, and
// [SetField] to update a single key by name.
package config
