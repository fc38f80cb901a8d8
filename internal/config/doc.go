// Package config loads and validates the TOML configuration for shinkan.
//
// Configuration comes from a single config file (catalog endpoint, request
// pacing, freshness threshold, notification and logging settings) plus a
// separate series file listing the tracked publications. Load applies
// defaults, expands ~ in paths, and validates the result so the rest of the
// program can assume a usable Config.
package config
