// Package config loads and validates lectern's TOML configuration.
//
// Load applies three passes: decode over defaults, normalization (path
// expansion, whitespace trimming), then validation. A missing config file is
// not an error; defaults apply. The embedded sample_config.toml documents
// every option and is written out by `lectern config init`.
package config
