/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
This is useful for extracting configuration values from YAML/JSON structures
without verbose type assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "model":      "claude-3-7-sonnet-20250219",
	    "max_tokens": 4000,
	    "checkpoint": map[string]any{"backend": "sqlite", "ttl": "24h"},
	})

	model := cfg.String("model", "")                       // "claude-3-7-sonnet-20250219"
	maxTokens := cfg.Int("max_tokens", 1024)               // 4000
	ttl := cfg.Sub("checkpoint").Duration("ttl", 0)        // 24h
	missing := cfg.String("system_prompt", "default")      // "default"

# Sections and Overrides

Sub returns a nested mapping as its own Config (empty if absent). With
returns a copy with one key replaced, for layering environment overrides
on top of a file:

	cfg = cfg.With("model", os.Getenv("CLAUDECHAT_MODEL"))

# Type Coercion

Duration handles multiple input types:
  - string: parsed with time.ParseDuration ("30s", "1h30m")
  - int/float64: interpreted as seconds
  - time.Duration: used directly

Numeric types handle reasonable conversions:
  - int from float64 (truncated)
  - float64 from int

All methods return the default value if:
  - The key is missing
  - The value cannot be converted to the requested type
  - The conversion would lose precision (e.g., float to int with fraction)

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("claudechat.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent reads. No method modifies the underlying
map; With copies it.
*/
package config
