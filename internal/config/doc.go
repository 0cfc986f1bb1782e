// Package config loads, normalizes, and validates lotsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and LOTSORT_WEBHOOK_URL. The Config type centralizes every
// knob the API server and CLI need, from the clustering gap threshold to the
// chat completion endpoint used for lot descriptions.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
