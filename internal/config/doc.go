// Package config loads client configuration from YAML with ${ENV}
// expansion, optional defaults, and validation.
package config
