// Package config provides YAML configuration loading with environment
// variable overrides and validation for the tivod daemon.
package config
