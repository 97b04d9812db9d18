// Package config loads the gateway configuration.
//
// Configuration is a single YAML document. ${VAR} and ${VAR:-default}
// references are replaced from the environment before parsing, and $$ yields
// a literal dollar sign. Sections left out of the document keep the values of
// DefaultConfig.
package config
