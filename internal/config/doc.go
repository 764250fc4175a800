// Package config holds the run configuration of pokeapi-ingest.
//
// Values are layered with increasing precedence: built-in defaults, a YAML
// configuration file, POKEAPI_* environment variables and finally command
// line flags (applied by the CLI).
package config
