// Package config loads application configuration from PORTICO_* environment
// variables with validated defaults. Every knob has a default that works for
// local development against a localhost Postgres; production deployments
// override via the environment.
package config
