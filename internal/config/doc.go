// Package config loads the postern configuration file and provides the
// defaults for the callback listener, flow timeouts, and workspace file
// locations.
package config
