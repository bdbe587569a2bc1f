// Package logging provides a simple leveled logging interface for the
// jukebox server.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true) and may be overridden with the --log-level flag.
package logging
