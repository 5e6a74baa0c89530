// Package logging provides the leveled logger used across the family album
// server and its tools.
//
// Messages go through a zap SugaredLogger. Supported levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is configured via LOG_LEVEL (or DEBUG=true) and the encoding via
// LOG_FORMAT ("console" or "json").
package logging
