// Package logging provides a simple leveled logging interface for the
// image viewer.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (watcher events, skipped files)
//   - INFO: General operational messages
//   - WARN: Warning conditions such as files that vanished mid-event
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. SetLevel overrides either at runtime.
package logging
