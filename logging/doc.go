// Package logging provides a minimal Logger interface over log/slog so the
// rest of agentkit can log structured key/value pairs without binding to a
// concrete logger. Config builds a slog-backed Logger with optional
// redaction of sensitive attributes.
package logging
