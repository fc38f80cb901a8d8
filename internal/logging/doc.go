// Package logging assembles the structured slog loggers used across shinkan.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes small helpers so scan code tags log lines with the
// series, identifier, and run ID fields consistently.
package logging
