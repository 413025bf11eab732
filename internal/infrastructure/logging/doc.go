// Package logging wraps log/slog for the driver.
//
// Every record carries service and version attributes; level, format
// (json or text), and destination come from the logging section of
// config.yaml. Subsystems take the *Logger and usually narrow it with
// With("component", ...).
//
// Never log the Govee API key or the API bearer token. When a secret
// must be referenced at all, log a short prefix only.
package logging
