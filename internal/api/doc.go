// Package api implements the HTTP control surface.
//
// Every response uses one envelope format with a correlation id. Command
// endpoints require the control scope, reads the read scope, and the
// telemetry stream the telemetry scope. Request bodies are decoded
// strictly; unknown fields and trailing data are rejected.
package api
