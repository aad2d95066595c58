// Package wire defines the telemetry and command message kinds exchanged
// with vehicle autopilots, together with the channel interfaces implemented
// by the external message codec.
//
// The on-the-wire binary encoding is not defined here; a codec adapter
// translates between its native frames and these structs. Field scaling
// follows the common autopilot conventions (1e7 degrees, millimeters,
// centimeters per second) so adapters can pass raw values through.
package wire
