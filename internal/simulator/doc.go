// Package simulator emulates an autopilot endpoint over UDP. It answers
// commands, mode changes, and the mission upload handshake the way a
// real vehicle would, and is used by the integration harness.
package simulator
