// Package link implements the dual-channel transport layer.
//
// The arbiter owns the bidirectional primary link and the one-way backup
// link and decides per command which one carries it. The receive loop is
// the single reader of the primary link; it merges telemetry into the
// vehicle registry, forwards mission-transfer traffic to the upload engine,
// and sweeps for vehicles that have gone quiet.
package link
