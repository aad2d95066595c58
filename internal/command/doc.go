// Package command implements the vehicle command surface.
//
// The controller validates each intent against the vehicle registry,
// dispatches it over the transport arbiter, writes an audit record, and
// publishes the matching events. Emergency actions requested by the
// safety monitor travel through the same methods operators use.
package command
