// Package transport provides UDP implementations of the wire channels.
//
// Frames are the JSON envelopes of the wire package, one per datagram.
// The primary channel is bidirectional: it learns each vehicle's return
// address from inbound traffic. The secondary channel is send-only,
// matching a one-way broadcast radio.
package transport
