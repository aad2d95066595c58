//
//
package wire

import (
	"errors"
	"time"
)

// ErrNoMessage is returned by Recv when no message arrived within the
// poll timeout. It is not a link failure.
var ErrNoMessage = errors.New("NO_MESSAGE")

// ErrChannelClosed is returned by Send and Recv once a channel is closed.
var ErrChannelClosed = errors.New("CHANNEL_CLOSED")

// Channel is the outbound half of a link, implemented by the message codec
// adapter. Send targets one vehicle system id. Implementations are not
// required to be safe for concurrent writers; callers must serialize.
type Channel interface {
	// Open reports whether the underlying transport is usable.
	Open() bool
	Send(systemID int, msg Message) error
}

// Receiver is the inbound half of a bidirectional link.
type Receiver interface {
	// Recv blocks up to timeout for the next inbound message and returns
	// the source system id with it. ErrNoMessage signals an empty poll.
	Recv(timeout time.Duration) (systemID int, msg Message, err error)
}

// PrimaryChannel is the bidirectional main link.
type PrimaryChannel interface {
	Channel
	Receiver
}
