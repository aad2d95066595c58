//
//
package link

import "errors"

var (
	// ErrNoChannel indicates neither link can carry the command.
	ErrNoChannel = errors.New("NO_CHANNEL")

	// ErrPrimaryOnly indicates a mission-transfer message was routed
	// toward the backup link, which cannot carry the handshake.
	ErrPrimaryOnly = errors.New("PRIMARY_ONLY")
)
