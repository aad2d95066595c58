//
//
package transport

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/wire"
)

// maxDatagram bounds inbound frame size.
const maxDatagram = 64 * 1024

// UDPPrimary is the bidirectional main link over UDP.
type UDPPrimary struct {
	conn *net.UDPConn
	log  *slog.Logger

	mu     sync.Mutex
	peers  map[int]*net.UDPAddr
	closed bool

	buf [maxDatagram]byte
}

// Compile-time assertion that UDPPrimary is a usable primary link.
var _ wire.PrimaryChannel = (*UDPPrimary)(nil)

// NewUDPPrimary listens for vehicle traffic on the given address.
func NewUDPPrimary(listen string, log *slog.Logger) (*UDPPrimary, error) {
	addr, err := net.ResolveUDPAddr("udp", listen)
	if err != nil {
		return nil, fmt.Errorf("resolve primary listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on primary link: %w", err)
	}
	return &UDPPrimary{
		conn:  conn,
		log:   log,
		peers: make(map[int]*net.UDPAddr),
	}, nil
}

// Addr returns the bound listen address, which differs from the
// configured one when the port was chosen by the kernel.
func (p *UDPPrimary) Addr() net.Addr {
	return p.conn.LocalAddr()
}

// Open reports whether the socket is usable.
func (p *UDPPrimary) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Send delivers one message to the vehicle's last known address.
func (p *UDPPrimary) Send(systemID int, msg wire.Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return wire.ErrChannelClosed
	}
	peer, ok := p.peers[systemID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to vehicle %d: no return address learned yet", systemID)
	}

	data, err := wire.Encode(systemID, msg)
	if err != nil {
		return err
	}
	if _, err := p.conn.WriteToUDP(data, peer); err != nil {
		return fmt.Errorf("send to vehicle %d: %w", systemID, err)
	}
	return nil
}

// Recv blocks up to timeout for the next inbound frame, learning the
// sender's return address as a side effect. Undecodable datagrams are
// logged and reported as an empty poll.
func (p *UDPPrimary) Recv(timeout time.Duration) (int, wire.Message, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, nil, wire.ErrChannelClosed
	}
	p.mu.Unlock()

	if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, err
	}
	n, from, err := p.conn.ReadFromUDP(p.buf[:])
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil, wire.ErrNoMessage
		}
		if p.isClosed() {
			return 0, nil, wire.ErrChannelClosed
		}
		return 0, nil, err
	}

	systemID, msg, err := wire.Decode(p.buf[:n])
	if err != nil {
		p.log.Warn("dropping undecodable datagram", "from", from, "error", err)
		return 0, nil, wire.ErrNoMessage
	}

	p.mu.Lock()
	p.peers[systemID] = from
	p.mu.Unlock()
	return systemID, msg, nil
}

func (p *UDPPrimary) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close shuts the socket down; a blocked Recv returns ErrChannelClosed.
func (p *UDPPrimary) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.conn.Close()
}

// UDPSecondary is the one-way backup link. Every frame goes to a fixed
// target address, typically a broadcast radio modem.
type UDPSecondary struct {
	conn *net.UDPConn

	mu     sync.Mutex
	closed bool
}

// Compile-time assertion that UDPSecondary is a usable outbound link.
var _ wire.Channel = (*UDPSecondary)(nil)

// NewUDPSecondary dials the backup link target.
func NewUDPSecondary(target string) (*UDPSecondary, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve secondary target address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial secondary link: %w", err)
	}
	return &UDPSecondary{conn: conn}, nil
}

// Open reports whether the socket is usable.
func (s *UDPSecondary) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Send pushes one frame at the target. There is no return traffic on
// this link.
func (s *UDPSecondary) Send(systemID int, msg wire.Message) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return wire.ErrChannelClosed
	}
	s.mu.Unlock()

	data, err := wire.Encode(systemID, msg)
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("send on secondary link: %w", err)
	}
	return nil
}

// Close shuts the socket down.
func (s *UDPSecondary) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
