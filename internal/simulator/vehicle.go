//
//
package simulator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/wire"
)

const readBuffer = 64 * 1024

// heartbeatInterval paces the simulated autopilot's heartbeat stream.
// Faster than a real 1 Hz autopilot so tests settle quickly.
const heartbeatInterval = 200 * time.Millisecond

// Vehicle is one simulated autopilot. It dials the station's primary
// link and answers inbound traffic from a background loop.
type Vehicle struct {
	systemID int
	conn     *net.UDPConn

	mu       sync.Mutex
	armed    bool
	mode     uint32
	mission  []wire.MissionItemInt
	incoming []wire.MissionItemInt
	expected int
}

// Dial connects a simulated vehicle to the station's primary listen
// address.
func Dial(target string, systemID int) (*Vehicle, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve station address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial station: %w", err)
	}
	return &Vehicle{systemID: systemID, conn: conn, mode: wire.ModeStabilize}, nil
}

// Close shuts the vehicle's socket down.
func (v *Vehicle) Close() error {
	return v.conn.Close()
}

// Run streams heartbeats and answers station traffic until ctx is done.
func (v *Vehicle) Run(ctx context.Context) {
	buf := make([]byte, readBuffer)
	var lastBeat time.Time
	for {
		if ctx.Err() != nil {
			return
		}
		if time.Since(lastBeat) >= heartbeatInterval {
			lastBeat = time.Now()
			_ = v.SendHeartbeat()
		}
		_ = v.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := v.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return
		}
		_, msg, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}
		v.handle(msg)
	}
}

// handle reacts to one station message.
func (v *Vehicle) handle(msg wire.Message) {
	switch m := msg.(type) {
	case wire.CommandLong:
		v.handleCommand(m)
	case wire.SetMode:
		v.mu.Lock()
		v.mode = m.CustomMode
		v.mu.Unlock()
		_ = v.SendHeartbeat()
	case wire.MissionClearAll:
		// Cleared silently; the station does not wait for an ack here.
		v.mu.Lock()
		v.mission = nil
		v.mu.Unlock()
	case wire.MissionCount:
		v.mu.Lock()
		v.expected = m.Count
		v.incoming = v.incoming[:0]
		v.mu.Unlock()
		if m.Count > 0 {
			_ = v.send(wire.MissionRequestInt{Seq: 0})
		}
	case wire.MissionItemInt:
		v.handleItem(m)
	case wire.MissionItem:
		v.handleItem(wire.MissionItemInt{
			Seq:          m.Seq,
			Frame:        m.Frame,
			Command:      m.Command,
			Current:      m.Current,
			Autocontinue: m.Autocontinue,
			Param1:       m.Param1,
			Param2:       m.Param2,
			Param3:       m.Param3,
			Param4:       m.Param4,
			LatE7:        int32(m.Lat * 1e7),
			LonE7:        int32(m.Lon * 1e7),
			Alt:          m.Alt,
		})
	}
}

func (v *Vehicle) handleCommand(cmd wire.CommandLong) {
	if cmd.Command == wire.CmdComponentArmDisarm {
		v.mu.Lock()
		v.armed = cmd.Param1 > 0.5
		v.mu.Unlock()
	}
	_ = v.send(wire.CommandAck{Command: cmd.Command, Result: 0})
	_ = v.SendHeartbeat()
}

func (v *Vehicle) handleItem(item wire.MissionItemInt) {
	v.mu.Lock()
	v.incoming = append(v.incoming, item)
	next := len(v.incoming)
	complete := next >= v.expected
	if complete {
		v.mission = append([]wire.MissionItemInt(nil), v.incoming...)
	}
	v.mu.Unlock()

	if complete {
		_ = v.send(wire.MissionAck{Type: wire.MissionAccepted})
		return
	}
	_ = v.send(wire.MissionRequestInt{Seq: next})
}

// SendHeartbeat pushes one heartbeat reflecting the current mode and
// arming state.
func (v *Vehicle) SendHeartbeat() error {
	v.mu.Lock()
	hb := wire.Heartbeat{CustomMode: v.mode, Armed: v.armed}
	v.mu.Unlock()
	return v.send(hb)
}

// SendBattery pushes one battery status report.
func (v *Vehicle) SendBattery(percent int) error {
	return v.send(wire.SysStatus{BatteryRemaining: int8(percent), VoltageMV: 12600})
}

// SendPosition pushes one fused position report.
func (v *Vehicle) SendPosition(lat, lon, relAltM float64) error {
	return v.send(wire.GlobalPositionInt{
		LatE7:         int32(lat * 1e7),
		LonE7:         int32(lon * 1e7),
		AltMM:         int32(relAltM * 1000),
		RelativeAltMM: int32(relAltM * 1000),
	})
}

// Armed reports the vehicle's arming state.
func (v *Vehicle) Armed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.armed
}

// Mode reports the vehicle's flight mode.
func (v *Vehicle) Mode() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Mission returns the last fully received mission.
func (v *Vehicle) Mission() []wire.MissionItemInt {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]wire.MissionItemInt(nil), v.mission...)
}

func (v *Vehicle) send(msg wire.Message) error {
	data, err := wire.Encode(v.systemID, msg)
	if err != nil {
		return err
	}
	_, err = v.conn.Write(data)
	return err
}
