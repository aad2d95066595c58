//
//
package wire

import (
	"encoding/json"
	"fmt"
)

// Frame is the station-link envelope carrying one message as JSON.
type Frame struct {
	System  int             `json:"sys"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// messageFactories maps frame types back to concrete messages.
var messageFactories = map[string]func() Message{
	Heartbeat{}.Name():          func() Message { return &Heartbeat{} },
	GlobalPositionInt{}.Name():  func() Message { return &GlobalPositionInt{} },
	Attitude{}.Name():           func() Message { return &Attitude{} },
	SysStatus{}.Name():          func() Message { return &SysStatus{} },
	GpsRawInt{}.Name():          func() Message { return &GpsRawInt{} },
	HomePosition{}.Name():       func() Message { return &HomePosition{} },
	GpsGlobalOrigin{}.Name():    func() Message { return &GpsGlobalOrigin{} },
	StatusText{}.Name():         func() Message { return &StatusText{} },
	MissionCount{}.Name():       func() Message { return &MissionCount{} },
	MissionRequest{}.Name():     func() Message { return &MissionRequest{} },
	MissionRequestInt{}.Name():  func() Message { return &MissionRequestInt{} },
	MissionItem{}.Name():        func() Message { return &MissionItem{} },
	MissionItemInt{}.Name():     func() Message { return &MissionItemInt{} },
	MissionAck{}.Name():         func() Message { return &MissionAck{} },
	MissionClearAll{}.Name():    func() Message { return &MissionClearAll{} },
	MissionCurrent{}.Name():     func() Message { return &MissionCurrent{} },
	MissionItemReached{}.Name(): func() Message { return &MissionItemReached{} },
	CommandLong{}.Name():        func() Message { return &CommandLong{} },
	CommandAck{}.Name():         func() Message { return &CommandAck{} },
	SetMode{}.Name():            func() Message { return &SetMode{} },
	ParamSet{}.Name():           func() Message { return &ParamSet{} },
}

// Encode packs one message into a station-link frame.
func Encode(systemID int, msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Name(), err)
	}
	return json.Marshal(Frame{System: systemID, Type: msg.Name(), Payload: payload})
}

// Decode unpacks a station-link frame into its message.
func Decode(data []byte) (systemID int, msg Message, err error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return 0, nil, fmt.Errorf("decode frame: %w", err)
	}
	factory, ok := messageFactories[frame.Type]
	if !ok {
		return 0, nil, fmt.Errorf("decode frame: unknown message type %q", frame.Type)
	}
	out := factory()
	if err := json.Unmarshal(frame.Payload, out); err != nil {
		return 0, nil, fmt.Errorf("decode %s: %w", frame.Type, err)
	}
	return frame.System, deref(out), nil
}

// deref returns the value form so type switches on concrete structs work
// the same for decoded and locally built messages.
func deref(msg Message) Message {
	switch m := msg.(type) {
	case *Heartbeat:
		return *m
	case *GlobalPositionInt:
		return *m
	case *Attitude:
		return *m
	case *SysStatus:
		return *m
	case *GpsRawInt:
		return *m
	case *HomePosition:
		return *m
	case *GpsGlobalOrigin:
		return *m
	case *StatusText:
		return *m
	case *MissionCount:
		return *m
	case *MissionRequest:
		return *m
	case *MissionRequestInt:
		return *m
	case *MissionItem:
		return *m
	case *MissionItemInt:
		return *m
	case *MissionAck:
		return *m
	case *MissionClearAll:
		return *m
	case *MissionCurrent:
		return *m
	case *MissionItemReached:
		return *m
	case *CommandLong:
		return *m
	case *CommandAck:
		return *m
	case *SetMode:
		return *m
	case *ParamSet:
		return *m
	default:
		return msg
	}
}
