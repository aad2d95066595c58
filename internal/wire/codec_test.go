package wire

import "testing"

func TestFrameRoundTrip(t *testing.T) {
	data, err := Encode(3, CommandLong{Command: CmdNavTakeoff, Param7: 25})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	systemID, msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if systemID != 3 {
		t.Errorf("systemID = %d, want 3", systemID)
	}
	cl, ok := msg.(CommandLong)
	if !ok || cl.Command != CmdNavTakeoff || cl.Param7 != 25 {
		t.Errorf("decoded = %#v", msg)
	}
}

func TestDecodeValueFormMatchesTypeSwitch(t *testing.T) {
	data, err := Encode(1, Heartbeat{CustomMode: ModeAuto, Armed: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	hb, ok := msg.(Heartbeat)
	if !ok {
		t.Fatalf("decoded as %T, want value Heartbeat", msg)
	}
	if !hb.Armed || hb.CustomMode != ModeAuto {
		t.Errorf("heartbeat = %+v", hb)
	}
}

func TestParamSetRoundTrip(t *testing.T) {
	in := ParamSet{ParamID: "SCR_USER1", Value: 7}
	if in.Name() != "PARAM_SET" {
		t.Errorf("Name() = %q, want PARAM_SET", in.Name())
	}

	data, err := Encode(2, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ps, ok := msg.(ParamSet)
	if !ok || ps.ParamID != "SCR_USER1" || ps.Value != 7 {
		t.Errorf("decoded = %#v", msg)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode([]byte("not json")); err == nil {
		t.Error("garbage accepted")
	}
	if _, _, err := Decode([]byte(`{"sys":1,"type":"NO_SUCH_MESSAGE","payload":{}}`)); err == nil {
		t.Error("unknown type accepted")
	}
}
