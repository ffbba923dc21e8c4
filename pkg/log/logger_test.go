package log

import "testing"

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b int
	m := NewMultiLogger(
		LoggerFunc(func(Event) { a++ }),
		nil,
		LoggerFunc(func(Event) { b++ }),
	)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	m.Log(Event{})
	m.Log(Event{})
	if a != 2 || b != 2 {
		t.Errorf("a=%d b=%d, want 2 each", a, b)
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	m := NewMultiLogger()
	if OrNoop(m) != Logger(m) {
		t.Error("OrNoop should pass non-nil loggers through")
	}
	// Zero value is usable.
	NoopLogger{}.Log(Event{})
}

func TestEncodeDecodeEvent(t *testing.T) {
	color := uint8(11)
	in := Event{
		ObserverID: "obs",
		Layer:      LayerEngine,
		Category:   CategoryTeam,
		Team:       &TeamEvent{Action: TeamCreated, Team: "t", Color: &color},
	}
	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if out.Team == nil || out.Team.Action != TeamCreated || out.Team.Color == nil || *out.Team.Color != 11 {
		t.Errorf("Team = %+v", out.Team)
	}
	if out.Rewrite != nil || out.Frame != nil {
		t.Error("unset payloads should stay nil")
	}
}
