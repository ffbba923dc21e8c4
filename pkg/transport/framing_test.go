package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/wire"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		packet    wire.Packet
	}{
		{"uncompressed small", CompressionDisabled, wire.Packet{ID: 0x58, Data: []byte{1, 0, 0, 0x40, 0xFF}}},
		{"uncompressed empty body", CompressionDisabled, wire.Packet{ID: 0x01}},
		{"below threshold", 256, wire.Packet{ID: 0x60, Data: []byte("team")}},
		{"at threshold", 8, wire.Packet{ID: 0x60, Data: bytes.Repeat([]byte("x"), 7)}},
		{"large compressed", 256, wire.Packet{ID: 0x24, Data: bytes.Repeat([]byte("chunk"), 20000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			writer := NewFrameWriter(buf)
			writer.SetCompression(tt.threshold)
			if err := writer.WritePacket(tt.packet); err != nil {
				t.Fatalf("WritePacket failed: %v", err)
			}

			reader := NewFrameReader(buf)
			reader.SetCompression(tt.threshold)
			got, err := reader.ReadPacket()
			if err != nil {
				t.Fatalf("ReadPacket failed: %v", err)
			}
			if got.ID != tt.packet.ID {
				t.Errorf("ID = 0x%02X, want 0x%02X", got.ID, tt.packet.ID)
			}
			if !bytes.Equal(got.Data, tt.packet.Data) {
				t.Errorf("body mismatch: got %d bytes, want %d", len(got.Data), len(tt.packet.Data))
			}

			if _, err := reader.ReadPacket(); err != io.EOF {
				t.Errorf("expected io.EOF after last frame, got %v", err)
			}
		})
	}
}

func TestFrameWriterCompressesLargeBodies(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 10000)

	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)
	writer.SetCompression(256)
	if err := writer.WritePacket(wire.Packet{ID: 1, Data: body}); err != nil {
		t.Fatalf("WritePacket failed: %v", err)
	}
	if buf.Len() >= len(body) {
		t.Errorf("frame is %d bytes, expected compression below %d", buf.Len(), len(body))
	}
}

func TestFrameWriterMultiplePackets(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)
	writer.SetCompression(64)

	for i := int32(0); i < 10; i++ {
		body := bytes.Repeat([]byte{byte(i)}, int(i)*20)
		if err := writer.WritePacket(wire.Packet{ID: i, Data: body}); err != nil {
			t.Fatalf("WritePacket(%d) failed: %v", i, err)
		}
	}

	reader := NewFrameReader(buf)
	reader.SetCompression(64)
	for i := int32(0); i < 10; i++ {
		p, err := reader.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket(%d) failed: %v", i, err)
		}
		if p.ID != i || len(p.Data) != int(i)*20 {
			t.Errorf("packet %d: got id %d with %d bytes", i, p.ID, len(p.Data))
		}
	}
}

func TestFrameReaderErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		threshold int
		wantErr   error
	}{
		{"empty frame", []byte{0x00}, CompressionDisabled, ErrFrameEmpty},
		{"truncated", []byte{0x05, 0x01, 0x02}, CompressionDisabled, ErrFrameTruncated},
		{"too large", wire.AppendVarInt(nil, MaxFrameSize+1), CompressionDisabled, ErrFrameTooLarge},
		{"declared size below threshold", []byte{0x03, 0x05, 0x00, 0x00}, 64, ErrBadCompression},
		{"garbage zlib", append([]byte{0x03}, append(wire.AppendVarInt(nil, 100), 0xDE, 0xAD)...), 64, ErrBadCompression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewFrameReader(bytes.NewReader(tt.input))
			reader.SetCompression(tt.threshold)
			_, err := reader.ReadPacket()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadPacket error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFramerCapture(t *testing.T) {
	var events []log.Event
	capture := log.LoggerFunc(func(e log.Event) { events = append(events, e) })

	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)
	writer.SetLogger(capture, "obs-1")
	writer.SetCompression(4)

	body := bytes.Repeat([]byte{1}, MaxLogFrameDataSize+10)
	if err := writer.WritePacket(wire.Packet{ID: 0x58, Data: body}); err != nil {
		t.Fatalf("WritePacket failed: %v", err)
	}

	reader := NewFrameReader(buf)
	reader.SetCompression(4)
	reader.SetLogger(capture, "obs-1")
	if _, err := reader.ReadPacket(); err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d capture events, want 2", len(events))
	}
	out, in := events[0], events[1]
	if out.Direction != log.DirectionOut || in.Direction != log.DirectionIn {
		t.Errorf("directions = %v, %v", out.Direction, in.Direction)
	}
	if out.ObserverID != "obs-1" || out.Layer != log.LayerTransport {
		t.Errorf("unexpected event header %+v", out)
	}
	if out.Frame == nil || !out.Frame.Truncated || !out.Frame.Compressed {
		t.Errorf("Frame = %+v, want truncated and compressed", out.Frame)
	}
	if len(out.Frame.Data) != MaxLogFrameDataSize {
		t.Errorf("captured %d bytes, want %d", len(out.Frame.Data), MaxLogFrameDataSize)
	}
	if out.Frame.Size != in.Frame.Size {
		t.Errorf("frame sizes differ: out %d, in %d", out.Frame.Size, in.Frame.Size)
	}
}
