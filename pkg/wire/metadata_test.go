package wire

import (
	"bytes"
	"errors"
	"testing"
)

var testLayout = FlagsLayout{Index: 0, Type: 0}

func TestFlagsLayoutFind(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		wantID    int32
		wantFlags byte
		present   bool
	}{
		{
			name:      "flags only",
			body:      testLayout.AppendFlagsMetadata(nil, 42, FlagOnFire),
			wantID:    42,
			wantFlags: FlagOnFire,
			present:   true,
		},
		{
			name: "flags followed by other entries",
			body: append(
				testLayout.AppendFlagsMetadata(nil, 300, FlagCrouching|FlagGlowing)[:5],
				// index 8, type 1 (VarInt), value 5, end
				8, 1, 5, MetadataEnd,
			),
			wantID:    300,
			wantFlags: FlagCrouching | FlagGlowing,
			present:   true,
		},
		{
			name:    "other entry first",
			body:    []byte{7, 8, 1, 5, MetadataEnd},
			wantID:  7,
			present: false,
		},
		{
			name:    "empty list",
			body:    []byte{9, MetadataEnd},
			wantID:  9,
			present: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := testLayout.Find(tt.body)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if ref.EntityID != tt.wantID {
				t.Errorf("EntityID = %d, want %d", ref.EntityID, tt.wantID)
			}
			if ref.Present() != tt.present {
				t.Fatalf("Present = %v, want %v", ref.Present(), tt.present)
			}
			if tt.present && ref.Value(tt.body) != tt.wantFlags {
				t.Errorf("flags = %#x, want %#x", ref.Value(tt.body), tt.wantFlags)
			}
		})
	}
}

func TestFlagsLayoutFindErrors(t *testing.T) {
	// Flags index with a VarInt type instead of Byte.
	_, err := testLayout.Find([]byte{1, 0, 1, 5, MetadataEnd})
	if !errors.Is(err, ErrUnexpectedMetadata) {
		t.Errorf("wrong type: err = %v, want ErrUnexpectedMetadata", err)
	}

	// Truncated before the flags value.
	_, err = testLayout.Find([]byte{1, 0, 0})
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("truncated: err = %v, want ErrShortBuffer", err)
	}

	// Truncated before the first index.
	_, err = testLayout.Find([]byte{0x80})
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("no index: err = %v, want ErrShortBuffer", err)
	}
}

func TestSetFlagCopiesBody(t *testing.T) {
	body := testLayout.AppendFlagsMetadata(nil, 1, FlagOnFire)
	orig := append([]byte(nil), body...)
	ref, err := testLayout.Find(body)
	if err != nil || !ref.Present() {
		t.Fatalf("Find: %v present=%v", err, ref.Present())
	}

	on := SetFlag(body, ref.Offset, FlagGlowing, true)
	if on[ref.Offset] != FlagOnFire|FlagGlowing {
		t.Errorf("set: flags = %#x", on[ref.Offset])
	}
	off := SetFlag(on, ref.Offset, FlagGlowing, false)
	if off[ref.Offset] != FlagOnFire {
		t.Errorf("clear: flags = %#x", off[ref.Offset])
	}
	if !bytes.Equal(body, orig) {
		t.Error("SetFlag modified its input")
	}
}

func TestSkipNBT(t *testing.T) {
	// Compound {"text": "hi", "extra": [ {"bold": 1b} ]} followed by a marker byte.
	var b []byte
	b = append(b, TagCompound)
	b = append(b, TagString, 0, 4, 't', 'e', 'x', 't', 0, 2, 'h', 'i')
	b = append(b, TagList, 0, 5, 'e', 'x', 't', 'r', 'a', TagCompound, 0, 0, 0, 1)
	b = append(b, TagByte, 0, 4, 'b', 'o', 'l', 'd', 1, TagEnd)
	b = append(b, TagEnd)
	b = append(b, 0xAB)

	r := NewReader(b)
	r.SkipNBT()
	if r.Err() != nil {
		t.Fatalf("SkipNBT: %v", r.Err())
	}
	if got := r.Byte(); got != 0xAB {
		t.Errorf("byte after tag = %#x, want 0xAB", got)
	}

	r = NewReader(AppendNBTString(nil, "plain"))
	r.SkipNBT()
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("string tag: err=%v remaining=%d", r.Err(), r.Remaining())
	}

	r = NewReader([]byte{42})
	r.SkipNBT()
	if !errors.Is(r.Err(), ErrInvalidNBT) {
		t.Errorf("unknown tag: err = %v, want ErrInvalidNBT", r.Err())
	}
}

func TestSkipNBTListBounds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"end elements", []byte{TagCompound, TagList, 0, 1, 'l', TagEnd, 0x7f, 0xff, 0xff, 0xff, TagEnd}},
		{"count past input", []byte{TagCompound, TagList, 0, 1, 'l', TagByte, 0, 0, 1, 0, 1, 2, TagEnd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			r.SkipNBT()
			if !errors.Is(r.Err(), ErrInvalidNBT) {
				t.Errorf("err = %v, want ErrInvalidNBT", r.Err())
			}
		})
	}

	// An empty list of TagEnd is valid.
	r := NewReader([]byte{TagCompound, TagList, 0, 1, 'l', TagEnd, 0, 0, 0, 0, TagEnd})
	r.SkipNBT()
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("empty list: err=%v remaining=%d", r.Err(), r.Remaining())
	}
}
