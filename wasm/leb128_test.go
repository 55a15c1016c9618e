package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/fractal-wasm/wasm"
)

func TestLEB128Unsigned(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xac, 0x02}, 300},
		{[]byte{0xff, 0x7f}, 16383},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0x80, 0x80, 0x40}, 1 << 20},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			var buf bytes.Buffer
			wasm.WriteLEB128u(&buf, tt.value)
			if !bytes.Equal(buf.Bytes(), tt.encoded) {
				t.Errorf("encode %d: got %x, want %x", tt.value, buf.Bytes(), tt.encoded)
			}

			got, err := wasm.ReadLEB128u(bytes.NewReader(tt.encoded))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.value {
				t.Errorf("decode: got %d, want %d", got, tt.value)
			}

			if n := wasm.SizeLEB128u(uint64(tt.value)); n != len(tt.encoded) {
				t.Errorf("size %d: got %d, want %d", tt.value, n, len(tt.encoded))
			}
		})
	}
}

func TestLEB128Minimal(t *testing.T) {
	// the last byte of a minimal encoding is never a zero continuation
	for _, v := range []uint32{1, 127, 128, 255, 256, 1 << 14, 1 << 21, 1 << 28, 0xFFFFFFFF} {
		enc := wasm.EncodeLEB128u(v)
		last := enc[len(enc)-1]
		if last&0x80 != 0 {
			t.Errorf("%d: last byte %#x has continuation bit", v, last)
		}
		if len(enc) > 1 && last == 0 {
			t.Errorf("%d: trailing zero group in %x", v, enc)
		}
		for _, b := range enc[:len(enc)-1] {
			if b&0x80 == 0 {
				t.Errorf("%d: inner byte %#x missing continuation bit", v, b)
			}
		}
	}
}

func TestLEB128RoundTrip(t *testing.T) {
	for v := uint32(0); v < 1<<16; v += 97 {
		got, err := wasm.ReadLEB128u(bytes.NewReader(wasm.EncodeLEB128u(v)))
		if err != nil {
			t.Fatalf("%d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}

	for _, v := range []uint64{0, 1 << 32, 1<<63 + 5, ^uint64(0)} {
		got, err := wasm.ReadLEB128u64(bytes.NewReader(wasm.EncodeLEB128u64(v)))
		if err != nil {
			t.Fatalf("%d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestLEB128Overflow(t *testing.T) {
	_, err := wasm.ReadLEB128u(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	if !errors.Is(err, wasm.ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}

	_, err = wasm.ReadLEB128u(bytes.NewReader([]byte{0x80}))
	if err == nil {
		t.Error("expected error for truncated value")
	}
}

func TestFloat64LittleEndian(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   float64
	}{
		{[]byte{0, 0, 0, 0, 0, 0, 0, 0}, 0},
		{[]byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, 1},
		{[]byte{0, 0, 0, 0, 0, 0, 0, 0x40}, 2},
		{[]byte{0, 0, 0, 0, 0, 0, 0, 0xc0}, -2},
		{[]byte{0, 0, 0, 0, 0, 0, 0x08, 0x40}, 3},
		{[]byte{0, 0, 0, 0, 0, 0, 0x10, 0x40}, 4},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		wasm.WriteFloat64(&buf, tt.value)
		if !bytes.Equal(buf.Bytes(), tt.encoded) {
			t.Errorf("encode %v: got %x, want %x", tt.value, buf.Bytes(), tt.encoded)
		}
		got, err := wasm.ReadFloat64(bytes.NewReader(tt.encoded))
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.value {
			t.Errorf("decode: got %v, want %v", got, tt.value)
		}
	}
}
