// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// frame_test.go — inbound frame decoding and validation.
package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gobwas/ws"

	"github.com/momentics/loopws/protocol"
)

func TestParseFrameRFCExample(t *testing.T) {
	// masked "Hello" from RFC 6455 section 5.7
	raw := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}
	f, err := protocol.ParseFrame(raw, 0)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f == nil || !f.Complete() {
		t.Fatal("frame not complete")
	}
	if !f.Fin || f.Opcode != protocol.OpcodeText || !f.Masked {
		t.Fatalf("unexpected header: %s", f)
	}
	if string(f.Payload) != "Hello" {
		t.Fatalf("Payload = %q, want Hello", f.Payload)
	}
	if f.HeaderLen != 6 || f.Size() != len(raw) {
		t.Fatalf("HeaderLen = %d, Size = %d", f.HeaderLen, f.Size())
	}
	if len(f.Leftover) != 0 {
		t.Fatalf("Leftover = %v, want empty", f.Leftover)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFrameExtendedLengths(t *testing.T) {
	cases := []struct {
		name string
		size int
		code byte
	}{
		{"7bit", 125, 125},
		{"16bit", 300, 126},
		{"16bit-max", 0xFFFF, 126},
		{"64bit", 70000, 127},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{'x'}, tc.size)
			raw := clientFrame(t, ws.OpBinary, true, payload)
			f, err := protocol.ParseFrame(raw, 0)
			if err != nil {
				t.Fatalf("ParseFrame: %v", err)
			}
			if f.LengthCode != tc.code {
				t.Fatalf("LengthCode = %d, want %d", f.LengthCode, tc.code)
			}
			if f.PayloadLen != uint64(tc.size) {
				t.Fatalf("PayloadLen = %d, want %d", f.PayloadLen, tc.size)
			}
			if !bytes.Equal(f.Payload, payload) {
				t.Fatal("payload mismatch after unmasking")
			}
		})
	}
}

func TestParseFrameIncompleteHeader(t *testing.T) {
	raw := clientFrame(t, ws.OpBinary, true, bytes.Repeat([]byte{1}, 300))
	for _, n := range []int{0, 1, 3, 7} {
		f, err := protocol.ParseFrame(raw[:n], 0)
		if f != nil || err != nil {
			t.Fatalf("ParseFrame(%d bytes) = %v, %v; want nil, nil", n, f, err)
		}
	}
	f, err := protocol.ParseFrame(raw[:8], 0)
	if err != nil || f == nil {
		t.Fatalf("ParseFrame(header only) = %v, %v", f, err)
	}
	if f.Complete() {
		t.Fatal("frame reported complete without payload")
	}
	if f.Size() != len(raw) {
		t.Fatalf("Size() = %d, want %d", f.Size(), len(raw))
	}
}

func TestParseFrameAcrossThreeReads(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 50)
	raw := clientFrame(t, ws.OpText, true, payload)
	parts := [][]byte{raw[:3], raw[3:200], raw[200:]}

	var acc protocol.Accumulator
	var got *protocol.Frame
	for i, p := range parts {
		acc.Append(p)
		if acc.Short() {
			continue
		}
		f, err := protocol.ParseFrame(acc.Bytes(), 0)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if f == nil {
			continue
		}
		if !f.Complete() {
			acc.SetTarget(f.Size())
			continue
		}
		got = f
		if i != len(parts)-1 {
			t.Fatalf("frame completed after read %d", i)
		}
	}
	if got == nil {
		t.Fatal("frame never completed")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestParseFrameLeftover(t *testing.T) {
	first := clientFrame(t, ws.OpText, true, []byte("one"))
	second := clientFrame(t, ws.OpText, true, []byte("two"))
	// header, mask key and one payload byte of the second frame
	buf := append(append([]byte(nil), first...), second[:7]...)

	f, err := protocol.ParseFrame(buf, 0)
	if err != nil || !f.Complete() {
		t.Fatalf("ParseFrame: %v", err)
	}
	if !bytes.Equal(f.Leftover, second[:7]) {
		t.Fatalf("Leftover = %x, want %x", f.Leftover, second[:7])
	}
	next, err := protocol.ParseFrame(f.Leftover, 0)
	if err != nil || next == nil || next.Complete() {
		t.Fatalf("leftover should parse as incomplete frame: %v %v", next, err)
	}
	if next.Size() != len(second) {
		t.Fatalf("Size() = %d, want %d", next.Size(), len(second))
	}

	// header plus half a mask key is not a header yet
	head, err := protocol.ParseFrame(second[:4], 0)
	if err != nil || head != nil {
		t.Fatalf("partial header = %v, %v; want nil, nil", head, err)
	}
}

func TestParseFrameTooLarge(t *testing.T) {
	raw := clientFrame(t, ws.OpBinary, true, make([]byte, 11))
	f, err := protocol.ParseFrame(raw, 10)
	if !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
	if f == nil || f.PayloadLen != 11 {
		t.Fatalf("frame header not reported: %v", f)
	}

	// 64-bit length far above the default limit, no payload present
	huge := []byte{0x82, 0xFF, 0, 0, 1, 0, 0, 0, 0, 0, 1, 2, 3, 4}
	if _, err := protocol.ParseFrame(huge, 0); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameValidate(t *testing.T) {
	masked := func(b0, b1 byte) []byte {
		return []byte{b0, b1 | protocol.MaskBit, 1, 2, 3, 4}
	}
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"rsv1", masked(0x81|protocol.Rsv1Bit, 0), protocol.ErrReservedBits},
		{"rsv3", masked(0x81|protocol.Rsv3Bit, 0), protocol.ErrReservedBits},
		{"unmasked", []byte{0x81, 0x00}, protocol.ErrUnmaskedFrame},
		{"fragmented-ping", masked(protocol.OpcodePing, 0), protocol.ErrControlFragmented},
		{"long-close", []byte{protocol.FinalClose, 126 | protocol.MaskBit, 0, 126, 1, 2, 3, 4}, protocol.ErrControlTooLong},
		{"ok-continuation", masked(protocol.OpcodeContinuation, 0), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := protocol.ParseFrame(tc.raw, 0)
			if err != nil || f == nil {
				t.Fatalf("ParseFrame: %v %v", f, err)
			}
			err = f.Validate()
			if tc.want == nil {
				if err != nil || !f.Valid() {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
			if f.Valid() {
				t.Fatal("Valid() = true for invalid frame")
			}
		})
	}
}

func TestMaskContinuesAcrossChunks(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	data := []byte("split masking payload")
	whole := append([]byte(nil), data...)
	protocol.Mask(key, 0, whole)

	parts := append([]byte(nil), data...)
	pos := protocol.Mask(key, 0, parts[:5])
	protocol.Mask(key, pos, parts[5:])
	if !bytes.Equal(whole, parts) {
		t.Fatal("chunked masking differs from whole masking")
	}
	protocol.Mask(key, 0, whole)
	if !bytes.Equal(whole, data) {
		t.Fatal("masking twice did not restore data")
	}
}
