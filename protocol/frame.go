// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Inbound (client-to-server) frame decoding and validation.
//
// A frame may arrive split over any number of reads, and one read may carry
// several frames. ParseFrame therefore works on whatever prefix of the stream
// is buffered and reports how much more is needed.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is one decoded client frame.
type Frame struct {
	Fin              bool
	Rsv1, Rsv2, Rsv3 bool
	Opcode           byte
	Masked           bool
	MaskKey          [4]byte

	// LengthCode is the 7-bit length field as sent: 0..125, 126 or 127.
	LengthCode byte
	// PayloadLen is the declared payload length after extended decoding.
	PayloadLen uint64
	// HeaderLen counts header bytes including extended length and mask key.
	HeaderLen int

	// Payload is an unmasked copy; nil until the frame is complete.
	Payload []byte
	// Leftover holds the buffered bytes past this frame. It aliases the
	// parsed buffer.
	Leftover []byte

	available int
}

// ParseFrame decodes the frame at the head of buf.
//
// It returns (nil, nil) while buf does not yet hold the whole header. Once
// the header is known it returns a Frame; Complete reports whether the
// payload is there too. A declared payload above maxPayload is rejected with
// ErrFrameTooLarge; maxPayload 0 selects DefaultMaxMessageSize.
func ParseFrame(buf []byte, maxPayload uint64) (*Frame, error) {
	if len(buf) < 2 {
		return nil, nil
	}
	if maxPayload == 0 {
		maxPayload = DefaultMaxMessageSize
	}

	f := &Frame{
		Fin:        buf[0]&FinBit != 0,
		Rsv1:       buf[0]&Rsv1Bit != 0,
		Rsv2:       buf[0]&Rsv2Bit != 0,
		Rsv3:       buf[0]&Rsv3Bit != 0,
		Opcode:     buf[0] & OpcodeMask,
		Masked:     buf[1]&MaskBit != 0,
		LengthCode: buf[1] & LengthMask,
	}

	offset := 2
	switch f.LengthCode {
	case lengthCode16:
		if len(buf) < offset+2 {
			return nil, nil
		}
		f.PayloadLen = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case lengthCode64:
		if len(buf) < offset+8 {
			return nil, nil
		}
		f.PayloadLen = binary.BigEndian.Uint64(buf[offset:])
		offset += 8
	default:
		f.PayloadLen = uint64(f.LengthCode)
	}

	if f.Masked {
		if len(buf) < offset+4 {
			return nil, nil
		}
		copy(f.MaskKey[:], buf[offset:offset+4])
		offset += 4
	}
	f.HeaderLen = offset

	if f.PayloadLen > maxPayload {
		return f, ErrFrameTooLarge.
			WithContext("length", f.PayloadLen).
			WithContext("limit", maxPayload)
	}

	f.available = len(buf)
	if !f.Complete() {
		return f, nil
	}

	end := f.Size()
	f.Payload = make([]byte, f.PayloadLen)
	copy(f.Payload, buf[offset:end])
	if f.Masked {
		Mask(f.MaskKey, 0, f.Payload)
	}
	f.Leftover = buf[end:]
	return f, nil
}

// Size returns HeaderLen + PayloadLen, the number of stream bytes this
// frame occupies. Only meaningful for frames that passed the size limit.
func (f *Frame) Size() int {
	return f.HeaderLen + int(f.PayloadLen)
}

// Complete reports whether the parsed buffer held the whole frame.
func (f *Frame) Complete() bool {
	return uint64(f.available-f.HeaderLen) >= f.PayloadLen
}

// Validate checks the frame against the rules every client frame must obey.
func (f *Frame) Validate() error {
	if f.Rsv1 || f.Rsv2 || f.Rsv3 {
		return ErrReservedBits.WithContext("opcode", f.Opcode)
	}
	if !f.Masked {
		return ErrUnmaskedFrame.WithContext("opcode", f.Opcode)
	}
	if IsControl(f.Opcode) {
		if !f.Fin {
			return ErrControlFragmented.WithContext("opcode", f.Opcode)
		}
		if f.PayloadLen > MaxControlPayloadLen {
			return ErrControlTooLong.WithContext("length", f.PayloadLen)
		}
	}
	return nil
}

// Valid is Validate() == nil.
func (f *Frame) Valid() bool {
	return f.Validate() == nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame{fin=%t op=%#x masked=%t len=%d}", f.Fin, f.Opcode, f.Masked, f.PayloadLen)
}
