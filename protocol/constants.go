// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket wire protocol constants

package protocol

const (
	// Data opcodes
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2

	// Control opcodes (>=0x8)
	OpcodeClose = 0x8
	OpcodePing  = 0x9
	OpcodePong  = 0xA

	// Frame limit settings
	MaxControlPayloadLen = 125
	MaxFrameHeaderLen    = 14 // 2 + 8 extended length + 4 mask key

	// FragmentThreshold is the largest payload carried by one outbound frame.
	FragmentThreshold = 2048

	// DefaultMaxMessageSize bounds both a single declared frame length and a
	// reassembled message.
	DefaultMaxMessageSize = 16 << 20

	// Bit masks
	FinBit     = 0x80
	Rsv1Bit    = 0x40
	Rsv2Bit    = 0x20
	Rsv3Bit    = 0x10
	OpcodeMask = 0x0F
	MaskBit    = 0x80
	LengthMask = 0x7F

	// Length codes carried in the second header byte
	lengthCode16 = 126
	lengthCode64 = 127

	// Close codes
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseNoStatusRcvd       = 1005
	CloseAbnormalClosure    = 1006
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseInternalServerErr  = 1011
)

// Header byte 0 values for unfragmented server frames.
const (
	FinalText         byte = FinBit | OpcodeText
	FinalBinary       byte = FinBit | OpcodeBinary
	FinalContinuation byte = FinBit | OpcodeContinuation
	FinalClose        byte = FinBit | OpcodeClose
	FinalPing         byte = FinBit | OpcodePing
	FinalPong         byte = FinBit | OpcodePong
)

// IsControl reports whether opcode denotes a control frame.
func IsControl(opcode byte) bool {
	return opcode&0x08 != 0
}
