// File: protocol/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inbound message reassembly across continuation frames.

package protocol

// MessageType tells text and binary messages apart. Values equal the
// opcode of the first frame of the message.
type MessageType int

const (
	TextMessage   MessageType = OpcodeText
	BinaryMessage MessageType = OpcodeBinary
)

func (mt MessageType) String() string {
	switch mt {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// reassembly tracks the one fragmented message that may be in progress.
type reassembly struct {
	opcode byte
	buf    Accumulator
	active bool
}

// push feeds one data frame. It returns the finished message when f
// completes one.
func (r *reassembly) push(f *Frame, limit int) (mt MessageType, p []byte, done bool, err error) {
	switch f.Opcode {
	case OpcodeContinuation:
		if !r.active {
			return 0, nil, false, ErrUnexpectedContinuation
		}
	case OpcodeText, OpcodeBinary:
		if r.active {
			return 0, nil, false, ErrMessageInProgress.WithContext("opcode", f.Opcode)
		}
		if f.Fin {
			return MessageType(f.Opcode), f.Payload, true, nil
		}
		r.active = true
		r.opcode = f.Opcode
	default:
		return 0, nil, false, ErrUnknownOpcode.WithContext("opcode", f.Opcode)
	}

	if limit > 0 && r.buf.Len()+len(f.Payload) > limit {
		r.reset()
		return 0, nil, false, ErrMessageTooLarge.WithContext("limit", limit)
	}
	r.buf.Append(f.Payload)
	if !f.Fin {
		return 0, nil, false, nil
	}

	mt = MessageType(r.opcode)
	p = r.buf.Detach()
	r.reset()
	return mt, p, true, nil
}

func (r *reassembly) reset() {
	r.buf.Reset()
	r.opcode = 0
	r.active = false
}

// inProgress reports whether a fragmented message is being assembled.
func (r *reassembly) inProgress() bool {
	return r.active
}
