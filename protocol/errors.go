// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Protocol violations. Every error here closes the connection with
// CloseProtocolError.

package protocol

import "github.com/momentics/loopws/api"

var (
	ErrReservedBits           = api.NewError(api.ErrCodeProtocol, "reserved bits set")
	ErrUnmaskedFrame          = api.NewError(api.ErrCodeProtocol, "client frame is not masked")
	ErrControlFragmented      = api.NewError(api.ErrCodeProtocol, "fragmented control frame")
	ErrControlTooLong         = api.NewError(api.ErrCodeProtocol, "control frame payload exceeds 125 bytes")
	ErrUnknownOpcode          = api.NewError(api.ErrCodeProtocol, "unknown opcode")
	ErrFrameTooLarge          = api.NewError(api.ErrCodeProtocol, "declared frame length exceeds limit")
	ErrMessageTooLarge        = api.NewError(api.ErrCodeProtocol, "message exceeds size limit")
	ErrUnexpectedContinuation = api.NewError(api.ErrCodeProtocol, "continuation frame without a message in progress")
	ErrMessageInProgress      = api.NewError(api.ErrCodeProtocol, "new data frame while a fragmented message is in progress")
	ErrBadClosePayload        = api.NewError(api.ErrCodeProtocol, "close frame payload of one byte")
)
