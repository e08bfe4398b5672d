// File: protocol/handshake.go
// Package protocol implements the server side of the WebSocket opening
// handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The upgrade request is scanned once, line by line, into a fixed set of
// recognized headers. Responses are emitted byte-exact.

package protocol

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/momentics/loopws/api"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	RequiredWebSocketVersion = "13"
	MaxHandshakeSize         = 8192
)

// Errors for handshake validation.
var (
	ErrInvalidUpgradeHeaders = api.NewError(api.ErrCodeHandshake, "invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = api.NewError(api.ErrCodeHandshake, "missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = api.NewError(api.ErrCodeHandshake, "unsupported WebSocket version; only '13' is supported")
	ErrDuplicateHeader       = api.NewError(api.ErrCodeHandshake, "duplicate handshake header")
	ErrMalformedRequest      = api.NewError(api.ErrCodeHandshake, "malformed upgrade request")
	ErrHandshakeTooLarge     = api.NewError(api.ErrCodeHandshake, "upgrade request exceeds size limit")
)

var (
	responseBadRequest = []byte("HTTP/1.1 400 Bad Request\r\n\r\n")
	responseBadVersion = []byte("HTTP/1.1 400 Bad Request\r\n" +
		HeaderSecWebSocketVer + ": " + RequiredWebSocketVersion + "\r\n\r\n")
)

// header presence bits
const (
	seenConnection = 1 << iota
	seenUpgrade
	seenKey
	seenVersion
)

// HandshakeRequest holds the recognized headers of an upgrade request.
type HandshakeRequest struct {
	RequestLine string
	Connection  string
	Upgrade     string
	Key         string
	Version     string
	seen        uint8
}

// HasVersion reports whether Sec-WebSocket-Version was sent.
func (r *HandshakeRequest) HasVersion() bool { return r.seen&seenVersion != 0 }

// HasKey reports whether Sec-WebSocket-Key was sent.
func (r *HandshakeRequest) HasKey() bool { return r.seen&seenKey != 0 }

// RequestEnd returns the offset just past the blank line that terminates the
// request head, or -1 if buf does not contain it yet.
func RequestEnd(buf []byte) int {
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i >= 0 {
		return i + 4
	}
	if i := bytes.Index(buf, []byte("\n\n")); i >= 0 {
		return i + 2
	}
	return -1
}

// ParseHandshake scans the request head in raw. The request line is kept
// but not interpreted; header names match case-insensitively; unrecognized
// headers are ignored; a recognized header sent twice is rejected.
func ParseHandshake(raw []byte) (*HandshakeRequest, error) {
	text := strings.TrimLeft(string(raw), "\r\n")
	if text == "" {
		return nil, ErrMalformedRequest
	}

	req := &HandshakeRequest{}
	first := true
	for len(text) > 0 {
		var line string
		line, text, _ = strings.Cut(text, "\n")
		line = strings.TrimSuffix(line, "\r")
		if first {
			req.RequestLine = line
			first = false
			continue
		}
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, ErrMalformedRequest.WithContext("line", line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		var bit uint8
		var dst *string
		switch {
		case strings.EqualFold(name, HeaderConnection):
			bit, dst = seenConnection, &req.Connection
		case strings.EqualFold(name, HeaderUpgrade):
			bit, dst = seenUpgrade, &req.Upgrade
		case strings.EqualFold(name, HeaderSecWebSocketKey):
			bit, dst = seenKey, &req.Key
		case strings.EqualFold(name, HeaderSecWebSocketVer):
			bit, dst = seenVersion, &req.Version
		default:
			continue
		}
		if req.seen&bit != 0 {
			return nil, ErrDuplicateHeader.WithContext("header", name)
		}
		req.seen |= bit
		*dst = value
	}
	return req, nil
}

// Validate applies the upgrade rules in order: upgrade headers, version, key.
func (r *HandshakeRequest) Validate() error {
	if !containsToken(r.Connection, "upgrade") || !strings.EqualFold(r.Upgrade, "websocket") {
		return ErrInvalidUpgradeHeaders
	}
	if r.Version != RequiredWebSocketVersion {
		return ErrBadWebSocketVersion.WithContext("version", r.Version)
	}
	if r.Key == "" {
		return ErrMissingWebSocketKey
	}
	return nil
}

// AcceptKey computes the Sec-WebSocket-Accept value for a client key.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SwitchingProtocols returns the 101 response carrying accept.
func SwitchingProtocols(accept string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n")
}

// RejectResponse returns the 400 response matching a handshake error.
func RejectResponse(err error) []byte {
	if errors.Is(err, ErrBadWebSocketVersion) {
		return responseBadVersion
	}
	return responseBadRequest
}

// ProcessHandshake parses and validates raw and returns the bytes to send.
// A nil error means the response is a 101 and the connection may open.
func ProcessHandshake(raw []byte) ([]byte, *HandshakeRequest, error) {
	req, err := ParseHandshake(raw)
	if err != nil {
		return RejectResponse(err), nil, err
	}
	if err := req.Validate(); err != nil {
		return RejectResponse(err), req, err
	}
	return SwitchingProtocols(AcceptKey(req.Key)), req, nil
}

// containsToken checks if a comma separated header value carries token,
// case-insensitively.
func containsToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
