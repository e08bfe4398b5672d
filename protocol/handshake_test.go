// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// handshake_test.go — upgrade request parsing and byte-exact responses.
package protocol_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/momentics/loopws/protocol"
)

const (
	wantSwitching = "HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n"
	wantBadRequest = "HTTP/1.1 400 Bad Request\r\n\r\n"
	wantBadVersion = "HTTP/1.1 400 Bad Request\r\nSec-WebSocket-Version: 13\r\n\r\n"
)

func TestAcceptKeyRFCVector(t *testing.T) {
	if got := protocol.AcceptKey(testKey); got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Fatalf("AcceptKey = %q", got)
	}
}

func TestProcessHandshakeSuccess(t *testing.T) {
	resp, req, err := protocol.ProcessHandshake([]byte(upgradeRequest(testKey)))
	if err != nil {
		t.Fatalf("ProcessHandshake: %v", err)
	}
	if string(resp) != wantSwitching {
		t.Fatalf("response = %q", resp)
	}
	if req.RequestLine != "GET /chat HTTP/1.1" || req.Key != testKey {
		t.Fatalf("request = %+v", req)
	}
	if !req.HasKey() || !req.HasVersion() {
		t.Fatal("presence flags not set")
	}
}

func TestProcessHandshakeRejections(t *testing.T) {
	base := map[string]string{
		"Upgrade":               "websocket",
		"Connection":            "Upgrade",
		"Sec-WebSocket-Key":     testKey,
		"Sec-WebSocket-Version": "13",
	}
	build := func(edit func(h map[string]string)) []byte {
		h := map[string]string{}
		for k, v := range base {
			h[k] = v
		}
		edit(h)
		var b strings.Builder
		b.WriteString("GET / HTTP/1.1\r\nHost: x\r\n")
		for _, k := range []string{"Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version"} {
			if v, ok := h[k]; ok {
				b.WriteString(k + ": " + v + "\r\n")
			}
		}
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	cases := []struct {
		name string
		raw  []byte
		resp string
		err  error
	}{
		{"version-12", build(func(h map[string]string) { h["Sec-WebSocket-Version"] = "12" }), wantBadVersion, protocol.ErrBadWebSocketVersion},
		{"version-missing", build(func(h map[string]string) { delete(h, "Sec-WebSocket-Version") }), wantBadVersion, protocol.ErrBadWebSocketVersion},
		{"no-upgrade", build(func(h map[string]string) { delete(h, "Upgrade") }), wantBadRequest, protocol.ErrInvalidUpgradeHeaders},
		{"upgrade-h2c", build(func(h map[string]string) { h["Upgrade"] = "h2c" }), wantBadRequest, protocol.ErrInvalidUpgradeHeaders},
		{"connection-close", build(func(h map[string]string) { h["Connection"] = "close" }), wantBadRequest, protocol.ErrInvalidUpgradeHeaders},
		{"connection-keep-alive", build(func(h map[string]string) { h["Connection"] = "keep-alive" }), wantBadRequest, protocol.ErrInvalidUpgradeHeaders},
		{"connection-upgraded", build(func(h map[string]string) { h["Connection"] = "keep-alive, upgraded" }), wantBadRequest, protocol.ErrInvalidUpgradeHeaders},
		{"no-key", build(func(h map[string]string) { delete(h, "Sec-WebSocket-Key") }), wantBadRequest, protocol.ErrMissingWebSocketKey},
		{"duplicate-key", []byte(strings.Replace(upgradeRequest(testKey), "\r\n\r\n", "\r\nsec-websocket-key: other\r\n\r\n", 1)), wantBadRequest, protocol.ErrDuplicateHeader},
		{"no-colon", []byte("GET / HTTP/1.1\r\nbroken header\r\n\r\n"), wantBadRequest, protocol.ErrMalformedRequest},
		{"empty", []byte("\r\n\r\n"), wantBadRequest, protocol.ErrMalformedRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _, err := protocol.ProcessHandshake(tc.raw)
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if string(resp) != tc.resp {
				t.Fatalf("response = %q, want %q", resp, tc.resp)
			}
		})
	}
}

func TestParseHandshakeHeaderMatching(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n" +
		"UPGRADE:   WebSocket  \r\n" +
		"connection: keep-alive, Upgrade\r\n" +
		"X-Custom: a: b\r\n" +
		"sec-websocket-key:" + testKey + "\r\n" +
		"SEC-WEBSOCKET-VERSION: 13\r\n\r\n"
	req, err := protocol.ParseHandshake([]byte(raw))
	if err != nil {
		t.Fatalf("ParseHandshake: %v", err)
	}
	if req.Upgrade != "WebSocket" || req.Key != testKey {
		t.Fatalf("values not trimmed: %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRequestEnd(t *testing.T) {
	req := upgradeRequest(testKey)
	if got := protocol.RequestEnd([]byte(req[:len(req)-2])); got != -1 {
		t.Fatalf("RequestEnd(partial) = %d", got)
	}
	withFrame := req + "\x81\x80abcd"
	if got := protocol.RequestEnd([]byte(withFrame)); got != len(req) {
		t.Fatalf("RequestEnd = %d, want %d", got, len(req))
	}
}
