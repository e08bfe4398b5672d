// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// helpers_test.go — client frame builders shared by protocol tests.
package protocol_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/gobwas/ws"
)

// clientFrame builds a masked client frame with gobwas/ws.
func clientFrame(t *testing.T, op ws.OpCode, fin bool, p []byte) []byte {
	t.Helper()
	f := ws.NewFrame(op, fin, append([]byte(nil), p...))
	f = ws.MaskFrameInPlace(f)
	b, err := ws.CompileFrame(f)
	if err != nil {
		t.Fatalf("CompileFrame: %v", err)
	}
	return b
}

// unmaskedFrame builds a client frame with the mask bit clear.
func unmaskedFrame(t *testing.T, op ws.OpCode, p []byte) []byte {
	t.Helper()
	b, err := ws.CompileFrame(ws.NewFrame(op, true, p))
	if err != nil {
		t.Fatalf("CompileFrame: %v", err)
	}
	return b
}

// serverFrames decodes every frame in out with gobwas/ws.
func serverFrames(t *testing.T, out []byte) []ws.Frame {
	t.Helper()
	r := bytes.NewReader(out)
	var frames []ws.Frame
	for {
		f, err := ws.ReadFrame(r)
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if f.Header.Masked {
			t.Fatalf("server frame is masked: %+v", f.Header)
		}
		frames = append(frames, f)
	}
}

const testKey = "dGhlIHNhbXBsZSBub25jZQ=="

func upgradeRequest(key string) string {
	return "GET /chat HTTP/1.1\r\n" +
		"Host: server.example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
}
