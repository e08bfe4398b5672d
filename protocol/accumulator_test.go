// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// accumulator_test.go — growth, target tracking and consumption.
package protocol_test

import (
	"testing"

	"github.com/momentics/loopws/protocol"
)

func TestAccumulatorAppendPreservesOrder(t *testing.T) {
	var a protocol.Accumulator
	a.Append([]byte("abc"))
	a.Append(nil)
	a.Append([]byte("def"))
	if got := string(a.Bytes()); got != "abcdef" {
		t.Fatalf("Bytes() = %q, want %q", got, "abcdef")
	}
	if a.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", a.Len())
	}
}

func TestAccumulatorTarget(t *testing.T) {
	var a protocol.Accumulator
	if a.Short() {
		t.Fatal("Short() with no target")
	}
	a.Append([]byte("ab"))
	a.SetTarget(4)
	if !a.Short() {
		t.Fatal("Short() = false below target")
	}
	a.Append([]byte("cd"))
	if a.Short() {
		t.Fatal("Short() = true at target")
	}
	if a.Target() != 4 {
		t.Fatalf("Target() = %d, want 4", a.Target())
	}
}

func TestAccumulatorConsumeKeepsTail(t *testing.T) {
	var a protocol.Accumulator
	a.Append([]byte("headtail"))
	a.SetTarget(10)
	a.Consume(4)
	if got := string(a.Bytes()); got != "tail" {
		t.Fatalf("after Consume Bytes() = %q, want %q", got, "tail")
	}
	if a.Target() != 0 {
		t.Fatalf("Consume left target %d", a.Target())
	}
	a.Consume(100)
	if a.Len() != 0 {
		t.Fatalf("Len() = %d after over-consume", a.Len())
	}
}

func TestAccumulatorDetach(t *testing.T) {
	var a protocol.Accumulator
	a.Append([]byte("xyz"))
	out := a.Detach()
	a.Append([]byte("123"))
	if string(out) != "xyz" {
		t.Fatalf("Detach() = %q, later append leaked into it", out)
	}
	a.Reset()
	if a.Len() != 0 || a.Short() {
		t.Fatal("Reset did not empty accumulator")
	}
}
