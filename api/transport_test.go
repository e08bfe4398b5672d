package api_test

import (
	"errors"
	"testing"

	"github.com/momentics/loopws/api"
)

func TestConnStateString(t *testing.T) {
	cases := map[api.ConnState]string{
		api.StateHandshaking: "handshaking",
		api.StateOpen:        "open",
		api.StateClosing:     "closing",
		api.StateClosed:      "closed",
		api.ConnState(42):    "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("ConnState(%d).String() = %q, want %q", int(st), got, want)
		}
	}
}

func TestErrorContextAndIs(t *testing.T) {
	base := api.NewError(api.ErrCodeProtocol, "reserved bits set")
	withCtx := base.WithContext("opcode", 1)

	if !errors.Is(withCtx, base) {
		t.Fatal("errors.Is should match an error carrying extra context")
	}
	if len(base.Context) != 0 {
		t.Fatal("WithContext must not mutate the receiver")
	}
	if got := api.CodeOf(withCtx); got != api.ErrCodeProtocol {
		t.Fatalf("CodeOf = %v, want protocol", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := api.Wrap(api.ErrCodeTransport, "read failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable through errors.Is")
	}
	if api.CodeOf(err) != api.ErrCodeTransport {
		t.Fatalf("CodeOf = %v", api.CodeOf(err))
	}
	if api.CodeOf(cause) != api.ErrCodeInternal {
		t.Fatal("plain errors classify as internal")
	}
	if api.CodeOf(nil) != api.ErrCodeOK {
		t.Fatal("nil classifies as ok")
	}
}

func TestExecutorFunc(t *testing.T) {
	ran := false
	var ex api.Executor = api.ExecutorFunc(func(task func()) error {
		task()
		return nil
	})
	if err := ex.Submit(func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("task did not run")
	}
}
