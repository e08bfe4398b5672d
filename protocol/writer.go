// File: protocol/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sequential frame writer. Wire frames are queued and written one at a time;
// the next write is issued only after the previous one completed. Whole
// messages are enqueued atomically so fragments of two messages never
// interleave on the wire.

package protocol

import (
	"io"

	"github.com/eapache/queue"

	"github.com/momentics/loopws/api"
)

type pendingWrite struct {
	data []byte
	// done is set on the last fragment of a message only.
	done func(error)
}

// frameWriter drains a fragment queue into a transport. The drain is an
// explicit loop: writes that complete synchronously are picked up by the same
// loop iteration instead of nesting a new call per fragment.
type frameWriter struct {
	t       api.Transport
	q       *queue.Queue // of pendingWrite
	writing bool
	failed  error
	onError func(error)
	onSent  func(n int)
}

func newFrameWriter(t api.Transport, onSent func(int), onError func(error)) *frameWriter {
	return &frameWriter{
		t:       t,
		q:       queue.New(),
		onSent:  onSent,
		onError: onError,
	}
}

// enqueue schedules frames for writing; done runs after the last one was
// written, or with the error that stopped the writer.
func (w *frameWriter) enqueue(frames [][]byte, done func(error)) {
	if w.failed != nil {
		if done != nil {
			done(w.failed)
		}
		return
	}
	for i, p := range frames {
		pw := pendingWrite{data: p}
		if i == len(frames)-1 {
			pw.done = done
		}
		w.q.Add(pw)
	}
	if !w.writing {
		w.pump()
	}
}

func (w *frameWriter) pending() int {
	return w.q.Length()
}

func (w *frameWriter) pump() {
	w.writing = true
	for w.q.Length() > 0 {
		pw := w.q.Remove().(pendingWrite)

		inline := true
		finished := false
		var result error
		w.t.Write(pw.data, func(n int, err error) {
			if err == nil && n < len(pw.data) {
				err = io.ErrShortWrite
			}
			if err == nil && w.onSent != nil {
				w.onSent(n)
			}
			if inline {
				finished, result = true, err
				return
			}
			if !w.complete(pw, err) {
				return
			}
			w.pump()
		})
		inline = false

		if !finished {
			// resumes from the write callback
			return
		}
		if !w.complete(pw, result) {
			return
		}
	}
	w.writing = false
}

// complete settles one written fragment and reports whether draining may
// continue.
func (w *frameWriter) complete(pw pendingWrite, err error) bool {
	if err != nil {
		if pw.done != nil {
			pw.done(err)
		}
		w.fail(err)
		return false
	}
	if pw.done != nil {
		pw.done(nil)
	}
	return true
}

// fail stops the writer and errors every queued completion.
func (w *frameWriter) fail(err error) {
	if w.failed != nil {
		return
	}
	w.failed = err
	w.writing = false
	for w.q.Length() > 0 {
		pw := w.q.Remove().(pendingWrite)
		if pw.done != nil {
			pw.done(err)
		}
	}
	if w.onError != nil {
		w.onError(err)
	}
}

// stop discards queued frames without invoking their completions. Used once
// the transport is gone.
func (w *frameWriter) stop() {
	if w.failed == nil {
		w.failed = api.ErrTransportClosed
	}
	w.writing = false
	for w.q.Length() > 0 {
		w.q.Remove()
	}
}
