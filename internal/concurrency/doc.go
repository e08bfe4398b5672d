// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-goroutine event loop. Every transport completion and every
// connection callback of a server runs on one EventLoop, so connection state
// needs no locking.
package concurrency
