// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Completion-based TCP transport for loopws. Blocking socket calls run on
// helper goroutines; their outcomes are posted to the owning api.Executor,
// so every callback observes the single-goroutine model of the core.
// Socket options are set per platform, strictly separated by build tags.

package transport
