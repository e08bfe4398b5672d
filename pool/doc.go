// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reusable byte buffers for transport reads. Buffers come from a bounded
// free list and fall back to allocation when it is empty.
package pool
