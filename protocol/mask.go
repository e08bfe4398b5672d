// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Client-to-server payload masking.

package protocol

// Mask XORs b in place with key, starting at key offset pos, and returns the
// key offset for the byte following b. Masking and unmasking are the same
// operation.
func Mask(key [4]byte, pos int, b []byte) int {
	for i := range b {
		b[i] ^= key[(pos+i)&3]
	}
	return (pos + len(b)) & 3
}
