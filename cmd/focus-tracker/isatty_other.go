//go:build !linux && !darwin

package main

// isatty reports false where terminal detection is not implemented, which
// disables the status line.
func isatty(uintptr) bool {
	return false
}
