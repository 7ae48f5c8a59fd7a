//go:build !arm64

package jitbuf

import "fmt"

// This module's generated code is AArch64 machine code; materializing a
// kernel on any other architecture cannot run it, so the cache flush
// fails loudly rather than silently skipping a step that matters.
func flushInstructionCache(addr, size uintptr) error {
	return fmt.Errorf("jitbuf: AArch64 instruction-cache flush unavailable on this architecture")
}
