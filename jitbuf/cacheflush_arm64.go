//go:build arm64

package jitbuf

// flushInstructionCacheAsm is implemented in cacheflush_arm64.s.
func flushInstructionCacheAsm(addr, size uintptr)

func flushInstructionCache(addr, size uintptr) error {
	flushInstructionCacheAsm(addr, size)
	return nil
}
