//go:build !arm64

package jitbuf

import "unsafe"

// On a non-arm64 host, Materialize always fails before a Kernel can
// exist (flushInstructionCache errors first in cacheflush_other.go), so
// these methods exist only to keep the package buildable elsewhere;
// they are unreachable in practice.
func (k *Kernel) CallGemm(a, b, c unsafe.Pointer, ldA, ldB, ldC int64) {
	panic("jitbuf: cannot call an AArch64 kernel on this architecture")
}

func (k *Kernel) CallBrgemm(a, b, c unsafe.Pointer, ldA, ldB, ldC, brSize int64) {
	panic("jitbuf: cannot call an AArch64 kernel on this architecture")
}

func (k *Kernel) CallUnary(a, b unsafe.Pointer, ldA, ldB int64) {
	panic("jitbuf: cannot call an AArch64 kernel on this architecture")
}

func (k *Kernel) CallBinary(a, b, c unsafe.Pointer, ldA, ldB, ldC int64) {
	panic("jitbuf: cannot call an AArch64 kernel on this architecture")
}
