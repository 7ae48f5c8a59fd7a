package jitbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Kernel is a materialized, executable region of memory holding the
// instruction words of a Buffer. Grounded on Kernel.h's alloc_mmap/
// set_exec/release_memory lifecycle: allocate writable, copy words,
// switch to executable, flush the instruction cache, and release the
// mapping on Close.
type Kernel struct {
	mem  []byte
	size int
}

// Materialize copies the buffer's instruction words into a fresh
// anonymous mmap region, makes it executable, and flushes the
// instruction cache so the CPU observes the freshly written code. The
// Buffer is frozen on success; further writes to it return ErrFrozen.
func (b *Buffer) Materialize() (*Kernel, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	if len(b.words) == 0 {
		return nil, fmt.Errorf("jitbuf: cannot materialize an empty buffer")
	}

	size := len(b.words) * 4
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jitbuf: mmap: %w", err)
	}

	for i, w := range b.words {
		mem[i*4+0] = byte(w)
		mem[i*4+1] = byte(w >> 8)
		mem[i*4+2] = byte(w >> 16)
		mem[i*4+3] = byte(w >> 24)
	}

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("jitbuf: mprotect: %w", err)
	}

	if err := flushInstructionCache(uintptr(unsafe.Pointer(&mem[0])), uintptr(size)); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("jitbuf: cache flush: %w", err)
	}

	b.frozen = true
	return &Kernel{mem: mem, size: size}, nil
}

// FuncPointer returns the address of the first instruction, for casting
// into the package-specific kernel function type (kernel.GemmFunc and
// siblings) via unsafe.Pointer. Separated from Materialize so callers
// never need to reach into Kernel's fields directly.
func (k *Kernel) FuncPointer() unsafe.Pointer {
	return unsafe.Pointer(&k.mem[0])
}

// Size returns the number of bytes in the materialized region.
func (k *Kernel) Size() int { return k.size }

// Close releases the executable mapping. Calling the kernel's function
// pointer after Close is undefined behavior; callers must not retain
// FuncPointer's result past Close.
func (k *Kernel) Close() error {
	if k.mem == nil {
		return nil
	}
	err := unix.Munmap(k.mem)
	k.mem = nil
	if err != nil {
		return fmt.Errorf("jitbuf: munmap: %w", err)
	}
	return nil
}
