// Package jitbuf owns the in-memory instruction stream a kernel
// generator writes to, and the machinery that turns that stream into an
// executable function pointer: anonymous mmap, word copy, mprotect,
// instruction-cache flush. Grounded on
// _examples/original_source/src/Kernel.h's buffer/label/materialization
// lifecycle.
package jitbuf

import (
	"fmt"
	"log"
	"os"
)

// Buffer accumulates 32-bit AArch64 instruction words and named labels
// before materialization. A Buffer is single-use: once Materialize
// succeeds the Buffer is frozen and further writes fail.
type Buffer struct {
	words    []uint32
	labels   map[string]int
	frozen   bool
	Debug    bool
	DumpPath string
	log      *log.Logger
}

// ErrFrozen is returned by any mutating method called after Materialize.
var ErrFrozen = fmt.Errorf("jitbuf: buffer is frozen after materialization")

// New returns an empty Buffer ready to accept instruction words.
func New() *Buffer {
	return &Buffer{
		labels: make(map[string]int),
		log:    log.New(os.Stderr, "jitbuf: ", log.LstdFlags),
	}
}

// AddInstr appends one encoded instruction word to the buffer.
func (b *Buffer) AddInstr(word uint32) error {
	if b.frozen {
		return ErrFrozen
	}
	b.words = append(b.words, word)
	if b.Debug {
		b.log.Printf("word[%d] = 0x%08X", len(b.words)-1, word)
	}
	return nil
}

// AddLabel records the current write position under name, so a later
// branch can compute its displacement via InstrCountFromLabel.
func (b *Buffer) AddLabel(name string) error {
	if b.frozen {
		return ErrFrozen
	}
	if _, exists := b.labels[name]; exists {
		return fmt.Errorf("jitbuf: label %q already defined", name)
	}
	b.labels[name] = len(b.words)
	return nil
}

// InstrCountFromLabel returns the number of instructions emitted since
// name was recorded. Used to compute a back-branch's byte displacement
// (count * 4) without hardcoding a literal that depends on exact code
// layout, mirroring the original's getInstrCountFromLabel.
func (b *Buffer) InstrCountFromLabel(name string) (int, error) {
	pos, ok := b.labels[name]
	if !ok {
		return 0, fmt.Errorf("jitbuf: unknown label %q", name)
	}
	return len(b.words) - pos, nil
}

// Size returns the number of instruction words currently buffered.
func (b *Buffer) Size() int { return len(b.words) }

// Words returns a copy of the buffered instruction stream, for tests
// that want to inspect generated code without materializing it.
func (b *Buffer) Words() []uint32 {
	out := make([]uint32, len(b.words))
	copy(out, b.words)
	return out
}

// WriteFile dumps the raw instruction words to path, little-endian, one
// uint32 per word. No generator in this module calls it; it exists
// purely as a codegen debugging aid, mirroring Kernel::write.
func (b *Buffer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jitbuf: write dump: %w", err)
	}
	defer f.Close()
	buf := make([]byte, 4)
	for _, w := range b.words {
		buf[0] = byte(w)
		buf[1] = byte(w >> 8)
		buf[2] = byte(w >> 16)
		buf[3] = byte(w >> 24)
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("jitbuf: write dump: %w", err)
		}
	}
	return nil
}
