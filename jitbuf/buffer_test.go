package jitbuf

import "testing"

func TestAddLabelAndInstrCount(t *testing.T) {
	b := New()
	if err := b.AddInstr(0x11111111); err != nil {
		t.Fatalf("AddInstr: %v", err)
	}
	if err := b.AddLabel("loop"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := b.AddInstr(uint32(i)); err != nil {
			t.Fatalf("AddInstr: %v", err)
		}
	}
	count, err := b.InstrCountFromLabel("loop")
	if err != nil {
		t.Fatalf("InstrCountFromLabel: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestDuplicateLabelRejected(t *testing.T) {
	b := New()
	if err := b.AddLabel("x"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if err := b.AddLabel("x"); err == nil {
		t.Fatal("expected error redefining label")
	}
}

func TestUnknownLabelRejected(t *testing.T) {
	b := New()
	if _, err := b.InstrCountFromLabel("missing"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestWordsIsACopy(t *testing.T) {
	b := New()
	_ = b.AddInstr(1)
	w := b.Words()
	w[0] = 99
	if b.words[0] != 1 {
		t.Fatal("Words() must return an independent copy")
	}
}
