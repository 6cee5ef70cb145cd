package stringtable

import (
	"testing"

	"github.com/icza/cs2replay/wire"
)

// bitWriter is a minimal LSB-first bit writer, mirroring bitread.Reader's
// framing, used only to build synthetic fixtures for this package's tests.
type bitWriter struct {
	buf     []byte
	bitPos  int
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		bit := (v >> uint(i)) & 1
		byteIdx := w.bitPos / 8
		for byteIdx >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if bit != 0 {
			w.buf[byteIdx] |= 1 << uint(w.bitPos%8)
		}
		w.bitPos++
	}
}

func (w *bitWriter) writeBit(b bool) {
	if b {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
}

func (w *bitWriter) writeVarU32(v uint32) {
	for {
		b := v & 0x7f
		v >>= 7
		if v != 0 {
			w.writeBits(b|0x80, 8)
		} else {
			w.writeBits(b, 8)
			return
		}
	}
}

func (w *bitWriter) writeString(s string) {
	for i := 0; i < len(s); i++ {
		w.writeBits(uint32(s[i]), 8)
	}
	w.writeBits(0, 8)
}

func (w *bitWriter) byteAlign() {
	for w.bitPos%8 != 0 {
		w.writeBit(false)
	}
}

// writeCreateEntry appends one incremental-index, fresh-key, no-userdata
// entry in the run-length codec's wire format.
func writeCreateEntry(w *bitWriter, key string) {
	w.writeBit(true)  // incremental index
	w.writeBit(true)  // has key
	w.writeBit(false) // not a back reference
	w.writeString(key)
	w.writeBit(false) // no user data
}

func writeCreateEntryWithData(w *bitWriter, key string, data []byte) {
	w.writeBit(true)
	w.writeBit(true)
	w.writeBit(false)
	w.writeString(key)
	w.writeBit(true)
	w.writeBits(uint32(len(data)), 17)
	w.byteAlign()
	for _, b := range data {
		w.writeBits(uint32(b), 8)
	}
}

func TestCreateDecodesSequentialEntries(t *testing.T) {
	var w bitWriter
	writeCreateEntry(&w, "CTTerrorist")
	writeCreateEntry(&w, "TERRORIST")

	reg := NewRegistry()
	msg := wire.CreateStringTable{Name: "modelprecache", MaxEntries: 16, NumEntries: 2, StringData: w.buf}
	if err := reg.Create(msg, 3); err != nil {
		t.Fatal(err)
	}

	tab := reg.Table("modelprecache")
	if tab == nil {
		t.Fatal("table not registered")
	}
	if tab.Len() != 2 {
		t.Fatalf("got %d entries, want 2", tab.Len())
	}
	e0, _ := tab.EntryAt(0)
	e1, _ := tab.EntryAt(1)
	if e0.Key != "CTTerrorist" || e1.Key != "TERRORIST" {
		t.Errorf("got keys %q, %q", e0.Key, e1.Key)
	}
}

func TestInstanceBaselineLookupByClassID(t *testing.T) {
	var w bitWriter
	writeCreateEntryWithData(&w, "40", []byte{0xde, 0xad, 0xbe, 0xef})

	reg := NewRegistry()
	msg := wire.CreateStringTable{Name: "instancebaseline", MaxEntries: 256, NumEntries: 1, StringData: w.buf}
	if err := reg.Create(msg, 1); err != nil {
		t.Fatal(err)
	}

	data, ok := reg.InstanceBaseline(40)
	if !ok {
		t.Fatal("expected baseline for class 40")
	}
	if len(data) != 4 || data[0] != 0xde {
		t.Errorf("got %v, want [0xde 0xad 0xbe 0xef]", data)
	}

	if _, ok := reg.InstanceBaseline(41); ok {
		t.Error("expected no baseline for class 41")
	}
}

func TestUpdateAppliesAgainstExistingTable(t *testing.T) {
	var w bitWriter
	writeCreateEntry(&w, "a")

	reg := NewRegistry()
	if err := reg.Create(wire.CreateStringTable{Name: "userinfo", MaxEntries: 64, NumEntries: 1, StringData: w.buf}, 5); err != nil {
		t.Fatal(err)
	}

	// Each decode pass restarts at index -1, so the new entry carries an
	// explicit index of 1 rather than the incremental bit.
	var u bitWriter
	u.writeBit(false) // explicit index
	u.writeVarU32(1)
	u.writeBit(true)  // has key
	u.writeBit(false) // not a back reference
	u.writeString("b")
	u.writeBit(false) // no user data
	if err := reg.Update(wire.UpdateStringTable{TableID: 5, NumChangedEntries: 1, StringData: u.buf}); err != nil {
		t.Fatal(err)
	}

	tab := reg.Table("userinfo")
	if tab.Len() != 2 {
		t.Fatalf("got %d entries, want 2", tab.Len())
	}
	e1, _ := tab.EntryAt(1)
	if e1.Key != "b" {
		t.Errorf("got key %q, want b", e1.Key)
	}
}

func TestUpdateUnknownTableIDErrors(t *testing.T) {
	reg := NewRegistry()
	err := reg.Update(wire.UpdateStringTable{TableID: 99, NumChangedEntries: 1})
	if err == nil {
		t.Fatal("expected error for unknown table id")
	}
}
