package entity

import (
	"testing"

	"github.com/icza/cs2replay/schema"
	"github.com/icza/cs2replay/stringtable"
	"github.com/icza/cs2replay/wire"
)

// bitWriter is a minimal LSB-first bit writer mirroring bitread.Reader's
// framing, used only to build synthetic fixtures for this package's tests.
type bitWriter struct {
	buf    []byte
	bitPos int
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		byteIdx := w.bitPos / 8
		for byteIdx >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
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
			continue
		}
		w.writeBits(b, 8)
		return
	}
}

func zigzag32(v int32) uint32 {
	return uint32((v << 1) ^ (v >> 31))
}

func buildRegistry(t *testing.T) (*schema.Registry, int32) {
	t.Helper()
	symbols := []string{"m_iHealth", "int32", "m_iArmor", "CBasePlayerPawn"}
	msg := wire.FlattenedSerializer{
		Symbols: symbols,
		Fields: []wire.ProtoField{
			{VarNameSym: 0, VarTypeSym: 1, NestedSerializerNameSym: -1, EncoderSym: -1},
			{VarNameSym: 2, VarTypeSym: 1, NestedSerializerNameSym: -1, EncoderSym: -1},
		},
		Serializers: []wire.ProtoSerializer{
			{NameSym: 3, Version: 0, FieldIndex: []int32{0, 1}},
		},
	}
	reg := schema.NewRegistry()
	if err := reg.IngestFlattenedSerializer(msg); err != nil {
		t.Fatal(err)
	}
	ci := wire.ClassInfo{Classes: []wire.ClassInfoEntry{{ClassID: 0, NetworkName: "CBasePlayerPawn"}}}
	if err := reg.IngestClassInfo(ci); err != nil {
		t.Fatal(err)
	}
	return reg, 0
}

func TestApplyPacketEntitiesCreatesSlotWithFields(t *testing.T) {
	reg, classID := buildRegistry(t)
	tables := stringtable.NewRegistry()
	world := NewWorld(reg, tables)

	var w bitWriter
	// delta header: ReadUBitVar() == 0 -> actual delta 1, index -1 -> 0.
	w.writeBits(0, 2) // ubitvar prefix selecting 4-bit width
	w.writeBits(0, 4) // value 0

	w.writeBits(uint32(updateCreate), 2)

	w.writeBits(uint32(classID), classIDBitWidth(reg.NumClasses())) // class_id
	w.writeBits(42, 17)                                             // serial
	w.writeVarU32(0)                                                // unused creation cookie

	// field path: PlusOne (health) + value, PlusOne (armor) + value, Finished.
	w.writeBit(true)
	w.writeBit(false)
	w.writeVarU32(zigzag32(5))

	w.writeBit(true)
	w.writeBit(false)
	w.writeVarU32(zigzag32(7))

	w.writeBit(false) // Finished

	msg := wire.PacketEntities{MaxEntries: 16, UpdatedEntries: 1, EntityData: w.buf}
	if err := world.ApplyPacketEntities(msg); err != nil {
		t.Fatal(err)
	}

	s := world.Slot(0)
	if s == nil {
		t.Fatal("slot 0 not created")
	}
	if s.Serial != 42 {
		t.Errorf("got serial %d, want 42", s.Serial)
	}
	hv, ok := s.ValueByName("m_iHealth")
	if !ok || hv.I64 != 5 {
		t.Errorf("got health %+v, want 5", hv)
	}
	av, ok := s.ValueByName("m_iArmor")
	if !ok || av.I64 != 7 {
		t.Errorf("got armor %+v, want 7", av)
	}
}

func TestApplyPacketEntitiesDeltaRequiresExistingSlot(t *testing.T) {
	reg, _ := buildRegistry(t)
	tables := stringtable.NewRegistry()
	world := NewWorld(reg, tables)

	var w bitWriter
	w.writeBits(0, 2)
	w.writeBits(0, 4)
	w.writeBits(uint32(updateDelta), 2)
	w.writeBit(false) // Finished, body irrelevant since the slot check fires first

	msg := wire.PacketEntities{MaxEntries: 16, UpdatedEntries: 1, EntityData: w.buf}
	err := world.ApplyPacketEntities(msg)
	if err == nil {
		t.Fatal("expected error for delta against empty slot")
	}
}
