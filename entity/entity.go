package entity

import (
	"math/bits"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
	"github.com/icza/cs2replay/schema"
	"github.com/icza/cs2replay/stringtable"
	"github.com/icza/cs2replay/wire"
)

// maxSlots bounds the entity index space (spec §4.F: "slot ranges over
// [0, 2^14)").
const maxSlots = 1 << 14

// updateType is the 2-bit PVS transition tag read per entry of a
// PacketEntities delta block.
type updateType uint32

const (
	updateDelta    updateType = 0
	updateLeavePVS updateType = 1
	updateCreate   updateType = 2
	updateDelete   updateType = 3
)

// Slot is one live entity: its class, network serial and the last
// decoded value at every field path it has ever received.
type Slot struct {
	Index  int32
	Class  *schema.Class
	Serial uint32
	InPVS  bool

	values map[schema.FieldPath]schema.Value
}

// Value returns the last decoded value at path, or false if that leaf
// has never been written for this entity.
func (s *Slot) Value(path schema.FieldPath) (schema.Value, bool) {
	v, ok := s.values[path]
	return v, ok
}

// ValueByName resolves dotted, then looks it up, a convenience used by
// the query layer (spec §4.H).
func (s *Slot) ValueByName(dotted string) (schema.Value, bool) {
	ff, ok := s.Class.FieldByName(dotted)
	if !ok {
		return schema.Value{}, false
	}
	return s.Value(ff.Path)
}

func (s *Slot) set(path schema.FieldPath, v schema.Value) {
	if s.values == nil {
		s.values = make(map[schema.FieldPath]schema.Value)
	}
	s.values[path] = v
}

// World is the fixed-size entity slot array a demo's entity stream is
// replayed into (spec §4.F).
type World struct {
	reg    *schema.Registry
	tables *stringtable.Registry

	slots [maxSlots]*Slot
}

// NewWorld returns an empty World bound to reg for class/field lookups
// and tables for instancebaseline seeding.
func NewWorld(reg *schema.Registry, tables *stringtable.Registry) *World {
	return &World{reg: reg, tables: tables}
}

// Slot returns the entity currently occupying index, or nil if empty.
func (w *World) Slot(index int32) *Slot {
	if index < 0 || int(index) >= maxSlots {
		return nil
	}
	return w.slots[index]
}

// Each invokes fn for every currently live (in-PVS) entity.
func (w *World) Each(fn func(*Slot)) {
	for _, s := range w.slots {
		if s != nil && s.InPVS {
			fn(s)
		}
	}
}

// ApplyPacketEntities replays one CSVCMsg_PacketEntities message against
// w (spec §4.F's Create/Delta/Leave-PVS/Delete state machine).
func (w *World) ApplyPacketEntities(msg wire.PacketEntities) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(*cs2replay.Error); ok {
				err = e
				return
			}
			panic(p)
		}
	}()

	br := bitread.New(msg.EntityData)
	classIDBits := classIDBitWidth(w.reg.NumClasses())

	index := int32(-1)
	for i := int32(0); i < msg.UpdatedEntries; i++ {
		delta := br.ReadUBitVar() + 1
		index += int32(delta)

		switch updateType(br.ReadBits(2)) {
		case updateLeavePVS:
			if s := w.slots[index]; s != nil {
				s.InPVS = false
			}

		case updateDelete:
			w.slots[index] = nil

		case updateCreate:
			if err := w.create(br, index, classIDBits); err != nil {
				return err
			}

		case updateDelta:
			s := w.slots[index]
			if s == nil {
				return cs2replay.Errorf(cs2replay.MissingEntity, "delta update for empty slot %d", index)
			}
			s.InPVS = true
			if err := applyDelta(br, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func classIDBitWidth(numClasses int) int {
	if numClasses <= 1 {
		return 1
	}
	return bits.Len(uint(numClasses - 1))
}

func (w *World) create(br *bitread.Reader, index int32, classIDBits int) error {
	classID := int32(br.ReadBits(classIDBits))
	serial := br.ReadBits(17)
	_ = br.ReadVarU32() // unused per-entity creation cookie

	class := w.reg.Class(classID)
	if class == nil {
		return cs2replay.Errorf(cs2replay.UnknownClass, "create references unknown class id %d", classID)
	}

	s := &Slot{Index: index, Class: class, Serial: serial, InPVS: true}

	if baseline, ok := w.tables.InstanceBaseline(classID); ok {
		bbr := bitread.New(baseline)
		if err := applyDelta(bbr, s); err != nil {
			return cs2replay.Wrap(cs2replay.CorruptPath, err, "applying instancebaseline for class %d", classID)
		}
	}

	if err := applyDelta(br, s); err != nil {
		return err
	}

	w.slots[index] = s
	return nil
}

// applyDelta decodes the field-path list that follows a Create or Delta
// header and writes each resolved leaf's new value into s.
func applyDelta(br *bitread.Reader, s *Slot) error {
	return decodeFieldPaths(br, func(p schema.FieldPath) error {
		ff, err := s.Class.FieldByPath(p)
		if err != nil {
			return err
		}
		s.set(p, ff.Decoder(br))
		return nil
	})
}
