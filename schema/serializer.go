/*

Package schema ingests the CSVCMsg_FlattenedSerializer message and the
class/network-name map, and builds, per Class, the ordered FlatField
list and decoders that the entity engine (package entity) applies field
path deltas against (spec §4.D).

*/
package schema

import (
	"fmt"
	"strings"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
	"github.com/icza/cs2replay/wire"
)

// Decoder reads one leaf value off the bit stream.
type Decoder func(r *bitread.Reader) Value

// Field is one entry of a Serializer: name, declared type, decode
// parameters and (for embedded structs / arrays) a nested shape.
type Field struct {
	Name        string
	TypeStr     string
	BitCount    int
	LowValue    float32
	HighValue   float32
	EncodeFlags int32
	Encoder     string // "coord", "normal", "simtime", "fixed64", "" (default)

	td typeDesc

	NestedSerializerName string // "" if not an embedded struct
	nested               *Serializer

	decoder Decoder // resolved once the registry can bind nested serializers
}

// Serializer is an ordered list of Fields (spec's "Class... has a
// Serializer").
type Serializer struct {
	Name    string
	Version int32
	Fields  []*Field
}

// Class is a named network class with an id and Serializer.
type Class struct {
	ID         int32
	Name       string
	Serializer *Serializer
	Flat       []FlatField
}

// FieldPath addresses one leaf of a Class's flattened tree: an ordered
// sequence of small non-negative indices, depth capped at 7 (spec §3).
type FieldPath [7]int32

// Depth returns how many components of p are in use (p is right-padded
// with -1).
func (p FieldPath) Depth() int {
	for i, v := range p {
		if v < 0 {
			return i
		}
	}
	return len(p)
}

func (p FieldPath) String() string {
	var sb strings.Builder
	for i := 0; i < p.Depth(); i++ {
		if i > 0 {
			sb.WriteByte('/')
		}
		fmt.Fprintf(&sb, "%d", p[i])
	}
	return sb.String()
}

// FlatField is the materialized (path, dotted-name, decoder) triple for
// one leaf a class can ever carry (spec §3).
type FlatField struct {
	Path       FieldPath
	DottedName string
	Decoder    Decoder
}

// Registry is the global, append-only store of symbols, field/serializer
// definitions and resolved Classes built from the stream's embedded
// metadata messages. It is written once during the signon phase and read
// many times afterward (spec §5).
type Registry struct {
	symbols []string

	serializersByName map[string]*Serializer
	classes           map[int32]*Class

	tickInterval float32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		serializersByName: make(map[string]*Serializer),
		classes:           make(map[int32]*Class),
	}
}

// SetTickInterval records the server's tick_interval, used by the
// "simtime" decoder family.
func (r *Registry) SetTickInterval(v float32) { r.tickInterval = v }

// IngestFlattenedSerializer absorbs one CSVCMsg_FlattenedSerializer
// message: its symbol table, field records, and serializer records.
func (r *Registry) IngestFlattenedSerializer(msg wire.FlattenedSerializer) error {
	r.symbols = append(r.symbols, msg.Symbols...)

	fields := make([]*Field, len(msg.Fields))
	for i, pf := range msg.Fields {
		f, err := r.buildField(pf)
		if err != nil {
			return err
		}
		fields[i] = f
	}

	for _, ps := range msg.Serializers {
		name, err := r.symbol(ps.NameSym)
		if err != nil {
			return err
		}
		s := &Serializer{Name: name, Version: ps.Version}
		for _, fi := range ps.FieldIndex {
			if int(fi) < 0 || int(fi) >= len(fields) {
				return cs2replay.Errorf(cs2replay.ProtoDecode, "serializer %s field index %d out of range", name, fi)
			}
			s.Fields = append(s.Fields, fields[fi])
		}
		r.serializersByName[serializerKey(name, ps.Version)] = s
		// Also keep an unversioned alias to the latest-seen version, which
		// is what a class's network_name resolves against.
		r.serializersByName[name] = s
	}

	return nil
}

func serializerKey(name string, version int32) string {
	return fmt.Sprintf("%s.%d", name, version)
}

func (r *Registry) symbol(idx int32) (string, error) {
	if idx < 0 {
		return "", nil
	}
	if int(idx) >= len(r.symbols) {
		return "", cs2replay.Errorf(cs2replay.ProtoDecode, "symbol index %d out of range", idx)
	}
	return r.symbols[idx], nil
}

func (r *Registry) buildField(pf wire.ProtoField) (*Field, error) {
	name, err := r.symbol(pf.VarNameSym)
	if err != nil {
		return nil, err
	}
	typeStr, err := r.symbol(pf.VarTypeSym)
	if err != nil {
		return nil, err
	}
	encoder := ""
	if pf.EncoderSym >= 0 {
		encoder, err = r.symbol(pf.EncoderSym)
		if err != nil {
			return nil, err
		}
	}
	nestedName := ""
	if pf.NestedSerializerNameSym >= 0 {
		nestedName, err = r.symbol(pf.NestedSerializerNameSym)
		if err != nil {
			return nil, err
		}
	}

	f := &Field{
		Name:                 name,
		TypeStr:              typeStr,
		BitCount:             int(pf.BitCount),
		LowValue:             pf.LowValue,
		HighValue:            pf.HighValue,
		EncodeFlags:          pf.EncodeFlags,
		Encoder:              encoder,
		NestedSerializerName: nestedName,
		td:                   parseTypeString(typeStr),
	}
	return f, nil
}

// IngestClassInfo absorbs one CDemoClassInfo message, binding each
// class id to the Serializer named by its network_name and flattening it.
func (r *Registry) IngestClassInfo(msg wire.ClassInfo) error {
	for _, entry := range msg.Classes {
		ser, ok := r.serializersByName[entry.NetworkName]
		if !ok {
			return cs2replay.Errorf(cs2replay.UnknownClass,
				"class %d (%s) has no matching serializer", entry.ClassID, entry.NetworkName)
		}
		c := &Class{ID: entry.ClassID, Name: entry.NetworkName, Serializer: ser}
		flat, err := r.flatten(ser)
		if err != nil {
			return err
		}
		c.Flat = flat
		r.classes[entry.ClassID] = c
	}
	return nil
}

// Class returns the registered Class for id, or nil if unknown.
func (r *Registry) Class(id int32) *Class { return r.classes[id] }

// NumClasses returns how many classes have been registered, used to size
// the class_id bit field (log2(num_classes)) in PacketEntities Create
// headers.
func (r *Registry) NumClasses() int { return len(r.classes) }

// FieldByPath resolves a FieldPath to the FlatField it addresses within
// class c's flattened tree.
func (c *Class) FieldByPath(p FieldPath) (*FlatField, error) {
	for i := range c.Flat {
		if c.Flat[i].Path == p {
			return &c.Flat[i], nil
		}
	}
	return nil, cs2replay.Errorf(cs2replay.UnknownField, "class %s has no field at path %s", c.Name, p)
}

// FieldByName resolves a dotted field name within class c's flattened
// tree (used by the property-resolution layer, spec §4.H).
func (c *Class) FieldByName(dotted string) (*FlatField, bool) {
	for i := range c.Flat {
		if c.Flat[i].DottedName == dotted {
			return &c.Flat[i], true
		}
	}
	return nil, false
}
