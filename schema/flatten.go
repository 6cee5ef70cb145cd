package schema

import (
	"fmt"
	"strings"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
)

const maxFieldPathDepth = 7

// flatten performs the depth-first traversal of spec §4.D.3: every leaf a
// Class can ever carry is materialized once, fixed arrays are expanded
// into N consecutive entries, and dynamic vectors stay a single entry
// whose decoder returns an array Value.
func (r *Registry) flatten(s *Serializer) ([]FlatField, error) {
	var out []FlatField

	var zero FieldPath
	for i := range zero {
		zero[i] = -1
	}

	var walk func(fields []*Field, prefix FieldPath, depth int, namePrefix string) error
	walk = func(fields []*Field, prefix FieldPath, depth int, namePrefix string) error {
		for idx, f := range fields {
			if depth >= maxFieldPathDepth {
				return cs2replay.Errorf(cs2replay.CorruptPath, "field %q exceeds max path depth", f.Name)
			}
			path := prefix
			path[depth] = int32(idx)

			name := f.Name
			if namePrefix != "" {
				name = namePrefix + "." + f.Name
			}

			switch {
			case isStringType(f):
				out = append(out, FlatField{Path: path, DottedName: name, Decoder: stringDecoder(f)})

			case isDynamicVectorType(f):
				dec, err := r.dynamicVectorDecoder(f)
				if err != nil {
					return err
				}
				out = append(out, FlatField{Path: path, DottedName: name, Decoder: dec})

			case f.td.IsArray:
				if depth+1 >= maxFieldPathDepth {
					return cs2replay.Errorf(cs2replay.CorruptPath, "array field %q exceeds max path depth", f.Name)
				}
				elemField := *f
				elemField.td.IsArray = false
				if elemField.NestedSerializerName != "" {
					nested, ok := r.serializersByName[elemField.NestedSerializerName]
					if !ok {
						return cs2replay.Errorf(cs2replay.UnknownClass,
							"field %q references unknown nested serializer %q", f.Name, elemField.NestedSerializerName)
					}
					for i := 0; i < f.td.ArrayLen; i++ {
						elPath := path
						elPath[depth+1] = int32(i)
						elName := fmt.Sprintf("%s.%04d", name, i)
						if err := walk(nested.Fields, elPath, depth+2, elName); err != nil {
							return err
						}
					}
				} else {
					dec, err := r.scalarDecoder(&elemField)
					if err != nil {
						return err
					}
					for i := 0; i < f.td.ArrayLen; i++ {
						elPath := path
						elPath[depth+1] = int32(i)
						elName := fmt.Sprintf("%s.%04d", name, i)
						out = append(out, FlatField{Path: elPath, DottedName: elName, Decoder: dec})
					}
				}

			case f.NestedSerializerName != "":
				nested, ok := r.serializersByName[f.NestedSerializerName]
				if !ok {
					return cs2replay.Errorf(cs2replay.UnknownClass,
						"field %q references unknown nested serializer %q", f.Name, f.NestedSerializerName)
				}
				if err := walk(nested.Fields, path, depth+1, name); err != nil {
					return err
				}

			default:
				dec, err := r.scalarDecoder(f)
				if err != nil {
					return err
				}
				out = append(out, FlatField{Path: path, DottedName: name, Decoder: dec})
			}
		}
		return nil
	}

	if err := walk(s.Fields, zero, 0, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func isStringType(f *Field) bool {
	switch f.td.Base {
	case "char", "CUtlString", "CUtlSymbolLarge":
		return true
	}
	return false
}

func isDynamicVectorType(f *Field) bool {
	return f.td.Base == "CNetworkUtlVectorBase" || f.td.Base == "CUtlVector"
}

func stringDecoder(f *Field) Decoder {
	max := f.td.ArrayLen
	if max == 0 {
		max = 4096
	}
	return func(r *bitread.Reader) Value {
		return StringValue(r.ReadString(max))
	}
}

func (r *Registry) dynamicVectorDecoder(f *Field) (Decoder, error) {
	elemField := *f
	elemField.td = parseTypeString(f.td.Inner)
	elemField.NestedSerializerName = f.NestedSerializerName

	var elemDec Decoder
	if nested, ok := r.serializersByName[f.td.Inner]; ok {
		// Array of embedded structs: each element recurses on its own,
		// synthetic single-entry path. The query layer never addresses a
		// dynamic-vector element directly, so a flat nested dump is enough.
		flat, err := r.flatten(nested)
		if err != nil {
			return nil, err
		}
		elemDec = func(br *bitread.Reader) Value {
			vals := make([]Value, len(flat))
			for i, ff := range flat {
				vals[i] = ff.Decoder(br)
			}
			return ArrayValue(vals)
		}
	} else {
		dec, err := r.scalarDecoder(&elemField)
		if err != nil {
			return nil, err
		}
		elemDec = dec
	}

	return func(br *bitread.Reader) Value {
		length := br.ReadVarU32()
		elems := make([]Value, length)
		for i := range elems {
			elems[i] = elemDec(br)
		}
		return ArrayValue(elems)
	}, nil
}

// scalarDecoder implements the (type, encoder) -> decoder table of
// spec §4.D.2 for every leaf type that isn't a string, dynamic vector or
// embedded struct (those are handled directly in flatten).
func (r *Registry) scalarDecoder(f *Field) (Decoder, error) {
	base := f.td.Base
	bits := f.BitCount
	low, high := f.LowValue, f.HighValue

	switch base {
	case "bool":
		return func(br *bitread.Reader) Value { return BoolValue(br.ReadBit()) }, nil

	case "int8", "int16", "int32":
		return func(br *bitread.Reader) Value { return I64Value(int64(br.ReadVarI32())) }, nil

	case "int64":
		return func(br *bitread.Reader) Value { return I64Value(br.ReadVarI64()) }, nil

	case "uint8", "uint16", "uint32", "unsigned":
		return func(br *bitread.Reader) Value { return U64Value(uint64(br.ReadVarU32())) }, nil

	case "uint64":
		if f.Encoder == "fixed64" {
			return func(br *bitread.Reader) Value { return U64Value(br.ReadBits64(64)) }, nil
		}
		return func(br *bitread.Reader) Value { return U64Value(br.ReadVarU64()) }, nil

	case "float32", "float":
		return floatDecoder(f.Encoder, bits, low, high, r), nil

	case "QAngle":
		comp := floatDecoder(f.Encoder, bits, low, high, r)
		return func(br *bitread.Reader) Value {
			v := [3]float32{comp(br).F32, comp(br).F32, comp(br).F32}
			return VectorValue(v[:])
		}, nil

	case "Vector", "Vector2D", "Vector4D":
		n := 3
		switch base {
		case "Vector2D":
			n = 2
		case "Vector4D":
			n = 4
		}
		return func(br *bitread.Reader) Value {
			vec := make([]float32, n)
			for i := range vec {
				vec[i] = br.ReadQuantizedFloat(bits, low, high)
			}
			return VectorValue(vec)
		}, nil

	case "CHandle":
		return func(br *bitread.Reader) Value { return HandleValue(DecodeHandle(br.ReadVarU32())) }, nil

	case "CStrongHandle", "CGameSceneNodeHandle":
		return func(br *bitread.Reader) Value { return U64Value(br.ReadVarU64()) }, nil

	case "GameTime_t", "CUtlStringToken":
		return func(br *bitread.Reader) Value { return U64Value(uint64(br.ReadVarU32())) }, nil
	}

	if bits > 0 && bits <= 32 {
		return func(br *bitread.Reader) Value { return U64Value(uint64(br.ReadBits(bits))) }, nil
	}

	return nil, cs2replay.Errorf(cs2replay.UnknownField, "no decoder for declared type %q (base %q)", f.TypeStr, base)
}

func floatDecoder(encoder string, bits int, low, high float32, r *Registry) Decoder {
	switch encoder {
	case "coord", "coord_precise", "simulation_time", "simtime":
		if strings.HasPrefix(encoder, "coord") {
			return func(br *bitread.Reader) Value { return F32Value(br.ReadCoord()) }
		}
		return func(br *bitread.Reader) Value {
			ticks := br.ReadVarU32()
			return F32Value(float32(ticks) * r.tickInterval)
		}
	case "normal", "normal_precise":
		return func(br *bitread.Reader) Value { return F32Value(br.ReadNormal()) }
	case "runetime", "m_flSimulationTime":
		return func(br *bitread.Reader) Value {
			ticks := br.ReadVarU32()
			return F32Value(float32(ticks) * r.tickInterval)
		}
	default:
		return func(br *bitread.Reader) Value { return F32Value(br.ReadQuantizedFloat(bits, low, high)) }
	}
}
