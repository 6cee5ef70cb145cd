package schema

import (
	"testing"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
	"github.com/icza/cs2replay/wire"
)

func TestParseTypeStringGrammar(t *testing.T) {
	cases := []struct {
		in   string
		want typeDesc
	}{
		{"float32", typeDesc{Base: "float32"}},
		{"char[161]", typeDesc{Base: "char", IsArray: true, ArrayLen: 161}},
		{"CHandle< CBaseModelEntity >", typeDesc{Base: "CHandle", Inner: "CBaseModelEntity"}},
		{"CNetworkUtlVectorBase< CHandle< CWeaponBase > >*", typeDesc{Base: "CNetworkUtlVectorBase", Inner: "CHandle< CWeaponBase >", Pointer: true}},
		{"CHandle<CBaseEntity>[MAX_ITEM_STOCKS]", typeDesc{Base: "CHandle", Inner: "CBaseEntity", IsArray: true, ArrayLen: 8}},
	}
	for _, c := range cases {
		got := parseTypeString(c.in)
		if got != c.want {
			t.Errorf("parseTypeString(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func buildSymbolField(symbols *[]string, s string) int32 {
	*symbols = append(*symbols, s)
	return int32(len(*symbols) - 1)
}

func TestRegistryFlattensFixedArrayAndVector(t *testing.T) {
	var symbols []string
	nameHealth := buildSymbolField(&symbols, "m_iHealth")
	typeInt32 := buildSymbolField(&symbols, "int32")
	nameOrigin := buildSymbolField(&symbols, "m_vecOrigin")
	typeVector := buildSymbolField(&symbols, "Vector")
	nameAmmo := buildSymbolField(&symbols, "m_iAmmo")
	typeAmmoArr := buildSymbolField(&symbols, "int32[2]")
	serName := buildSymbolField(&symbols, "CBasePlayerPawn")

	msg := wire.FlattenedSerializer{
		Symbols: symbols,
		Fields: []wire.ProtoField{
			{VarNameSym: nameHealth, VarTypeSym: typeInt32, NestedSerializerNameSym: -1, EncoderSym: -1},
			{VarNameSym: nameOrigin, VarTypeSym: typeVector, BitCount: 0, NestedSerializerNameSym: -1, EncoderSym: -1},
			{VarNameSym: nameAmmo, VarTypeSym: typeAmmoArr, NestedSerializerNameSym: -1, EncoderSym: -1},
		},
		Serializers: []wire.ProtoSerializer{
			{NameSym: serName, Version: 0, FieldIndex: []int32{0, 1, 2}},
		},
	}

	reg := NewRegistry()
	if err := reg.IngestFlattenedSerializer(msg); err != nil {
		t.Fatal(err)
	}

	ci := wire.ClassInfo{Classes: []wire.ClassInfoEntry{{ClassID: 1, NetworkName: "CBasePlayerPawn"}}}
	if err := reg.IngestClassInfo(ci); err != nil {
		t.Fatal(err)
	}

	c := reg.Class(1)
	if c == nil {
		t.Fatal("class 1 not registered")
	}

	wantNames := map[string]bool{
		"m_iHealth":     true,
		"m_vecOrigin":   true,
		"m_iAmmo.0000":  true,
		"m_iAmmo.0001":  true,
	}
	if len(c.Flat) != len(wantNames) {
		t.Fatalf("got %d flat fields, want %d: %+v", len(c.Flat), len(wantNames), c.Flat)
	}
	for _, ff := range c.Flat {
		if !wantNames[ff.DottedName] {
			t.Errorf("unexpected flat field %q", ff.DottedName)
		}
	}

	hf, ok := c.FieldByName("m_iHealth")
	if !ok {
		t.Fatal("m_iHealth not found")
	}
	br := bitread.New([]byte{0x0a}) // varint zigzag(5) = 10
	v := hf.Decoder(br)
	if v.Kind != KindI64 || v.I64 != 5 {
		t.Errorf("decoded health = %+v, want 5", v)
	}
}

func TestRegistryUnknownClassErrors(t *testing.T) {
	reg := NewRegistry()
	err := reg.IngestClassInfo(wire.ClassInfo{Classes: []wire.ClassInfoEntry{{ClassID: 9, NetworkName: "Nope"}}})
	if !cs2replay.IsKind(err, cs2replay.UnknownClass) {
		t.Errorf("got %v, want UnknownClass", err)
	}
}
