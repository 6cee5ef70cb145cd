package wire

import (
	"testing"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendTagVarint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendTagBytes(buf []byte, num protowire.Number, v []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, v)
}

func appendFrame(buf []byte, kind Kind, tick int32, payload []byte, compress bool) []byte {
	raw := uint32(kind)
	body := payload
	if compress {
		raw |= compressedFlag
		body = snappy.Encode(nil, payload)
	}
	buf = protowire.AppendVarint(buf, uint64(raw))
	buf = protowire.AppendVarint(buf, uint64(uint32(tick)))
	buf = protowire.AppendVarint(buf, uint64(len(body)))
	buf = append(buf, body...)
	return buf
}

func TestReaderRoundTripsPlainAndCompressedFrames(t *testing.T) {
	var stream []byte
	stream = appendFrame(stream, KindSyncTick, 5, []byte("hello"), false)
	stream = appendFrame(stream, KindPacket, 6, []byte("a payload worth compressing a payload worth compressing"), true)
	stream = appendFrame(stream, KindStop, 7, nil, false)

	r := NewReader(stream)

	f, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("frame 1: ok=%v err=%v", ok, err)
	}
	if f.Kind != KindSyncTick || f.Tick != 5 || string(f.Payload) != "hello" {
		t.Errorf("frame 1 = %+v", f)
	}

	f, ok, err = r.Next()
	if err != nil || !ok {
		t.Fatalf("frame 2: ok=%v err=%v", ok, err)
	}
	if f.Kind != KindPacket || string(f.Payload) != "a payload worth compressing a payload worth compressing" {
		t.Errorf("frame 2 mismatch: %+v", f)
	}

	f, ok, err = r.Next()
	if err != nil || !ok || f.Kind != KindStop {
		t.Fatalf("stop frame: ok=%v err=%v f=%+v", ok, err, f)
	}

	_, ok, err = r.Next()
	if err != nil || ok {
		t.Errorf("expected no more frames after Stop, got ok=%v err=%v", ok, err)
	}
}

func TestValidateStampRejectsUnknown(t *testing.T) {
	if _, err := ValidateStamp([]byte("NOTADEMO")); err == nil {
		t.Error("expected error for unrecognized stamp")
	}
	rest, err := ValidateStamp(append(append([]byte{}, StampSource2...), 0x42))
	if err != nil || len(rest) != 1 || rest[0] != 0x42 {
		t.Errorf("rest=%v err=%v", rest, err)
	}
}

func TestDispatchSkipsUnknownKinds(t *testing.T) {
	var env []byte
	env = protowire.AppendVarint(env, uint64(MsgServerInfo))
	siBody := appendTagVarint(nil, fnServerInfoMaxClasses, 100)
	env = protowire.AppendVarint(env, uint64(len(siBody)))
	env = append(env, siBody...)

	// an unknown kind entry that should be skipped
	env = protowire.AppendVarint(env, 9999)
	env = protowire.AppendVarint(env, 3)
	env = append(env, []byte{1, 2, 3}...)

	var got []MsgKind
	err := Dispatch(env, func(kind MsgKind, b []byte) error {
		got = append(got, kind)
		return nil
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(got) != 1 || got[0] != MsgServerInfo {
		t.Errorf("got %v, want [MsgServerInfo]", got)
	}
}

func TestParsePacketEntitiesRoundTrip(t *testing.T) {
	var body []byte
	body = appendTagVarint(body, fnPacketEntitiesMaxEntries, 64)
	body = appendTagVarint(body, fnPacketEntitiesUpdatedEntries, 3)
	body = appendTagVarint(body, fnPacketEntitiesIsDelta, 1)
	body = appendTagBytes(body, fnPacketEntitiesData, []byte{0xaa, 0xbb})

	pe, err := ParsePacketEntities(body)
	if err != nil {
		t.Fatal(err)
	}
	if pe.MaxEntries != 64 || pe.UpdatedEntries != 3 || !pe.IsDelta || len(pe.EntityData) != 2 {
		t.Errorf("got %+v", pe)
	}
}

func TestParseGameEventListRoundTrip(t *testing.T) {
	var key []byte
	key = appendTagBytes(key, fnKeyName, []byte("attacker"))
	key = appendTagVarint(key, fnKeyType, 3)

	var desc []byte
	desc = appendTagVarint(desc, fnDescriptorEventID, 7)
	desc = appendTagBytes(desc, fnDescriptorName, []byte("player_death"))
	desc = appendTagBytes(desc, fnDescriptorKeys, key)

	body := appendTagBytes(nil, fnGameEventListDescriptors, desc)

	list, err := ParseGameEventList(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Descriptors) != 1 {
		t.Fatalf("got %d descriptors", len(list.Descriptors))
	}
	d := list.Descriptors[0]
	if d.EventID != 7 || d.Name != "player_death" || len(d.Keys) != 1 || d.Keys[0].Name != "attacker" {
		t.Errorf("got %+v", d)
	}
}
