package gameevent

import (
	"testing"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/wire"
)

func TestCatalogDecodeZipsValuesWithDescriptorKeys(t *testing.T) {
	cat := NewCatalog()
	cat.Ingest(wire.GameEventList{Descriptors: []wire.GameEventDescriptor{
		{
			EventID: 7,
			Name:    "player_death",
			Keys: []wire.EventKeyDescriptor{
				{Name: "userid", Type: TypeShort},
				{Name: "weapon", Type: TypeString},
				{Name: "headshot", Type: TypeBool},
			},
		},
	}})

	msg := wire.GameEvent{
		EventID: 7,
		Values: []wire.EventValue{
			{Int: 12},
			{String: "ak47", HasStr: true},
			{Bool: true},
		},
	}

	ev, err := cat.Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Name != "player_death" {
		t.Fatalf("got name %q", ev.Name)
	}
	weapon, ok := ev.ByName("weapon")
	if !ok || weapon.Str != "ak47" {
		t.Errorf("got weapon %+v", weapon)
	}
	headshot, ok := ev.ByName("headshot")
	if !ok || !headshot.Bool {
		t.Errorf("got headshot %+v", headshot)
	}
}

func TestCatalogDecodeUnknownEventIDErrors(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.Decode(wire.GameEvent{EventID: 99})
	if !cs2replay.IsKind(err, cs2replay.UnknownEvent) {
		t.Fatalf("got %v, want UnknownEvent", err)
	}
}

func TestTranslateRankUpdateProducesSyntheticEvent(t *testing.T) {
	ev := TranslateRankUpdate(wire.XRankUpdate{AccountID: 1, RankOld: 2, RankNew: 3, RankChange: 1, RankTypeID: 0})
	if ev.Name != "rank_update" {
		t.Fatalf("got name %q", ev.Name)
	}
	f, ok := ev.ByName("rank_new")
	if !ok || f.Int != 3 {
		t.Errorf("got rank_new %+v", f)
	}
}
