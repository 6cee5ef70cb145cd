/*

Package gameevent catalogs the descriptors announced by
CMsgSource1LegacyGameEventList and decodes each fired
CMsgSource1LegacyGameEvent against its descriptor's key order (spec
§4.G), plus the synthetic rank_update event translated from
CCSUsrMsg_XRankUpdate.

*/
package gameevent

import (
	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/wire"
)

// Key type tags, matching the wire encoding of CMsgSource1LegacyGameEventList
// key descriptors.
const (
	TypeString = 1
	TypeFloat  = 2
	TypeLong   = 3
	TypeShort  = 4
	TypeByte   = 5
	TypeBool   = 6
	TypeUint64 = 7
	TypeLocal  = 8 // no payload; placeholder keys some descriptors carry
)

// Field is one decoded (name, typed value) pair of a fired event.
type Field struct {
	Name string
	Type int32

	Str    string
	Float  float32
	Int    int64
	Uint   uint64
	Bool   bool
}

// Event is one fired, fully named and typed game event.
type Event struct {
	Name   string
	Fields []Field
}

// Catalog holds the descriptors learned from CMsgSource1LegacyGameEventList,
// keyed by event id.
type Catalog struct {
	byID map[int32]wire.GameEventDescriptor
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[int32]wire.GameEventDescriptor)}
}

// Ingest absorbs one CMsgSource1LegacyGameEventList message, replacing
// any previously learned descriptors of the same id.
func (c *Catalog) Ingest(list wire.GameEventList) {
	for _, d := range list.Descriptors {
		c.byID[d.EventID] = d
	}
}

// Names returns every event name currently known to the catalog (spec's
// list_game_events operation).
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.byID))
	for _, d := range c.byID {
		out = append(out, d.Name)
	}
	return out
}

// Decode resolves msg's event id against the catalog and zips its values
// with the descriptor's key names/types in order.
func (c *Catalog) Decode(msg wire.GameEvent) (Event, error) {
	d, ok := c.byID[msg.EventID]
	if !ok {
		return Event{}, cs2replay.Errorf(cs2replay.UnknownEvent, "no descriptor for event id %d", msg.EventID)
	}
	if len(msg.Values) != len(d.Keys) {
		return Event{}, cs2replay.Errorf(cs2replay.ProtoDecode,
			"event %s carries %d values, descriptor has %d keys", d.Name, len(msg.Values), len(d.Keys))
	}

	ev := Event{Name: d.Name, Fields: make([]Field, len(d.Keys))}
	for i, k := range d.Keys {
		v := msg.Values[i]
		ev.Fields[i] = Field{
			Name:  k.Name,
			Type:  k.Type,
			Str:   v.String,
			Float: v.Float,
			Int:   v.Int,
			Uint:  v.Uint,
			Bool:  v.Bool,
		}
	}
	return ev, nil
}

// ByName returns the first field called name, and false if the event has
// no such field, for the query layer's column building.
func (e Event) ByName(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// rankUpdateEventName is the synthetic event this package manufactures
// from CCSUsrMsg_XRankUpdate, which otherwise never appears in the
// descriptor catalog (spec §4.G).
const rankUpdateEventName = "rank_update"

// TranslateRankUpdate turns one CCSUsrMsg_XRankUpdate into the synthetic
// rank_update Event with columns account_id, rank_old, rank_new,
// rank_change, rank_type_id.
func TranslateRankUpdate(x wire.XRankUpdate) Event {
	return Event{
		Name: rankUpdateEventName,
		Fields: []Field{
			{Name: "account_id", Type: TypeLong, Int: int64(x.AccountID)},
			{Name: "rank_old", Type: TypeLong, Int: int64(x.RankOld)},
			{Name: "rank_new", Type: TypeLong, Int: int64(x.RankNew)},
			{Name: "rank_change", Type: TypeLong, Int: int64(x.RankChange)},
			{Name: "rank_type_id", Type: TypeLong, Int: int64(x.RankTypeID)},
		},
	}
}
