package query

import (
	"strconv"
	"strings"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/demo"
	"github.com/icza/cs2replay/entity"
	"github.com/icza/cs2replay/gameevent"
	"github.com/icza/cs2replay/schema"
	"github.com/icza/cs2replay/wire"
)

// Query is a demo file opened for repeated read-only questions. Each
// parse_* method replays the file from the start with exactly the
// handlers it needs; a Query holds no state between calls beyond the
// raw bytes and the already-decoded file header.
type Query struct {
	data   []byte
	Header map[string]string
}

// Open validates and reads data's file header, returning a Query ready
// for any of the parse_* operations.
func Open(data []byte) (*Query, error) {
	d, err := demo.Open(data)
	if err != nil {
		return nil, err
	}
	return &Query{data: data, Header: d.Header.AsMap()}, nil
}

func (q *Query) open() (*demo.Demo, error) {
	return demo.Open(q.data)
}

// ParseHeader returns the fixed key/value header block as a single-row
// table, columns in demo.HeaderFields order (spec §4.I).
func (q *Query) ParseHeader() *Table {
	t := NewTable(demo.HeaderFields...)
	row := make([]schema.Value, len(demo.HeaderFields))
	for i, k := range demo.HeaderFields {
		row[i] = schema.StringValue(q.Header[k])
	}
	t.AddRow(row...)
	return t
}

// ParseConvars replays the whole demo collecting every console-command
// assignment observed (spec §4.I).
func (q *Query) ParseConvars() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}
	if err := d.Run(demo.Handlers{}); err != nil {
		return nil, err
	}
	t := NewTable("name", "value")
	for k, v := range d.Parser.Convars {
		t.AddRow(schema.StringValue(k), schema.StringValue(v))
	}
	return t, nil
}

// ParseChatMessages replays the whole demo collecting every say/say_team
// message (spec §4.I).
func (q *Query) ParseChatMessages() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}
	t := NewTable("tick", "entity_index", "team_only", "text")
	err = d.Run(demo.Handlers{
		OnChatMessage: func(msg demo.ChatMessage) {
			t.AddRow(
				schema.I64Value(int64(msg.Tick)),
				schema.I64Value(int64(msg.EntityIdx)),
				schema.BoolValue(msg.TeamOnly),
				schema.StringValue(msg.Text),
			)
		},
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ParseVoice replays the whole demo collecting each voice data packet's
// tick, speaker xuid, codec and payload length (spec §4.I; the decoded
// waveform itself is out of scope here, see SPEC_FULL.md's voice_to_wav
// note for why only the framing is modeled).
func (q *Query) ParseVoice() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}
	t := NewTable("tick", "xuid", "format", "bytes")
	err = d.Run(demo.Handlers{
		OnVoiceData: func(tick int32, v wire.VoiceData) {
			t.AddRow(
				schema.I64Value(int64(tick)),
				schema.U64Value(v.XUID),
				schema.I64Value(int64(v.Format)),
				schema.I64Value(int64(len(v.Audio))),
			)
		},
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListGameEvents replays the whole demo and returns every event name
// its CMsgSource1LegacyGameEventList descriptors ever announced.
func (q *Query) ListGameEvents() ([]string, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}
	if err := d.Run(demo.Handlers{}); err != nil {
		return nil, err
	}
	return d.Parser.Events.Names(), nil
}

// ListUpdatedFields returns every dotted field name a class can carry,
// used to discover what a parse_ticks prop list may legally request.
func (q *Query) ListUpdatedFields(classID int32) ([]string, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}
	if err := d.Run(demo.Handlers{}); err != nil {
		return nil, err
	}
	c := d.Parser.Registry.Class(classID)
	if c == nil {
		return nil, cs2replay.Errorf(cs2replay.UnknownClass, "no class with id %d was ever registered", classID)
	}
	out := make([]string, len(c.Flat))
	for i, ff := range c.Flat {
		out[i] = ff.DottedName
	}
	return out, nil
}

// ParseEvent replays the whole demo collecting every fired instance of
// one named event into a table whose columns are that event's
// descriptor keys, in descriptor order, augmented per spec §4.H op 2
// with player and other as ParseEvents describes.
func (q *Query) ParseEvent(name string, player, other []string) (*Table, error) {
	tabs, err := q.ParseEvents([]string{name}, player, other)
	if err != nil {
		return nil, err
	}
	t, ok := tabs[name]
	if !ok {
		return nil, cs2replay.Errorf(cs2replay.UnknownEvent, "event %q was never fired", name)
	}
	return t, nil
}

// eventRoleFields maps the short user-id fields an event descriptor may
// carry to the output column prefix spec §4.H op 2 augments them under
// ("userid" resolves to the event's primary subject, conventionally
// named "user" in the augmented columns).
var eventRoleFields = map[string]string{
	"userid":   "user",
	"attacker": "attacker",
	"assister": "assister",
	"victim":   "victim",
}

// resolveControllerByUserID finds the live CCSPlayerController whose
// m_iUserID matches userID, the short per-connection id game events
// reference in place of a full entity handle.
func resolveControllerByUserID(w *entity.World, userID int64) *entity.Slot {
	var found *entity.Slot
	w.Each(func(s *entity.Slot) {
		if found != nil || !strings.HasSuffix(s.Class.Name, "PlayerController") {
			return
		}
		if v, ok := s.ValueByName("m_iUserID"); ok && v.I64 == userID {
			found = s
		}
	})
	return found
}

// resolveOtherProp resolves one of parse_event's other=[...] world/round
// scalars off the game rules singleton entity (spec §4.H op 2).
func resolveOtherProp(w *entity.World, name string) (schema.Value, bool) {
	rules := findByClassSuffix(w, "GameRules")
	if rules == nil {
		return schema.Value{}, false
	}
	return rules.ValueByName(strings.TrimPrefix(name, "rules."))
}

// ParseEvents is ParseEvent for multiple event names in a single replay
// pass, returned keyed by name. player expands into per-role
// "<role>_steamid", "<role>_name" and "<role>_<prop>" columns for every
// resolvable role field (userid/attacker/assister/victim) the event
// descriptor carries; other adds world/round scalar columns read off the
// game rules entity at the event's tick (spec §4.H op 2/3).
func (q *Query) ParseEvents(names []string, player, other []string) (map[string]*Table, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	d, err := q.open()
	if err != nil {
		return nil, err
	}

	tables := make(map[string]*Table)
	err = d.Run(demo.Handlers{
		OnGameEvent: func(tick int32, ev gameevent.Event) {
			if !want[ev.Name] {
				return
			}
			w := d.Parser.World

			var roles []string
			for _, f := range ev.Fields {
				if _, ok := eventRoleFields[f.Name]; ok {
					roles = append(roles, f.Name)
				}
			}

			t := tables[ev.Name]
			if t == nil {
				cols := make([]string, 0, len(ev.Fields)+1)
				cols = append(cols, "tick")
				for _, f := range ev.Fields {
					cols = append(cols, f.Name)
				}
				for _, role := range roles {
					prefix := eventRoleFields[role]
					cols = append(cols, prefix+"_steamid", prefix+"_name")
					for _, p := range player {
						cols = append(cols, prefix+"_"+p)
					}
				}
				cols = append(cols, other...)
				t = NewTable(cols...)
				tables[ev.Name] = t
			}

			row := make([]schema.Value, 0, len(t.Columns))
			row = append(row, schema.I64Value(int64(tick)))
			for _, f := range ev.Fields {
				row = append(row, fieldValue(f))
			}
			for _, role := range roles {
				f, _ := ev.ByName(role)
				controller := resolveControllerByUserID(w, f.Int)
				if controller == nil {
					row = append(row, schema.Value{}, schema.Value{})
					for range player {
						row = append(row, schema.Value{})
					}
					continue
				}
				steamID, _ := controller.ValueByName("m_steamID")
				name, _ := controller.ValueByName("m_iszPlayerName")
				row = append(row, steamID, name)
				for _, p := range player {
					v, _ := ResolveProp(w, controller, p)
					row = append(row, v)
				}
			}
			for _, o := range other {
				v, _ := resolveOtherProp(w, o)
				row = append(row, v)
			}
			t.AddRow(row...)
		},
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func fieldValue(f gameevent.Field) schema.Value {
	switch f.Type {
	case gameevent.TypeString:
		return schema.StringValue(f.Str)
	case gameevent.TypeFloat:
		return schema.F32Value(f.Float)
	case gameevent.TypeBool:
		return schema.BoolValue(f.Bool)
	case gameevent.TypeUint64:
		return schema.U64Value(f.Uint)
	default:
		return schema.I64Value(f.Int)
	}
}

// ParseGrenades replays the whole demo and, at every tick, samples the
// position of every live grenade projectile entity, emitting one row
// per recorded trajectory sample (spec §4.H op 4). A thrown grenade
// that survives N ticks before detonating/expiring therefore produces
// N rows sharing its entity_id with strictly increasing tick.
func (q *Query) ParseGrenades() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}

	t := NewTable("thrower_steamid", "thrower_name", "grenade_type", "tick", "X", "Y", "Z", "entity_id")
	err = d.Run(demo.Handlers{
		OnTick: func(tick int32, w *entity.World) {
			w.Each(func(s *entity.Slot) {
				if !strings.Contains(s.Class.Name, "Grenade") && !strings.Contains(s.Class.Name, "Projectile") {
					return
				}

				var throwerSteamID, throwerName schema.Value
				if h, ok := s.ValueByName("m_hThrower"); ok && h.Kind == schema.KindHandle && h.Handle.Valid {
					if thrower := w.Slot(int32(h.Handle.Slot)); thrower != nil {
						throwerSteamID, _ = thrower.ValueByName("m_steamID")
						throwerName, _ = thrower.ValueByName("m_iszPlayerName")
					}
				}
				x, _ := s.ValueByName("X")
				y, _ := s.ValueByName("Y")
				z, _ := s.ValueByName("Z")
				t.AddRow(
					throwerSteamID, throwerName, schema.StringValue(s.Class.Name),
					schema.I64Value(int64(tick)), x, y, z, schema.I64Value(int64(s.Index)),
				)
			})
		},
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// itemDropEventNames are the fired events spec §4.I groups under
// parse_item_drops.
var itemDropEventNames = []string{"item_pickup", "item_purchase", "item_remove"}

// ParseItemDrops replays the whole demo collecting every item
// acquisition/loss event into one table per event name (spec §4.I).
func (q *Query) ParseItemDrops() (map[string]*Table, error) {
	return q.ParseEvents(itemDropEventNames, nil, nil)
}

// ParseSkins replays the whole demo and, at its final tick, snapshots
// every live weapon's econ item fields: definition index, paint kit and
// wear (spec §4.I).
func (q *Query) ParseSkins() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}

	t := NewTable("entity_index", "item_definition_index", "paint_kit", "wear", "sticker_0")
	var last *entity.World
	err = d.Run(demo.Handlers{
		OnTick: func(tick int32, w *entity.World) { last = w },
	})
	if err != nil {
		return nil, err
	}
	if last == nil {
		return t, nil
	}

	last.Each(func(s *entity.Slot) {
		if !strings.HasSuffix(s.Class.Name, "WeaponBase") && !strings.HasSuffix(s.Class.Name, "Knife") {
			return
		}
		defIdx, ok := s.ValueByName("m_AttributeManager.m_Item.m_iItemDefinitionIndex")
		if !ok {
			return
		}
		paintKit, _ := s.ValueByName("m_AttributeManager.m_Item.m_nFallbackPaintKit")
		wear, _ := s.ValueByName("m_AttributeManager.m_Item.m_flFallbackWear")
		sticker, _ := s.ValueByName("m_AttributeManager.m_Item.m_nFallbackStickerKit.0000")
		t.AddRow(
			schema.I64Value(int64(s.Index)),
			defIdx, paintKit, wear, sticker,
		)
	})
	return t, nil
}

// ParsePlayerInfo replays the whole demo and, at its final tick, snapshots
// every live player controller's identity fields (spec §4.I).
func (q *Query) ParsePlayerInfo() (*Table, error) {
	d, err := q.open()
	if err != nil {
		return nil, err
	}

	t := NewTable("entity_index", "name", "steamid", "team_num", "user_id")
	var last *entity.World
	err = d.Run(demo.Handlers{
		OnTick: func(tick int32, w *entity.World) { last = w },
	})
	if err != nil {
		return nil, err
	}
	if last == nil {
		return t, nil
	}

	last.Each(func(s *entity.Slot) {
		if !strings.HasSuffix(s.Class.Name, "PlayerController") {
			return
		}
		name, _ := s.ValueByName("m_iszPlayerName")
		steamID, _ := s.ValueByName("m_steamID")
		team, _ := s.ValueByName("m_iTeamNum")
		userID, _ := s.ValueByName("m_iUserID")
		t.AddRow(
			schema.I64Value(int64(s.Index)),
			name, steamID, team, userID,
		)
	})
	return t, nil
}

// steamIDString formats a decoded m_steamID value the way players and
// other callers name a player: its plain decimal digits.
func steamIDString(v schema.Value) string {
	return strconv.FormatUint(v.U64, 10)
}

// ParseTicks replays the whole demo and, at each requested tick, samples
// every requested prop (spec §4.H op 1) plus every propState for every
// live player controller, optionally restricted to players (a set of
// steamid strings). propStates are resolved exactly like props, once per
// sampled tick; there is no sub-tick sampling. Output has one row per
// (tick, steamid) pair with the well-known steamid/name columns spec §3
// names, followed by props then propStates in request order.
func (q *Query) ParseTicks(ticks []int32, props []string, players []string, propStates []string) (*Table, error) {
	want := make(map[int32]bool, len(ticks))
	for _, t := range ticks {
		want[t] = true
	}
	wantPlayers := make(map[string]bool, len(players))
	for _, p := range players {
		wantPlayers[p] = true
	}

	d, err := q.open()
	if err != nil {
		return nil, err
	}

	cols := append([]string{"tick", "steamid", "name"}, props...)
	cols = append(cols, propStates...)
	t := NewTable(cols...)

	err = d.Run(demo.Handlers{
		OnTick: func(tick int32, w *entity.World) {
			if !want[tick] {
				return
			}
			w.Each(func(s *entity.Slot) {
				if !strings.HasSuffix(s.Class.Name, "PlayerController") {
					return
				}
				steamID, _ := s.ValueByName("m_steamID")
				if len(wantPlayers) > 0 && !wantPlayers[steamIDString(steamID)] {
					return
				}
				name, _ := s.ValueByName("m_iszPlayerName")

				row := make([]schema.Value, 0, len(cols))
				row = append(row, schema.I64Value(int64(tick)), steamID, name)
				for _, p := range props {
					v, _ := ResolveProp(w, s, p)
					row = append(row, v)
				}
				for _, p := range propStates {
					v, _ := ResolveProp(w, s, p)
					row = append(row, v)
				}
				t.AddRow(row...)
			})
		},
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
