/*

Package demo wires bitread, wire, schema, stringtable, entity and
gameevent together into a single streaming pass over a demo file (spec
§5's "signon phase populates the registries every later packet depends
on"), exposing the header/convar/chat/voice extraction of spec §4.I
through caller-supplied Handlers.

*/
package demo

import (
	"log"
	"strings"

	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/entity"
	"github.com/icza/cs2replay/gameevent"
	"github.com/icza/cs2replay/schema"
	"github.com/icza/cs2replay/stringtable"
	"github.com/icza/cs2replay/wire"
)

// HeaderFields are the fixed keys spec §4.I says every demo carries in
// its leading key/value block, in the order the query layer's
// parse_header operation reports them.
var HeaderFields = []string{
	"demo_file_stamp", "network_protocol", "server_name", "client_name",
	"map_name", "game_directory", "fullpackets_version",
	"allow_clientside_entities", "allow_clientside_particles",
	"demo_version_name", "demo_version_guid", "build_num", "game",
}

// ChatMessage is one decoded say/say_team user message.
type ChatMessage struct {
	Tick      int32
	EntityIdx int32
	Text      string
	TeamOnly  bool
}

// Handlers are the caller's hooks into a Parser's single pass. Every
// field is optional; a nil handler is simply not invoked.
type Handlers struct {
	OnTick        func(tick int32, world *entity.World)
	OnGameEvent   func(tick int32, ev gameevent.Event)
	OnChatMessage func(msg ChatMessage)
	OnVoiceData   func(tick int32, v wire.VoiceData)
}

// Parser is the stateful, single-pass decoder a demo file is replayed
// through. Its registries hold the full accumulated state once Run
// returns, or as of the last processed tick if Run returned early with a
// decode error.
type Parser struct {
	Registry *schema.Registry
	Tables   *stringtable.Registry
	World    *entity.World
	Events   *gameevent.Catalog

	Header  map[string]string
	Convars map[string]string

	tick int32
	h    Handlers

	nextTableID int32
}

// NewParser returns a Parser with empty registries, ready for Run.
func NewParser() *Parser {
	reg := schema.NewRegistry()
	tables := stringtable.NewRegistry()
	return &Parser{
		Registry: reg,
		Tables:   tables,
		World:    entity.NewWorld(reg, tables),
		Events:   gameevent.NewCatalog(),
		Header:   make(map[string]string),
		Convars:  make(map[string]string),
	}
}

// Run replays the whole of data through the decoder stack, invoking h's
// hooks as it goes. The magic stamp and the file header frame (spec §4.I)
// must already have been consumed by the caller, as Open does with
// wire.ParseFileHeader, before data is passed here; Run starts directly at
// the outer frame stream.
func (p *Parser) Run(data []byte, h Handlers) error {
	p.h = h

	r := wire.NewReader(data)
	for {
		f, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		p.tick = f.Tick

		switch f.Kind {
		case wire.KindSignonPacket, wire.KindPacket, wire.KindFullPacket:
			if err := wire.Dispatch(f.Payload, p.dispatch); err != nil {
				return err
			}
			if h.OnTick != nil {
				h.OnTick(p.tick, p.World)
			}

		case wire.KindConsoleCmd:
			p.ingestConsoleCmd(f.Payload)
		}

		if f.Kind == wire.KindStop {
			return nil
		}
	}
}

// ingestConsoleCmd records a "key value" convar assignment out of a
// KindConsoleCmd frame's raw text payload (spec §4.I's convars table).
// Frames that aren't a simple assignment (map changes, exec directives)
// are ignored.
func (p *Parser) ingestConsoleCmd(payload []byte) {
	line := strings.TrimSpace(string(payload))
	key, value, ok := strings.Cut(line, " ")
	if !ok || key == "" {
		return
	}
	p.Convars[key] = strings.Trim(value, `"`)
}

func (p *Parser) dispatch(kind wire.MsgKind, body []byte) error {
	switch kind {
	case wire.MsgServerInfo:
		si, err := wire.ParseServerInfo(body)
		if err != nil {
			return err
		}
		p.Registry.SetTickInterval(si.TickInterval)

	case wire.MsgSendTables:
		fs, err := wire.ParseFlattenedSerializer(body)
		if err != nil {
			return err
		}
		return p.Registry.IngestFlattenedSerializer(fs)

	case wire.MsgClassInfo:
		ci, err := wire.ParseClassInfo(body)
		if err != nil {
			return err
		}
		return p.Registry.IngestClassInfo(ci)

	case wire.MsgCreateStringTable:
		cst, err := wire.ParseCreateStringTable(body)
		if err != nil {
			return err
		}
		id := p.nextTableID
		p.nextTableID++
		return p.Tables.Create(cst, id)

	case wire.MsgUpdateStringTable:
		ust, err := wire.ParseUpdateStringTable(body)
		if err != nil {
			return err
		}
		return p.Tables.Update(ust)

	case wire.MsgPacketEntities:
		pe, err := wire.ParsePacketEntities(body)
		if err != nil {
			return err
		}
		if err := p.World.ApplyPacketEntities(pe); err != nil {
			if cs2replay.IsKind(err, cs2replay.MissingEntity) || cs2replay.IsKind(err, cs2replay.CorruptPath) {
				// A single malformed entity update is logged and dropped
				// rather than aborting the whole decode (spec §7's recoverable
				// corruption policy for self-contained per-message failures).
				log.Printf("cs2replay: dropping malformed packet entities update: %v", err)
				return nil
			}
			return err
		}

	case wire.MsgGameEventList:
		list, err := wire.ParseGameEventList(body)
		if err != nil {
			return err
		}
		p.Events.Ingest(list)

	case wire.MsgGameEvent:
		ge, err := wire.ParseGameEvent(body)
		if err != nil {
			return err
		}
		ev, err := p.Events.Decode(ge)
		if err != nil {
			// A malformed or not-yet-cataloged event is logged and dropped
			// rather than aborting the whole decode (spec §7's recoverable
			// corruption policy for self-contained per-message failures).
			log.Printf("cs2replay: dropping unrecognized game event id: %v", err)
			return nil
		}
		if p.h.OnGameEvent != nil {
			p.h.OnGameEvent(p.tick, ev)
		}

	case wire.MsgVoiceData:
		vd, err := wire.ParseVoiceData(body)
		if err != nil {
			return err
		}
		if p.h.OnVoiceData != nil {
			p.h.OnVoiceData(p.tick, vd)
		}

	case wire.MsgUserMessage:
		um, err := wire.ParseUserMessage(body)
		if err != nil {
			return err
		}
		return p.dispatchUserMessage(um)
	}
	return nil
}

// User message sub-kinds this package recognizes inside CSVCMsg_UserMessage's
// opaque payload. Like the outer MsgKind values, these are this package's
// own stable numbering, not verified against the engine's real enum.
const (
	subMsgSayText2   = 1
	subMsgXRankUpdate = int32(wire.MsgXRankUpdate)
)

func (p *Parser) dispatchUserMessage(um wire.UserMessage) error {
	switch um.MsgType {
	case subMsgSayText2:
		msg, ok := parseSayText2(um.Data)
		if !ok {
			return nil
		}
		msg.Tick = p.tick
		if p.h.OnChatMessage != nil {
			p.h.OnChatMessage(msg)
		}

	case subMsgXRankUpdate:
		x, err := wire.ParseXRankUpdate(um.Data)
		if err != nil {
			return err
		}
		if p.h.OnGameEvent != nil {
			p.h.OnGameEvent(p.tick, gameevent.TranslateRankUpdate(x))
		}
	}
	return nil
}
