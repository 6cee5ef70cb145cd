package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/icza/cs2replay"
)

// field numbers of the subset of each CSVCMsg_*/CDemo* message this
// package consumes. Everything else in the real messages is ignored.
const (
	fnServerInfoTickInterval = 16
	fnServerInfoMaxClasses   = 6

	fnCreateTableName             = 1
	fnCreateTableMaxEntries        = 2
	fnCreateTableNumEntries        = 3
	fnCreateTableUserDataFixedSize = 4
	fnCreateTableUserDataSize      = 5
	fnCreateTableUserDataSizeBits  = 6
	fnCreateTableFlags             = 8
	fnCreateTableStringData        = 9

	fnUpdateTableID      = 1
	fnUpdateNumChanged   = 2
	fnUpdateStringData   = 3

	fnPacketEntitiesMaxEntries     = 1
	fnPacketEntitiesUpdatedEntries = 2
	fnPacketEntitiesIsDelta        = 3
	fnPacketEntitiesUpdateBaseline = 4
	fnPacketEntitiesBaseline       = 5
	fnPacketEntitiesData           = 6

	fnGameEventListDescriptors = 1
	fnDescriptorEventID        = 1
	fnDescriptorName           = 2
	fnDescriptorKeys           = 3
	fnKeyName                  = 1
	fnKeyType                  = 2

	fnGameEventID   = 1
	fnGameEventKeys = 2
	fnValString     = 1
	fnValFloat      = 2
	fnValLong       = 3
	fnValShort      = 4
	fnValByte       = 5
	fnValBool       = 6
	fnValUint64     = 7

	fnVoiceXUID   = 1
	fnVoiceAudio  = 3
	fnVoiceFormat = 8

	fnUserMsgType = 1
	fnUserMsgData = 2

	fnFSSymbols    = 1
	fnFSFields     = 2
	fnFSSerial     = 3
	fnFieldVarName = 1
	fnFieldVarType = 2
	fnFieldBits    = 3
	fnFieldLow     = 4
	fnFieldHigh    = 5
	fnFieldFlags   = 6
	fnFieldNested  = 7
	fnFieldSendNode = 8
	fnFieldEncoder = 9
	fnSerialName    = 1
	fnSerialVersion = 2
	fnSerialFields  = 3

	fnClassInfoClasses  = 1
	fnClassID           = 1
	fnClassNetworkName  = 2

	fnXRankAccountID  = 1
	fnXRankOld        = 2
	fnXRankNew        = 3
	fnXRankChange     = 4
	fnXRankTypeID     = 5
)

// rawField is one (field number, wire type, raw payload) triple produced
// by walking a protobuf message body without a generated descriptor.
type rawField struct {
	Num protowire.Number
	Typ protowire.Type
	Buf []byte // raw bytes for BytesType; encoded varint/fixed bytes otherwise unused
	U64 uint64
}

// parseFields walks data's top-level fields. Unknown/group fields are
// skipped. This is the hand-rolled equivalent of what a generated
// Unmarshal would do, scoped to exactly the fields this package reads.
func parseFields(data []byte) ([]rawField, error) {
	var out []rawField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "consuming tag")
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "consuming varint field %d", num)
			}
			out = append(out, rawField{Num: num, Typ: typ, U64: v})
			data = data[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "consuming fixed32 field %d", num)
			}
			out = append(out, rawField{Num: num, Typ: typ, U64: uint64(v)})
			data = data[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "consuming fixed64 field %d", num)
			}
			out = append(out, rawField{Num: num, Typ: typ, U64: v})
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "consuming bytes field %d", num)
			}
			out = append(out, rawField{Num: num, Typ: typ, Buf: v})
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, cs2replay.Wrap(cs2replay.ProtoDecode, protowire.ParseError(n), "skipping field %d", num)
			}
			data = data[n:]
		}
	}
	return out, nil
}

// ServerInfo is the subset of CSVCMsg_ServerInfo this package reads.
type ServerInfo struct {
	TickInterval float32
	MaxClasses   int32
}

func ParseServerInfo(body []byte) (ServerInfo, error) {
	fs, err := parseFields(body)
	if err != nil {
		return ServerInfo{}, err
	}
	var si ServerInfo
	for _, f := range fs {
		switch f.Num {
		case fnServerInfoTickInterval:
			si.TickInterval = float32frombits(f.U64)
		case fnServerInfoMaxClasses:
			si.MaxClasses = int32(f.U64)
		}
	}
	return si, nil
}

// CreateStringTable is the subset of CSVCMsg_CreateStringTable this
// package reads.
type CreateStringTable struct {
	Name              string
	MaxEntries        int32
	NumEntries        int32
	UserDataFixedSize bool
	UserDataSize      int32
	UserDataSizeBits  int32
	Flags             int32
	StringData        []byte
}

func ParseCreateStringTable(body []byte) (CreateStringTable, error) {
	fs, err := parseFields(body)
	if err != nil {
		return CreateStringTable{}, err
	}
	var c CreateStringTable
	for _, f := range fs {
		switch f.Num {
		case fnCreateTableName:
			c.Name = string(f.Buf)
		case fnCreateTableMaxEntries:
			c.MaxEntries = int32(f.U64)
		case fnCreateTableNumEntries:
			c.NumEntries = int32(f.U64)
		case fnCreateTableUserDataFixedSize:
			c.UserDataFixedSize = f.U64 != 0
		case fnCreateTableUserDataSize:
			c.UserDataSize = int32(f.U64)
		case fnCreateTableUserDataSizeBits:
			c.UserDataSizeBits = int32(f.U64)
		case fnCreateTableFlags:
			c.Flags = int32(f.U64)
		case fnCreateTableStringData:
			c.StringData = f.Buf
		}
	}
	return c, nil
}

// UpdateStringTable is the subset of CSVCMsg_UpdateStringTable this
// package reads.
type UpdateStringTable struct {
	TableID            int32
	NumChangedEntries  int32
	StringData         []byte
}

func ParseUpdateStringTable(body []byte) (UpdateStringTable, error) {
	fs, err := parseFields(body)
	if err != nil {
		return UpdateStringTable{}, err
	}
	var u UpdateStringTable
	for _, f := range fs {
		switch f.Num {
		case fnUpdateTableID:
			u.TableID = int32(f.U64)
		case fnUpdateNumChanged:
			u.NumChangedEntries = int32(f.U64)
		case fnUpdateStringData:
			u.StringData = f.Buf
		}
	}
	return u, nil
}

// PacketEntities is the subset of CSVCMsg_PacketEntities this package
// reads (spec §4.F).
type PacketEntities struct {
	MaxEntries     int32
	UpdatedEntries int32
	IsDelta        bool
	UpdateBaseline bool
	Baseline       int32
	EntityData     []byte
}

func ParsePacketEntities(body []byte) (PacketEntities, error) {
	fs, err := parseFields(body)
	if err != nil {
		return PacketEntities{}, err
	}
	var p PacketEntities
	for _, f := range fs {
		switch f.Num {
		case fnPacketEntitiesMaxEntries:
			p.MaxEntries = int32(f.U64)
		case fnPacketEntitiesUpdatedEntries:
			p.UpdatedEntries = int32(f.U64)
		case fnPacketEntitiesIsDelta:
			p.IsDelta = f.U64 != 0
		case fnPacketEntitiesUpdateBaseline:
			p.UpdateBaseline = f.U64 != 0
		case fnPacketEntitiesBaseline:
			p.Baseline = int32(f.U64)
		case fnPacketEntitiesData:
			p.EntityData = f.Buf
		}
	}
	return p, nil
}

// EventKeyDescriptor is one (field_name, type_tag) pair of a
// GameEventDescriptor.
type EventKeyDescriptor struct {
	Name string
	Type int32
}

// GameEventDescriptor names one learned event kind (spec §4.G).
type GameEventDescriptor struct {
	EventID int32
	Name    string
	Keys    []EventKeyDescriptor
}

// GameEventList is the decoded CMsgSource1LegacyGameEventList.
type GameEventList struct {
	Descriptors []GameEventDescriptor
}

func ParseGameEventList(body []byte) (GameEventList, error) {
	fs, err := parseFields(body)
	if err != nil {
		return GameEventList{}, err
	}
	var list GameEventList
	for _, f := range fs {
		if f.Num != fnGameEventListDescriptors {
			continue
		}
		d, err := parseGameEventDescriptor(f.Buf)
		if err != nil {
			return GameEventList{}, err
		}
		list.Descriptors = append(list.Descriptors, d)
	}
	return list, nil
}

func parseGameEventDescriptor(body []byte) (GameEventDescriptor, error) {
	fs, err := parseFields(body)
	if err != nil {
		return GameEventDescriptor{}, err
	}
	var d GameEventDescriptor
	for _, f := range fs {
		switch f.Num {
		case fnDescriptorEventID:
			d.EventID = int32(f.U64)
		case fnDescriptorName:
			d.Name = string(f.Buf)
		case fnDescriptorKeys:
			kfs, err := parseFields(f.Buf)
			if err != nil {
				return GameEventDescriptor{}, err
			}
			var key EventKeyDescriptor
			for _, kf := range kfs {
				switch kf.Num {
				case fnKeyName:
					key.Name = string(kf.Buf)
				case fnKeyType:
					key.Type = int32(kf.U64)
				}
			}
			d.Keys = append(d.Keys, key)
		}
	}
	return d, nil
}

// EventValue is one decoded, typed field of a fired game event.
type EventValue struct {
	String string
	Float  float32
	Int    int64
	Uint   uint64
	Bool   bool
	HasStr bool
}

// GameEvent is the decoded CMsgSource1LegacyGameEvent: an event id plus
// its values in descriptor order.
type GameEvent struct {
	EventID int32
	Values  []EventValue
}

func ParseGameEvent(body []byte) (GameEvent, error) {
	fs, err := parseFields(body)
	if err != nil {
		return GameEvent{}, err
	}
	var e GameEvent
	for _, f := range fs {
		switch f.Num {
		case fnGameEventID:
			e.EventID = int32(f.U64)
		case fnGameEventKeys:
			v, err := parseEventValue(f.Buf)
			if err != nil {
				return GameEvent{}, err
			}
			e.Values = append(e.Values, v)
		}
	}
	return e, nil
}

func parseEventValue(body []byte) (EventValue, error) {
	fs, err := parseFields(body)
	if err != nil {
		return EventValue{}, err
	}
	var v EventValue
	for _, f := range fs {
		switch f.Num {
		case fnValString:
			v.String, v.HasStr = string(f.Buf), true
		case fnValFloat:
			v.Float = float32frombits(f.U64)
		case fnValLong, fnValShort, fnValByte:
			v.Int = int64(int32(f.U64))
		case fnValBool:
			v.Bool = f.U64 != 0
		case fnValUint64:
			v.Uint = f.U64
		}
	}
	return v, nil
}

// VoiceData is the subset of CSVCMsg_VoiceData this package reads.
type VoiceData struct {
	XUID   uint64
	Audio  []byte
	Format int32
}

func ParseVoiceData(body []byte) (VoiceData, error) {
	fs, err := parseFields(body)
	if err != nil {
		return VoiceData{}, err
	}
	var v VoiceData
	for _, f := range fs {
		switch f.Num {
		case fnVoiceXUID:
			v.XUID = f.U64
		case fnVoiceAudio:
			v.Audio = f.Buf
		case fnVoiceFormat:
			v.Format = int32(f.U64)
		}
	}
	return v, nil
}

// UserMessage is the envelope around a CCSUsrMsg_* payload.
type UserMessage struct {
	MsgType int32
	Data    []byte
}

func ParseUserMessage(body []byte) (UserMessage, error) {
	fs, err := parseFields(body)
	if err != nil {
		return UserMessage{}, err
	}
	var u UserMessage
	for _, f := range fs {
		switch f.Num {
		case fnUserMsgType:
			u.MsgType = int32(f.U64)
		case fnUserMsgData:
			u.Data = f.Buf
		}
	}
	return u, nil
}

// XRankUpdate is the decoded CCSUsrMsg_XRankUpdate (spec §4.G synthetic
// rank_update event).
type XRankUpdate struct {
	AccountID int32
	RankOld   int32
	RankNew   int32
	RankChange int32
	RankTypeID int32
}

func ParseXRankUpdate(body []byte) (XRankUpdate, error) {
	fs, err := parseFields(body)
	if err != nil {
		return XRankUpdate{}, err
	}
	var x XRankUpdate
	for _, f := range fs {
		switch f.Num {
		case fnXRankAccountID:
			x.AccountID = int32(f.U64)
		case fnXRankOld:
			x.RankOld = int32(f.U64)
		case fnXRankNew:
			x.RankNew = int32(f.U64)
		case fnXRankChange:
			x.RankChange = int32(f.U64)
		case fnXRankTypeID:
			x.RankTypeID = int32(f.U64)
		}
	}
	return x, nil
}

// ProtoField is one entry of CSVCMsg_FlattenedSerializer's field list.
type ProtoField struct {
	VarNameSym  int32
	VarTypeSym  int32
	BitCount    int32
	LowValue    float32
	HighValue   float32
	EncodeFlags int32
	NestedSerializerNameSym int32 // -1 if none
	EncoderSym  int32             // -1 if none
}

// ProtoSerializer is one entry of CSVCMsg_FlattenedSerializer's
// serializer list: a name/version and indices into the shared field list.
type ProtoSerializer struct {
	NameSym    int32
	Version    int32
	FieldIndex []int32
}

// FlattenedSerializer is the decoded CSVCMsg_FlattenedSerializer message:
// a symbol table plus the shared field and serializer lists every class's
// Serializer is built from (spec §4.D).
type FlattenedSerializer struct {
	Symbols     []string
	Fields      []ProtoField
	Serializers []ProtoSerializer
}

func ParseFlattenedSerializer(body []byte) (FlattenedSerializer, error) {
	fs, err := parseFields(body)
	if err != nil {
		return FlattenedSerializer{}, err
	}
	var out FlattenedSerializer
	for _, f := range fs {
		switch f.Num {
		case fnFSSymbols:
			out.Symbols = append(out.Symbols, string(f.Buf))
		case fnFSFields:
			pf, err := parseProtoField(f.Buf)
			if err != nil {
				return FlattenedSerializer{}, err
			}
			out.Fields = append(out.Fields, pf)
		case fnFSSerial:
			ps, err := parseProtoSerializer(f.Buf)
			if err != nil {
				return FlattenedSerializer{}, err
			}
			out.Serializers = append(out.Serializers, ps)
		}
	}
	return out, nil
}

func parseProtoField(body []byte) (ProtoField, error) {
	fs, err := parseFields(body)
	if err != nil {
		return ProtoField{}, err
	}
	pf := ProtoField{NestedSerializerNameSym: -1, EncoderSym: -1}
	for _, f := range fs {
		switch f.Num {
		case fnFieldVarName:
			pf.VarNameSym = int32(f.U64)
		case fnFieldVarType:
			pf.VarTypeSym = int32(f.U64)
		case fnFieldBits:
			pf.BitCount = int32(f.U64)
		case fnFieldLow:
			pf.LowValue = float32frombits(f.U64)
		case fnFieldHigh:
			pf.HighValue = float32frombits(f.U64)
		case fnFieldFlags:
			pf.EncodeFlags = int32(f.U64)
		case fnFieldNested:
			pf.NestedSerializerNameSym = int32(f.U64)
		case fnFieldEncoder:
			pf.EncoderSym = int32(f.U64)
		}
	}
	return pf, nil
}

func parseProtoSerializer(body []byte) (ProtoSerializer, error) {
	fs, err := parseFields(body)
	if err != nil {
		return ProtoSerializer{}, err
	}
	var ps ProtoSerializer
	for _, f := range fs {
		switch f.Num {
		case fnSerialName:
			ps.NameSym = int32(f.U64)
		case fnSerialVersion:
			ps.Version = int32(f.U64)
		case fnSerialFields:
			ps.FieldIndex = append(ps.FieldIndex, int32(f.U64))
		}
	}
	return ps, nil
}

// ClassInfoEntry is one (class_id, network_name) pair of CDemoClassInfo.
type ClassInfoEntry struct {
	ClassID     int32
	NetworkName string
}

// ClassInfo is the decoded CDemoClassInfo message.
type ClassInfo struct {
	Classes []ClassInfoEntry
}

func ParseClassInfo(body []byte) (ClassInfo, error) {
	fs, err := parseFields(body)
	if err != nil {
		return ClassInfo{}, err
	}
	var ci ClassInfo
	for _, f := range fs {
		if f.Num != fnClassInfoClasses {
			continue
		}
		efs, err := parseFields(f.Buf)
		if err != nil {
			return ClassInfo{}, err
		}
		var e ClassInfoEntry
		for _, ef := range efs {
			switch ef.Num {
			case fnClassID:
				e.ClassID = int32(ef.U64)
			case fnClassNetworkName:
				e.NetworkName = string(ef.Buf)
			}
		}
		ci.Classes = append(ci.Classes, e)
	}
	return ci, nil
}

func float32frombits(u uint64) float32 {
	return math.Float32frombits(uint32(u))
}
