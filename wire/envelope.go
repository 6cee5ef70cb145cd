package wire

import (
	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
)

// MsgKind identifies a protobuf message kind inside a Packet/SignonPacket
// envelope (spec §4.C). The concrete integer values are this package's own
// numbering, not verified against the game's net message enums; this
// package only cares about the subset named in spec §6.
type MsgKind uint32

const (
	MsgServerInfo         MsgKind = 8
	MsgCreateStringTable  MsgKind = 12
	MsgUpdateStringTable  MsgKind = 13
	MsgVoiceData          MsgKind = 23
	MsgPacketEntities     MsgKind = 26
	MsgGameEventList      MsgKind = 30
	MsgGameEvent          MsgKind = 25
	MsgUserMessage        MsgKind = 36
	MsgSendTables         MsgKind = 9
	MsgClassInfo          MsgKind = 10
	MsgXRankUpdate        MsgKind = 100 // user-message sub-kind, see demo.dispatchUserMessage
)

// handledKinds names the kinds this package recognizes; anything else is
// skipped by the caller without even being handed to a handler.
var handledKinds = map[MsgKind]string{
	MsgServerInfo:        "CSVCMsg_ServerInfo",
	MsgCreateStringTable: "CSVCMsg_CreateStringTable",
	MsgUpdateStringTable: "CSVCMsg_UpdateStringTable",
	MsgVoiceData:         "CSVCMsg_VoiceData",
	MsgPacketEntities:    "CSVCMsg_PacketEntities",
	MsgGameEventList:     "CMsgSource1LegacyGameEventList",
	MsgGameEvent:         "CMsgSource1LegacyGameEvent",
	MsgUserMessage:       "CSVCMsg_UserMessage",
	MsgSendTables:        "CSVCMsg_FlattenedSerializer",
	MsgClassInfo:         "CDemoClassInfo",
}

// Name returns the handled message type name for kind, or "" if unknown.
func (k MsgKind) Name() string {
	return handledKinds[k]
}

// Handler is called once per (kind, body) pair found in an envelope, in
// stream order. body is a slice into the frame's decompressed payload.
type Handler func(kind MsgKind, body []byte) error

// Dispatch walks the (kind: varu32, len: varu32, bytes[len]) concatenation
// that makes up a Packet/SignonPacket/FullPacket body and invokes fn for
// every entry whose kind is in handledKinds. Unknown kinds are skipped
// using their declared length, never handed to fn.
func Dispatch(payload []byte, fn Handler) error {
	r := bitread.New(payload)
	for !r.EOF() {
		var kind MsgKind
		var bodyLen uint32
		if err := readEnvelopeHeader(r, &kind, &bodyLen); err != nil {
			return err
		}
		if int64(bodyLen)*8 > r.BitsLeft() {
			return cs2replay.Errorf(cs2replay.Truncated,
				"envelope body of %d bytes exceeds remaining payload", bodyLen)
		}
		body := r.ReadBytes(int(bodyLen))
		if _, known := handledKinds[kind]; !known {
			continue
		}
		if err := fn(kind, body); err != nil {
			return err
		}
	}
	return nil
}

func readEnvelopeHeader(r *bitread.Reader, kind *MsgKind, bodyLen *uint32) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(*cs2replay.Error); ok {
				err = e
				return
			}
			err = cs2replay.Errorf(cs2replay.ProtoDecode, "%v", rec)
		}
	}()
	*kind = MsgKind(r.ReadVarU32())
	*bodyLen = r.ReadVarU32()
	return nil
}
