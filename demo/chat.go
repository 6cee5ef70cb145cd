package demo

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers of the CCSUsrMsg_SayText2 payload this package reads.
const (
	fnSayEntityIdx = 1
	fnSayChat      = 2
	fnSayParam2    = 4 // message text
)

// parseSayText2 decodes a chat user message body directly with protowire,
// the same hand-rolled-envelope approach package wire uses for every
// other message type (protobuf message definitions are out of scope; see
// SPEC_FULL.md's domain stack notes).
func parseSayText2(body []byte) (ChatMessage, bool) {
	var msg ChatMessage
	data := body
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ChatMessage{}, false
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ChatMessage{}, false
			}
			switch num {
			case fnSayEntityIdx:
				msg.EntityIdx = int32(v)
			case fnSayChat:
				msg.TeamOnly = v != 0
			}
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ChatMessage{}, false
			}
			if num == fnSayParam2 {
				msg.Text = string(v)
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ChatMessage{}, false
			}
			data = data[n:]
		}
	}
	return msg, true
}
