/*

Package wire implements the outer demo frame stream (spec §4.B) and the
protobuf envelope dispatch inside each packet frame's payload (§4.C).

*/
package wire

import (
	"bytes"

	"github.com/golang/snappy"
	"github.com/icza/cs2replay"
	"github.com/icza/cs2replay/bitread"
)

// Kind identifies an outer frame's command.
type Kind int

const (
	KindFileHeader   Kind = 0
	KindSignonPacket Kind = 1
	KindPacket       Kind = 2
	KindSyncTick     Kind = 3
	KindConsoleCmd   Kind = 4
	KindUserCmd      Kind = 5
	KindDataTables   Kind = 6
	KindStop         Kind = 7
	KindCustomData   Kind = 8
	KindStringTables Kind = 9
	KindFullPacket   Kind = 12
)

// compressedFlag is the 0x40 bit of the decoded command varint (the top
// value bit of a one-byte varint) signaling a Snappy-framed payload.
const compressedFlag = 0x40

// StampLegacy and StampSource2 are the two accepted magic stamps.
var (
	StampLegacy  = []byte("HL2DEMO\x00")
	StampSource2 = []byte("PBDEMS2\x00")
)

// Frame is one decoded outer-stream record.
type Frame struct {
	Kind    Kind
	Tick    int32
	Payload []byte
}

// Reader demultiplexes the outer frame stream out of a whole demo body
// (the magic stamp must already be consumed by the caller; see
// demo.Open, which then reads the file header frame with a Reader).
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps the remainder of a demo file after its magic stamp.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Next returns the next frame, or ok=false once a Stop frame has been
// consumed or the stream is exhausted. Short reads before a Stop frame
// are reported as a Truncated error.
func (r *Reader) Next() (f Frame, ok bool, err error) {
	if r.pos >= len(r.data) {
		return Frame{}, false, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			if e, isErr := rec.(*cs2replay.Error); isErr {
				err = e
				return
			}
			err = cs2replay.Wrap(cs2replay.Truncated, asError(rec), "reading frame")
		}
	}()

	window := r.data[r.pos:]
	br := bitread.New(window)
	rawCmd := br.ReadVarU32()
	tick := int32(br.ReadVarU32())
	payloadLen := br.ReadVarU32()

	compressed := rawCmd&compressedFlag != 0
	kind := Kind(rawCmd &^ compressedFlag)

	headerBytes := (int64(len(window))*8 - br.BitsLeft()) / 8
	consumed := r.pos + int(headerBytes)
	if consumed+int(payloadLen) > len(r.data) {
		return Frame{}, false, cs2replay.Errorf(cs2replay.Truncated,
			"frame payload of %d bytes exceeds remaining stream", payloadLen)
	}
	payload := r.data[consumed : consumed+int(payloadLen)]
	r.pos = consumed + int(payloadLen)

	if compressed {
		decoded, derr := snappy.Decode(nil, payload)
		if derr != nil {
			return Frame{}, false, cs2replay.Wrap(cs2replay.Truncated, derr, "snappy decode of %v frame", kind)
		}
		payload = decoded
	}

	f = Frame{Kind: kind, Tick: tick, Payload: payload}
	if kind == KindStop {
		r.pos = len(r.data)
		return f, true, nil
	}
	return f, true, nil
}

// Remaining returns the unconsumed tail of r's backing slice, letting a
// caller that peeled off a leading frame by hand (see demo.Open) resume
// general frame decoding from exactly where it left off.
func (r *Reader) Remaining() []byte {
	return r.data[r.pos:]
}

func asError(r interface{}) error {
	if e, ok := r.(error); ok {
		return e
	}
	return cs2replay.Errorf(cs2replay.Truncated, "%v", r)
}

// ValidateStamp checks the leading magic bytes of a whole demo file and
// returns the remainder after the stamp.
func ValidateStamp(data []byte) ([]byte, error) {
	for _, stamp := range [][]byte{StampLegacy, StampSource2} {
		if len(data) >= len(stamp) && bytes.Equal(data[:len(stamp)], stamp) {
			return data[len(stamp):], nil
		}
	}
	return nil, cs2replay.Errorf(cs2replay.UnsupportedFormat, "unrecognized demo magic stamp")
}
