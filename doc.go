/*

Package cs2replay decodes Counter-Strike 2 (Source 2) demo files and
exposes a query API returning columnar tables of per-tick entity
properties and per-event fields.

A demo is a framed binary stream of serialized game engine state: a
magic-stamped header followed by a sequence of command frames, each
carrying a Snappy-compressed or raw protobuf-ish payload. Most of the
payload's meaning is not baked into this package at compile time —
class layouts, field types and game event shapes are all discovered at
runtime from messages embedded early in the stream (the "sendtables"
and game event list) and used to build decoders on the fly.

High-level usage

	import "github.com/icza/cs2replay/query"

	data, err := os.ReadFile("match.dem")
	if err != nil {
		log.Fatal(err)
	}

	q, err := query.Open(data)
	if err != nil {
		log.Fatal(err)
	}

	tbl, err := q.ParseTicks([]int32{128, 256}, []string{"m_iHealth", "m_ArmorValue"}, nil, nil)

Information sources

  - Valve's Source 2 demo format, as reverse engineered by the
    community (no official spec is published).
  - LaihoE/demoparser (Rust), the reference implementation this
    package's query surface is modeled after.

*/
package cs2replay
